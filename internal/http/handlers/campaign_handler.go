package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crowdfunding-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/service"
)

// CampaignHandler модерация кампаний и правок.
type CampaignHandler struct {
	campaigns *service.CampaignService
}

func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// actor возвращает id пользователя и id кампании из маршрута.
func actor(c *gin.Context) (userID, campaignID uuid.UUID, ok bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}
	campaignID, err = common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, campaignID, true
}

// SubmitChanges POST /api/campaigns/:id/changes
func (h *CampaignHandler) SubmitChanges(c *gin.Context) {
	userID, id, ok := actor(c)
	if !ok {
		return
	}

	var req struct {
		Changes models.StagedChanges `json:"changes" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	campaign, err := h.campaigns.SubmitChanges(c.Request.Context(), id, userID, req.Changes)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, campaign)
}

// Approve POST /api/admin/campaigns/:id/approve
func (h *CampaignHandler) Approve(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}
	campaign, err := h.campaigns.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Reject POST /api/admin/campaigns/:id/reject
func (h *CampaignHandler) Reject(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	campaign, err := h.campaigns.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Recompute POST /api/admin/campaigns/:id/recompute
func (h *CampaignHandler) Recompute(c *gin.Context) {
	_, id, ok := actor(c)
	if !ok {
		return
	}
	res, err := h.campaigns.Recompute(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ApproveChanges POST /api/admin/campaigns/:id/changes/approve
func (h *CampaignHandler) ApproveChanges(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}
	campaign, err := h.campaigns.ApproveChanges(c.Request.Context(), id, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// RejectChanges POST /api/admin/campaigns/:id/changes/reject
func (h *CampaignHandler) RejectChanges(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}
	campaign, err := h.campaigns.RejectChanges(c.Request.Context(), id, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}
