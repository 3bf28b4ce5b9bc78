package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/crowdfunding-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crowdfunding-backend/internal/service"
)

type WithdrawalHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalHandler(s *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: s}
}

// Create POST /api/campaigns/:id/withdrawals
func (h *WithdrawalHandler) Create(c *gin.Context) {
	userID, campaignID, ok := actor(c)
	if !ok {
		return
	}

	var req struct {
		Amount             string `json:"amount" binding:"required"`
		DestinationBank    string `json:"destination_bank" binding:"required"`
		DestinationAccount string `json:"destination_account" binding:"required"`
		DestinationName    string `json:"destination_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	w, err := h.svc.Create(c.Request.Context(), service.CreateWithdrawalInput{
		CampaignID:         campaignID,
		UserID:             userID,
		Amount:             req.Amount,
		DestinationBank:    req.DestinationBank,
		DestinationAccount: req.DestinationAccount,
		DestinationName:    req.DestinationName,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// ListByCampaign GET /api/campaigns/:id/withdrawals
func (h *WithdrawalHandler) ListByCampaign(c *gin.Context) {
	userID, campaignID, ok := actor(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByCampaign(c.Request.Context(), campaignID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Approve POST /api/admin/withdrawals/:id/approve
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}
	w, err := h.svc.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Reject POST /api/admin/withdrawals/:id/reject
func (h *WithdrawalHandler) Reject(c *gin.Context) {
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

	w, err := h.svc.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Complete POST /api/admin/withdrawals/:id/complete
func (h *WithdrawalHandler) Complete(c *gin.Context) {
	adminID, id, ok := actor(c)
	if !ok {
		return
	}
	w, err := h.svc.CompletePayout(c.Request.Context(), id, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
