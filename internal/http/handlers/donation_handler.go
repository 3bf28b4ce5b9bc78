package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crowdfunding-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/service"
)

// DonationUseCase операции с донатами, нужные HTTP слою.
type DonationUseCase interface {
	CreateDonation(ctx context.Context, in service.CreateDonationInput) (*service.DonationCheckout, error)
	GetDonation(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Donation, error)
	ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Donation, error)
	ListSupporters(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.PublicDonation, error)
}

// StatusOverrider ручная смена статуса доната.
type StatusOverrider interface {
	OverrideStatus(ctx context.Context, donationID uuid.UUID, status string, adminID uuid.UUID) (*models.DonationSnapshot, error)
}

type DonationHandler struct {
	donations  DonationUseCase
	settlement StatusOverrider
}

func NewDonationHandler(donations DonationUseCase, settlement StatusOverrider) *DonationHandler {
	return &DonationHandler{donations: donations, settlement: settlement}
}

type createDonationRequest struct {
	CampaignID  uuid.UUID `json:"campaign_id" binding:"required"`
	Amount      string    `json:"amount" binding:"required"`
	DonorName   string    `json:"donor_name" binding:"max=100"`
	IsAnonymous bool      `json:"is_anonymous"`
	Message     string    `json:"message" binding:"max=500"`
}

// Create POST /api/donations
func (h *DonationHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req createDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	checkout, err := h.donations.CreateDonation(c.Request.Context(), service.CreateDonationInput{
		CampaignID:  req.CampaignID,
		UserID:      &userID,
		DonorName:   req.DonorName,
		IsAnonymous: req.IsAnonymous,
		Amount:      req.Amount,
		Message:     req.Message,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// ListMine GET /api/donations/my
func (h *DonationHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	list, err := h.donations.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get GET /api/donations/:id
func (h *DonationHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	d, err := h.donations.GetDonation(c.Request.Context(), id, &userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListSupporters GET /api/campaigns/:id/donations
func (h *DonationHandler) ListSupporters(c *gin.Context) {
	campaignID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	list, err := h.donations.ListSupporters(c.Request.Context(), campaignID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// OverrideStatus PUT /api/admin/donations/:id/status
func (h *DonationHandler) OverrideStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	snap, err := h.settlement.OverrideStatus(c.Request.Context(), id, req.Status, adminID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
