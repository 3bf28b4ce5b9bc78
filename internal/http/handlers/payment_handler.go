package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

// Settler применяет уведомление шлюза к донату.
type Settler interface {
	Settle(ctx context.Context, n gateway.Notification) (*models.DonationSnapshot, error)
}

// PaymentHandler принимает уведомления платёжного шлюза.
type PaymentHandler struct {
	settlement Settler
}

func NewPaymentHandler(settlement Settler) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

type callbackResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message,omitempty"`
	Data    *models.DonationSnapshot `json:"data,omitempty"`
}

// Callback обрабатывает POST /api/payments/callback.
// Клиенту не отдаются детали ошибки, только код ответа.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var n gateway.Notification
	if err := c.ShouldBindJSON(&n); err != nil || n.OrderID == "" {
		c.JSON(http.StatusBadRequest, callbackResponse{Message: "failed to process callback"})
		return
	}

	snap, err := h.settlement.Settle(c.Request.Context(), n)
	if err != nil {
		c.JSON(callbackStatus(err), callbackResponse{Message: callbackMessage(err)})
		return
	}

	c.JSON(http.StatusOK, callbackResponse{Success: true, Data: snap})
}

func callbackStatus(err error) int {
	switch {
	case apperror.IsUnauthorized(err):
		return http.StatusUnauthorized
	case apperror.IsNotFound(err):
		return http.StatusNotFound
	case apperror.IsValidation(err), apperror.IsInvalidTransition(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func callbackMessage(err error) string {
	if apperror.IsUnauthorized(err) {
		return "invalid signature"
	}
	return "failed to process callback"
}
