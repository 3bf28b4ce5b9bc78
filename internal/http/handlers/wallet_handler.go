package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/crowdfunding-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crowdfunding-backend/internal/service"
)

// WalletHandler баланс кошелька, история проводок и мастер-счёт.
type WalletHandler struct {
	ledger *service.LedgerService
}

func NewWalletHandler(ledger *service.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// Wallet GET /api/wallet
func (h *WalletHandler) Wallet(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	w, err := h.ledger.EnsureWallet(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Ledger GET /api/wallet/ledger
func (h *WalletHandler) Ledger(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.ledger.Entries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// MasterAccount GET /api/admin/master-account
func (h *WalletHandler) MasterAccount(c *gin.Context) {
	acc, err := h.ledger.MasterAccount(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}
