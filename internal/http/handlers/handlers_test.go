package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandlers_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/wallet", NewWalletHandler(nil).Wallet)
	r.GET("/wallet/ledger", NewWalletHandler(nil).Ledger)
	r.POST("/campaigns/:id/withdrawals", NewWithdrawalHandler(nil).Create)
	r.POST("/campaigns/:id/changes", NewCampaignHandler(nil).SubmitChanges)
	r.GET("/notifications", NewNotificationHandler(nil).ListNotifications)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/wallet"},
		{http.MethodGet, "/wallet/ledger"},
		{http.MethodPost, "/campaigns/00000000-0000-0000-0000-000000000001/withdrawals"},
		{http.MethodPost, "/campaigns/00000000-0000-0000-0000-000000000001/changes"},
		{http.MethodGet, "/notifications"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestWSHandler_RequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", NewWSHandler(nil, nil, nil).Handle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	r := gin.New()
	r.GET("/ok", NewHealthHandler(map[string]HealthCheck{"database": ok}).Health)
	r.GET("/down", NewHealthHandler(map[string]HealthCheck{"database": ok, "redis": down}).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
