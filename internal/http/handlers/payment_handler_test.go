package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

type stubSettler struct {
	snap *models.DonationSnapshot
	err  error
	got  gateway.Notification
}

func (s *stubSettler) Settle(_ context.Context, n gateway.Notification) (*models.DonationSnapshot, error) {
	s.got = n
	return s.snap, s.err
}

const callbackBody = `{"order_id":"RUANG-1","status_code":"200","gross_amount":"50000.00","signature_key":"abc","transaction_status":"settlement","transaction_id":"tx-1","payment_type":"bank_transfer"}`

func postCallback(t *testing.T, settler Settler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/payments/callback", NewPaymentHandler(settler).Callback)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestPaymentHandler_Callback_Success(t *testing.T) {
	id := uuid.New()
	settler := &stubSettler{snap: &models.DonationSnapshot{DonationID: id, PaymentStatus: valueobject.PaymentStatusSuccess}}

	w, resp := postCallback(t, settler, callbackBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, id.String(), data["donation_id"])
	assert.Equal(t, "success", data["payment_status"])
	assert.Equal(t, "RUANG-1", settler.got.OrderID)
	assert.Equal(t, "abc", settler.got.SignatureKey)
}

func TestPaymentHandler_Callback_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad signature", apperror.ErrInvalidSignature, http.StatusUnauthorized},
		{"unknown order", apperror.ErrDonationNotFound, http.StatusNotFound},
		{"unknown status", apperror.New(apperror.ErrCodeInvalidTransition, "x"), http.StatusBadRequest},
		{"master short", apperror.ErrInsufficientFunds, http.StatusInternalServerError},
		{"storage", errors.New("pq: deadlock detected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := postCallback(t, &stubSettler{err: tt.err}, callbackBody)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, false, resp["success"])
			assert.NotContains(t, w.Body.String(), "pq:")
			assert.NotContains(t, w.Body.String(), "мастер")
		})
	}
}

func TestPaymentHandler_Callback_MalformedBody(t *testing.T) {
	settler := &stubSettler{}

	w, resp := postCallback(t, settler, `{"order_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "failed to process callback", resp["message"])

	w, _ = postCallback(t, settler, `{"transaction_status":"settlement"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, settler.got.TransactionStatus)
}
