package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

func TestTargetFromGateway(t *testing.T) {
	tests := []struct {
		status string
		fraud  string
		want   valueobject.PaymentStatus
	}{
		{gateway.StatusCapture, gateway.FraudAccept, valueobject.PaymentStatusSuccess},
		{gateway.StatusCapture, "", valueobject.PaymentStatusSuccess},
		{gateway.StatusCapture, gateway.FraudChallenge, valueobject.PaymentStatusPending},
		{gateway.StatusCapture, gateway.FraudDeny, valueobject.PaymentStatusFailed},
		{gateway.StatusSettlement, "", valueobject.PaymentStatusSuccess},
		{gateway.StatusPending, "", valueobject.PaymentStatusPending},
		{gateway.StatusDeny, "", valueobject.PaymentStatusFailed},
		{gateway.StatusExpire, "", valueobject.PaymentStatusFailed},
		{gateway.StatusCancel, "", valueobject.PaymentStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			got, err := TargetFromGateway(tt.status, tt.fraud)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetFromGateway_Unknown(t *testing.T) {
	_, err := TargetFromGateway("refund", "")
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = TargetFromGateway(gateway.StatusCapture, "review")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestResolveTransition(t *testing.T) {
	tests := []struct {
		name    string
		current valueobject.PaymentStatus
		status  string
		target  valueobject.PaymentStatus
		effect  Effect
	}{
		{"pending to success", valueobject.PaymentStatusPending, gateway.StatusSettlement, valueobject.PaymentStatusSuccess, EffectCredit},
		{"pending stays", valueobject.PaymentStatusPending, gateway.StatusPending, valueobject.PaymentStatusPending, EffectNone},
		{"pending to failed", valueobject.PaymentStatusPending, gateway.StatusExpire, valueobject.PaymentStatusFailed, EffectNone},
		{"success duplicate", valueobject.PaymentStatusSuccess, gateway.StatusSettlement, valueobject.PaymentStatusSuccess, EffectNone},
		{"success late pending", valueobject.PaymentStatusSuccess, gateway.StatusPending, valueobject.PaymentStatusSuccess, EffectNone},
		{"success reversed", valueobject.PaymentStatusSuccess, gateway.StatusCancel, valueobject.PaymentStatusFailed, EffectReverse},
		{"failed terminal", valueobject.PaymentStatusFailed, gateway.StatusSettlement, valueobject.PaymentStatusFailed, EffectNone},
		{"expired terminal", valueobject.PaymentStatusExpired, gateway.StatusSettlement, valueobject.PaymentStatusExpired, EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ResolveTransition(tt.current, tt.status, "")
			require.NoError(t, err)
			assert.Equal(t, tt.target, tr.Target)
			assert.Equal(t, tt.effect, tr.Effect)
			assert.Equal(t, tt.current, tr.From)
		})
	}
}

func TestResolveTransition_TerminalKeepsRequested(t *testing.T) {
	tr, err := ResolveTransition(valueobject.PaymentStatusFailed, gateway.StatusSettlement, "")
	require.NoError(t, err)
	assert.False(t, tr.Changed())
	assert.Equal(t, valueobject.PaymentStatusSuccess, tr.Requested)
}

func TestResolveTransition_UnknownCurrent(t *testing.T) {
	_, err := ResolveTransition(valueobject.PaymentStatus("refunded"), gateway.StatusSettlement, "")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestResolveOverride(t *testing.T) {
	tr, err := ResolveOverride(valueobject.PaymentStatusFailed, valueobject.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, EffectCredit, tr.Effect)

	tr, err = ResolveOverride(valueobject.PaymentStatusSuccess, valueobject.PaymentStatusExpired)
	require.NoError(t, err)
	assert.Equal(t, EffectReverse, tr.Effect)

	_, err = ResolveOverride(valueobject.PaymentStatusPending, valueobject.PaymentStatus("x"))
	assert.Error(t, err)
}

func TestEffect_String(t *testing.T) {
	assert.Equal(t, "credit", EffectCredit.String())
	assert.Equal(t, "reverse", EffectReverse.String())
	assert.Equal(t, "none", EffectNone.String())
}
