package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

const (
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
)

// WithdrawalRequest заявка организатора на вывод собранных средств.
type WithdrawalRequest struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	CampaignID         uuid.UUID       `db:"campaign_id" json:"campaign_id"`
	UserID             uuid.UUID       `db:"user_id" json:"user_id"`
	RequestedAmount    decimal.Decimal `db:"requested_amount" json:"requested_amount"`
	DestinationBank    *string         `db:"destination_bank" json:"destination_bank,omitempty"`
	DestinationAccount *string         `db:"destination_account" json:"destination_account,omitempty"`
	DestinationName    *string         `db:"destination_name" json:"destination_name,omitempty"`
	Reason             *string         `db:"reason" json:"reason,omitempty"`
	Status             string          `db:"status" json:"status"`
	ReviewedBy         *uuid.UUID      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	PayoutID           *string         `db:"payout_id" json:"payout_id,omitempty"`
	PayoutStatus       *string         `db:"payout_status" json:"payout_status,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
