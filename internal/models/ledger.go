package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MasterAccountID фиксированный идентификатор единственной строки мастер-счёта.
const MasterAccountID = 1

// Счета журнала.
const (
	LedgerAccountMaster = "master"
	LedgerAccountWallet = "wallet"
)

// Типы проводок.
const (
	LedgerKindDonationCredit   = "donation_credit"
	LedgerKindDonationReversal = "donation_reversal"
	LedgerKindPayoutDebit      = "payout_debit"
	LedgerKindPayoutCredit     = "payout_credit"
	LedgerKindWalletDebit      = "wallet_debit"
)

// Wallet баланс пользователя, доступный к выводу.
type Wallet struct {
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalIncome    decimal.Decimal `db:"total_income" json:"total_income"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn" json:"total_withdrawn"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// MasterAccount эскроу платформы с собранными средствами доноров.
type MasterAccount struct {
	ID        int             `db:"id" json:"id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// LedgerEntry проводка, привязанная к донату или выплате.
type LedgerEntry struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Account        string          `db:"account" json:"account"`
	UserID         *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	DonationID     *uuid.UUID      `db:"donation_id" json:"donation_id,omitempty"`
	WithdrawalID   *uuid.UUID      `db:"withdrawal_id" json:"withdrawal_id,omitempty"`
	Kind           string          `db:"kind" json:"kind"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
