package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
)

// AnonymousDonorName отображается вместо имени анонимного донора.
const AnonymousDonorName = "Anonymous"

// Donation представляет одну попытку пожертвования.
type Donation struct {
	ID                    uuid.UUID                 `db:"id" json:"id"`
	CampaignID            uuid.UUID                 `db:"campaign_id" json:"campaign_id"`
	UserID                *uuid.UUID                `db:"user_id" json:"user_id,omitempty"`
	DonorName             string                    `db:"donor_name" json:"donor_name"`
	IsAnonymous           bool                      `db:"is_anonymous" json:"is_anonymous"`
	Amount                decimal.Decimal           `db:"amount" json:"amount"`
	Message               *string                   `db:"message" json:"message,omitempty"`
	PaymentMethod         *string                   `db:"payment_method" json:"payment_method,omitempty"`
	ExternalOrderID       string                    `db:"external_order_id" json:"order_id"`
	ExternalTransactionID *string                   `db:"external_transaction_id" json:"transaction_id,omitempty"`
	PaymentStatus         valueobject.PaymentStatus `db:"payment_status" json:"payment_status"`
	TransactionRef        *string                   `db:"transaction_ref" json:"transaction_ref,omitempty"`
	SettlementVersion     int                       `db:"settlement_version" json:"-"`
	CreatedAt             time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time                 `db:"updated_at" json:"updated_at"`
}

// DisplayName возвращает имя для публичного показа.
func (d *Donation) DisplayName() string {
	if d.IsAnonymous || d.DonorName == "" {
		return AnonymousDonorName
	}
	return d.DonorName
}

// IsSuccess сообщает, оплачен ли донат.
func (d *Donation) IsSuccess() bool {
	return d.PaymentStatus == valueobject.PaymentStatusSuccess
}

// DonationSnapshot результат обработки уведомления шлюза.
type DonationSnapshot struct {
	DonationID    uuid.UUID                 `json:"donation_id"`
	PaymentStatus valueobject.PaymentStatus `json:"payment_status"`
}

// PublicDonation донат в публичном списке сторонников кампании.
type PublicDonation struct {
	ID        uuid.UUID       `json:"id"`
	DonorName string          `json:"donor_name"`
	Amount    decimal.Decimal `json:"amount"`
	Message   *string         `json:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToPublic скрывает персональные данные донора.
func (d *Donation) ToPublic() PublicDonation {
	return PublicDonation{
		ID:        d.ID,
		DonorName: d.DisplayName(),
		Amount:    d.Amount,
		Message:   d.Message,
		CreatedAt: d.CreatedAt,
	}
}
