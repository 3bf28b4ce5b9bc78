package valueobject

import "github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"

// PaymentStatus статус оплаты доната.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// IsTerminal сообщает, закрыт ли донат для уведомлений шлюза.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusExpired
}

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус оплаты")
	}
	return s, nil
}

// CampaignStatus статус кампании.
type CampaignStatus string

const (
	CampaignStatusPending     CampaignStatus = "pending"
	CampaignStatusApproved    CampaignStatus = "approved"
	CampaignStatusRejected    CampaignStatus = "rejected"
	CampaignStatusEditPending CampaignStatus = "edit_pending"
	CampaignStatusClosed      CampaignStatus = "closed"
)

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusPending, CampaignStatusApproved, CampaignStatusRejected, CampaignStatusEditPending, CampaignStatusClosed:
		return true
	}
	return false
}

func (s CampaignStatus) CanTransitionTo(newStatus CampaignStatus) bool {
	transitions := map[CampaignStatus][]CampaignStatus{
		CampaignStatusPending:     {CampaignStatusApproved, CampaignStatusRejected},
		CampaignStatusApproved:    {CampaignStatusEditPending, CampaignStatusClosed},
		CampaignStatusEditPending: {CampaignStatusApproved, CampaignStatusClosed},
		CampaignStatusRejected:    {CampaignStatusApproved},
		CampaignStatusClosed:      {},
	}

	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// AcceptsDonations сообщает, можно ли жертвовать в кампанию с таким статусом.
func (s CampaignStatus) AcceptsDonations() bool {
	return s == CampaignStatusApproved || s == CampaignStatusEditPending
}
