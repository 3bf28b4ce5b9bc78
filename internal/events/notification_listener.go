package events

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

// Notifier сохраняет уведомление пользователю и доставляет его онлайн.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data any) error
}

// NotificationListener уведомляет владельца кампании и донора об успешной оплате.
type NotificationListener struct {
	notifier Notifier
}

func NewNotificationListener(n Notifier) *NotificationListener {
	return &NotificationListener{notifier: n}
}

func (l *NotificationListener) HandleDonationSettled(ctx context.Context, e DonationSettled) error {
	if e.Status != valueobject.PaymentStatusSuccess || e.PreviousStatus == valueobject.PaymentStatusSuccess {
		return nil
	}

	data := map[string]any{
		"donation_id":    e.DonationID,
		"campaign_id":    e.CampaignID,
		"campaign_title": e.CampaignTitle,
		"donor_name":     e.DonorName,
		"amount":         e.Amount,
	}

	var errs []error
	if err := l.notifier.Notify(ctx, e.CampaignOwnerID, models.NotificationDonationReceived, data); err != nil {
		errs = append(errs, err)
	}
	if e.DonorUserID != nil && *e.DonorUserID != e.CampaignOwnerID {
		if err := l.notifier.Notify(ctx, *e.DonorUserID, models.NotificationDonationSuccess, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
