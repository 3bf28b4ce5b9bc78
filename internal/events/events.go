package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/goroutine"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
)

const EventDonationSettled = "donation.settled"

// Источники смены статуса доната.
const (
	SourceGateway = "gateway"
	SourceAdmin   = "admin"
)

// DonationSettled публикуется после коммита, если статус доната изменился.
type DonationSettled struct {
	EventType       string                    `json:"event_type"`
	DonationID      uuid.UUID                 `json:"donation_id"`
	OrderID         string                    `json:"order_id"`
	CampaignID      uuid.UUID                 `json:"campaign_id"`
	CampaignTitle   string                    `json:"campaign_title"`
	CampaignOwnerID uuid.UUID                 `json:"campaign_owner_id"`
	DonorUserID     *uuid.UUID                `json:"donor_user_id,omitempty"`
	DonorName       string                    `json:"donor_name"`
	Amount          decimal.Decimal           `json:"amount"`
	PreviousStatus  valueobject.PaymentStatus `json:"previous_status"`
	Status          valueobject.PaymentStatus `json:"status"`
	Source          string                    `json:"source"`
	OccurredAt      time.Time                 `json:"occurred_at"`
}

// Listener получает события о донатах.
type Listener interface {
	HandleDonationSettled(ctx context.Context, e DonationSettled) error
}

// ListenerFunc позволяет использовать функцию как Listener.
type ListenerFunc func(ctx context.Context, e DonationSettled) error

func (f ListenerFunc) HandleDonationSettled(ctx context.Context, e DonationSettled) error {
	return f(ctx, e)
}

type subscription struct {
	name     string
	listener Listener
}

// Dispatcher рассылает события подписчикам. Ошибки подписчиков только логируются.
type Dispatcher struct {
	subs  []subscription
	async bool
}

// NewDispatcher создаёт диспетчер; при async рассылка идёт в отдельной горутине.
func NewDispatcher(async bool) *Dispatcher {
	return &Dispatcher{async: async}
}

// Subscribe добавляет подписчика. Вызывать до начала обработки запросов.
func (d *Dispatcher) Subscribe(name string, l Listener) {
	d.subs = append(d.subs, subscription{name: name, listener: l})
}

// Publish доставляет событие всем подписчикам.
func (d *Dispatcher) Publish(ctx context.Context, e DonationSettled) {
	if e.EventType == "" {
		e.EventType = EventDonationSettled
	}
	ctx = context.WithoutCancel(ctx)

	if d.async {
		goroutine.SafeGo("events-dispatch", func() { d.deliver(ctx, e) })
		return
	}
	d.deliver(ctx, e)
}

func (d *Dispatcher) deliver(ctx context.Context, e DonationSettled) {
	for _, sub := range d.subs {
		if err := sub.listener.HandleDonationSettled(ctx, e); err != nil {
			metrics.EventListenerErrors.WithLabelValues(sub.name).Inc()
			logger.Component("events").WithError(err).WithFields(logrus.Fields{
				"listener":    sub.name,
				"donation_id": e.DonationID,
				"status":      e.Status,
			}).Error("подписчик не обработал событие")
		}
	}
}
