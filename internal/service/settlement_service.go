package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/events"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
)

// SignatureVerifier проверяет подлинность уведомления шлюза.
type SignatureVerifier interface {
	Verify(n gateway.Notification) bool
}

// EventPublisher доставляет события после коммита.
type EventPublisher interface {
	Publish(ctx context.Context, e events.DonationSettled)
}

// SettlementService применяет уведомления шлюза и ручные решения администратора к донатам.
type SettlementService struct {
	store     repository.LedgerStore
	verifier  SignatureVerifier
	publisher EventPublisher
	now       func() time.Time
}

func NewSettlementService(store repository.LedgerStore, verifier SignatureVerifier, publisher EventPublisher) *SettlementService {
	return &SettlementService{
		store:     store,
		verifier:  verifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// settlement то, что единица работы узнала о донате, для ответа и события.
type settlement struct {
	donation   models.Donation
	campaign   *models.Campaign
	transition Transition
}

// Settle обрабатывает уведомление шлюза. Повтор того же уведомления ничего не меняет.
func (s *SettlementService) Settle(ctx context.Context, n gateway.Notification) (*models.DonationSnapshot, error) {
	log := logger.Component("settlement").WithFields(logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
		"fraud_status":       n.FraudStatus,
	})

	if !s.verifier.Verify(n) {
		metrics.SettlementsTotal.WithLabelValues(events.SourceGateway, metrics.OutcomeBadSignature).Inc()
		logger.Security("settlement").WithField("order_id", n.OrderID).Warn("подпись уведомления не совпала")
		return nil, apperror.ErrInvalidSignature
	}

	timer := prometheus.NewTimer(metrics.SettlementDuration.WithLabelValues(events.SourceGateway))
	defer timer.ObserveDuration()

	var res settlement
	err := s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.LedgerTx) error {
		d, err := tx.LockDonationByOrderID(ctx, n.OrderID)
		if err != nil {
			return err
		}

		t, err := ResolveTransition(d.PaymentStatus, n.TransactionStatus, n.FraudStatus)
		if err != nil {
			return err
		}

		res = settlement{donation: *d, transition: t}
		upd := repository.DonationPaymentUpdate{
			DonationID:            d.ID,
			Status:                t.Target,
			ExternalTransactionID: optional(n.TransactionID),
			PaymentMethod:         optional(n.PaymentType),
		}
		if !t.Changed() {
			if t.From.IsTerminal() {
				return nil
			}
			// статус прежний, но данные транзакции шлюза сохраняем
			upd.SettlementVersion = d.SettlementVersion
			return tx.UpdateDonationPayment(ctx, upd)
		}

		res.campaign, err = s.apply(ctx, tx, d, t, upd)
		return err
	})
	if err != nil {
		return nil, s.fail(log, events.SourceGateway, err)
	}

	t := res.transition
	if !t.Changed() {
		metrics.SettlementsTotal.WithLabelValues(events.SourceGateway, metrics.OutcomeNoop).Inc()
		if t.From.IsTerminal() && t.Requested != t.From {
			log.WithField("current_status", t.From).Warn("уведомление для закрытого доната проигнорировано, требуется проверка оператором")
		} else {
			log.WithField("current_status", t.From).Debug("повторное уведомление, статус не изменился")
		}
		return &models.DonationSnapshot{DonationID: res.donation.ID, PaymentStatus: t.Target}, nil
	}

	metrics.SettlementsTotal.WithLabelValues(events.SourceGateway, metrics.OutcomeApplied).Inc()
	log.WithFields(logrus.Fields{
		"donation_id": res.donation.ID,
		"from":        t.From,
		"to":          t.Target,
		"effect":      t.Effect.String(),
	}).Info("статус доната обновлён")

	s.publish(ctx, res, events.SourceGateway)
	return &models.DonationSnapshot{DonationID: res.donation.ID, PaymentStatus: t.Target}, nil
}

// OverrideStatus ручная смена статуса администратором с пересчётом собранной суммы кампании.
func (s *SettlementService) OverrideStatus(ctx context.Context, donationID uuid.UUID, status string, adminID uuid.UUID) (*models.DonationSnapshot, error) {
	log := logger.Component("settlement").WithFields(logrus.Fields{
		"donation_id": donationID,
		"admin_id":    adminID,
		"status":      status,
	})

	target, err := valueobject.NewPaymentStatus(status)
	if err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(metrics.SettlementDuration.WithLabelValues(events.SourceAdmin))
	defer timer.ObserveDuration()

	var res settlement
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.LedgerTx) error {
		d, err := tx.LockDonationByID(ctx, donationID)
		if err != nil {
			return err
		}

		t, err := ResolveOverride(d.PaymentStatus, target)
		if err != nil {
			return err
		}

		res = settlement{donation: *d, transition: t}
		if !t.Changed() {
			return nil
		}

		res.campaign, err = s.apply(ctx, tx, d, t, repository.DonationPaymentUpdate{DonationID: d.ID, Status: t.Target})
		if err != nil {
			return err
		}

		collected, err := tx.RecomputeCollected(ctx, d.CampaignID)
		if err != nil {
			return err
		}
		if !collected.Equal(res.campaign.CollectedAmount) {
			metrics.ReconcileDriftTotal.Inc()
			log.WithFields(logrus.Fields{
				"campaign_id": d.CampaignID,
				"expected":    res.campaign.CollectedAmount.String(),
				"recomputed":  collected.String(),
			}).Warn("собранная сумма кампании расходилась с суммой донатов")
		}
		res.campaign.CollectedAmount = collected
		return nil
	})
	if err != nil {
		return nil, s.fail(log, events.SourceAdmin, err)
	}

	t := res.transition
	if t.Changed() {
		metrics.SettlementsTotal.WithLabelValues(events.SourceAdmin, metrics.OutcomeApplied).Inc()
		log.WithFields(logrus.Fields{"from": t.From, "effect": t.Effect.String()}).Info("статус доната изменён администратором")
		s.publish(ctx, res, events.SourceAdmin)
	} else {
		metrics.SettlementsTotal.WithLabelValues(events.SourceAdmin, metrics.OutcomeNoop).Inc()
	}

	return &models.DonationSnapshot{DonationID: res.donation.ID, PaymentStatus: t.Target}, nil
}

// apply сохраняет новый статус и проводит эффект в рамках текущей транзакции.
// Возвращает кампанию в состоянии после эффекта.
func (s *SettlementService) apply(ctx context.Context, tx repository.LedgerTx, d *models.Donation, t Transition, upd repository.DonationPaymentUpdate) (*models.Campaign, error) {
	upd.SettlementVersion = d.SettlementVersion
	if t.Effect != EffectNone {
		upd.SettlementVersion++
	}
	if err := tx.UpdateDonationPayment(ctx, upd); err != nil {
		return nil, err
	}

	if err := applyEffect(ctx, tx, d, t, upd.SettlementVersion); err != nil {
		return nil, err
	}

	return tx.GetCampaign(ctx, d.CampaignID)
}

func applyEffect(ctx context.Context, tx repository.LedgerTx, d *models.Donation, t Transition, version int) error {
	if t.Effect == EffectNone {
		return nil
	}

	entry := &models.LedgerEntry{
		Account:        models.LedgerAccountMaster,
		DonationID:     &d.ID,
		IdempotencyKey: fmt.Sprintf("%s:%s:v%d", d.ExternalOrderID, t.Target, version),
	}
	delta := d.Amount
	if t.Effect == EffectReverse {
		entry.Kind = models.LedgerKindDonationReversal
		delta = d.Amount.Neg()
	} else {
		entry.Kind = models.LedgerKindDonationCredit
	}
	entry.Amount = delta

	inserted, err := tx.InsertLedgerEntry(ctx, entry)
	if err != nil {
		return err
	}
	if !inserted {
		// проводка с этим ключом уже есть, балансы не трогаем
		return nil
	}

	if t.Effect == EffectReverse {
		if err := tx.DebitMaster(ctx, d.Amount); err != nil {
			return err
		}
	} else if err := tx.CreditMaster(ctx, d.Amount); err != nil {
		return err
	}
	if err := tx.IncrementCollected(ctx, d.CampaignID, delta); err != nil {
		return err
	}

	metrics.LedgerEffectsTotal.WithLabelValues(entry.Kind).Inc()
	return nil
}

func (s *SettlementService) publish(ctx context.Context, res settlement, source string) {
	if s.publisher == nil || res.campaign == nil {
		return
	}
	d := res.donation
	s.publisher.Publish(ctx, events.DonationSettled{
		EventType:       events.EventDonationSettled,
		DonationID:      d.ID,
		OrderID:         d.ExternalOrderID,
		CampaignID:      d.CampaignID,
		CampaignTitle:   res.campaign.Title,
		CampaignOwnerID: res.campaign.UserID,
		DonorUserID:     d.UserID,
		DonorName:       d.DisplayName(),
		Amount:          d.Amount,
		PreviousStatus:  res.transition.From,
		Status:          res.transition.Target,
		Source:          source,
		OccurredAt:      s.now(),
	})
}

func (s *SettlementService) fail(log *logrus.Entry, source string, err error) error {
	appErr := toAppError(err)
	outcome := metrics.OutcomeError
	switch {
	case apperror.IsNotFound(appErr):
		outcome = metrics.OutcomeNotFound
		log.Warn("донат для уведомления не найден")
	case apperror.IsInvalidTransition(appErr):
		outcome = metrics.OutcomeInvalidTransition
		log.WithError(appErr).Warn("недопустимый переход статуса")
	case apperror.IsInsufficientFunds(appErr):
		outcome = metrics.OutcomeInsufficientFunds
		log.WithError(appErr).Error("недостаточно средств на мастер-счёте для отмены доната")
	case apperror.IsValidation(appErr):
		outcome = metrics.OutcomeInvalidTransition
	default:
		log.WithError(err).Error("не удалось обработать расчёт по донату")
	}
	metrics.SettlementsTotal.WithLabelValues(source, outcome).Inc()
	return appErr
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
