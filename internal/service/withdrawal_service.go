package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
	"github.com/ignatzorin/crowdfunding-backend/internal/validation"
)

// WithdrawalRepository хранилище заявок на вывод.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	SumReserved(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.WithdrawalRequest, error)
	Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, at time.Time) error
}

// UserNotifier отправка уведомления пользователю.
type UserNotifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data any) error
}

// CreateWithdrawalInput заявка организатора на вывод.
type CreateWithdrawalInput struct {
	CampaignID         uuid.UUID
	UserID             uuid.UUID
	Amount             string
	DestinationBank    string
	DestinationAccount string
	DestinationName    string
}

// WithdrawalService заявки на вывод и выплаты из мастер-счёта в кошельки.
type WithdrawalService struct {
	repo      WithdrawalRepository
	campaigns CampaignReader
	store     repository.LedgerStore
	notifier  UserNotifier
	now       func() time.Time
}

func NewWithdrawalService(repo WithdrawalRepository, campaigns CampaignReader, store repository.LedgerStore, notifier UserNotifier) *WithdrawalService {
	return &WithdrawalService{
		repo:      repo,
		campaigns: campaigns,
		store:     store,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Create принимает заявку, если сумма не превышает собранное за вычетом уже заявленного.
func (s *WithdrawalService) Create(ctx context.Context, in CreateWithdrawalInput) (*models.WithdrawalRequest, error) {
	amount, err := valueobject.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	c, err := s.campaigns.GetByID(ctx, in.CampaignID)
	if err != nil {
		return nil, toAppError(err)
	}
	if c.UserID != in.UserID {
		return nil, apperror.ErrForbidden
	}
	switch c.Status {
	case valueobject.CampaignStatusApproved, valueobject.CampaignStatusEditPending, valueobject.CampaignStatusClosed:
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "вывод доступен только для одобренных кампаний")
	}

	reserved, err := s.repo.SumReserved(ctx, c.ID)
	if err != nil {
		return nil, toAppError(err)
	}
	if amount.GreaterThan(c.CollectedAmount.Sub(reserved)) {
		return nil, apperror.ErrInsufficientFunds
	}

	w := &models.WithdrawalRequest{
		CampaignID:         c.ID,
		UserID:             in.UserID,
		RequestedAmount:    amount,
		DestinationBank:    nonEmpty(in.DestinationBank),
		DestinationAccount: nonEmpty(in.DestinationAccount),
		DestinationName:    nonEmpty(in.DestinationName),
		Status:             models.WithdrawalStatusPending,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, toAppError(err)
	}
	return w, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	w, err := s.repo.GetByID(ctx, id)
	return w, toAppError(err)
}

// ListByCampaign заявки кампании, доступны только её владельцу.
func (s *WithdrawalService) ListByCampaign(ctx context.Context, campaignID, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, toAppError(err)
	}
	if c.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	list, err := s.repo.ListByCampaign(ctx, campaignID)
	return list, toAppError(err)
}

// Approve одобряет заявку и переводит сумму из мастер-счёта в кошелёк владельца в одной транзакции.
func (s *WithdrawalService) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
	var approved models.WithdrawalRequest
	err := s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.LedgerTx) error {
		w, err := tx.LockWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return repository.ErrWithdrawalNotPending
		}

		if _, err := payoutInTx(ctx, tx, w.UserID, &w.ID, w.RequestedAmount, "withdrawal:"+w.ID.String()); err != nil {
			return err
		}

		now := s.now()
		payoutID := "PAYOUT-" + w.ID.String()
		processing := models.PayoutStatusProcessing
		w.Status = models.WithdrawalStatusApproved
		w.ReviewedBy = &adminID
		w.ReviewedAt = &now
		w.PayoutID = &payoutID
		w.PayoutStatus = &processing
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}
		approved = *w
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}

	logger.Component("withdrawal").WithFields(logrus.Fields{
		"withdrawal_id": id,
		"admin_id":      adminID,
		"amount":        approved.RequestedAmount.String(),
	}).Info("заявка на вывод одобрена")
	s.notify(ctx, approved.UserID, models.NotificationWithdrawalApproved, &approved)
	return &approved, nil
}

// Reject отклоняет заявку без движения средств.
func (s *WithdrawalService) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, id, adminID, reason, s.now()); err != nil {
		return nil, toAppError(err)
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	s.notify(ctx, w.UserID, models.NotificationWithdrawalRejected, w)
	return w, nil
}

// CompletePayout фиксирует, что деньги ушли из кошелька на счёт получателя.
func (s *WithdrawalService) CompletePayout(ctx context.Context, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
	var done models.WithdrawalRequest
	err := s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.LedgerTx) error {
		w, err := tx.LockWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusApproved || w.PayoutStatus == nil || *w.PayoutStatus != models.PayoutStatusProcessing {
			return apperror.New(apperror.ErrCodeInvalidTransition, "выплата не находится в обработке")
		}

		inserted, err := tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
			Account:        models.LedgerAccountWallet,
			UserID:         &w.UserID,
			WithdrawalID:   &w.ID,
			Kind:           models.LedgerKindWalletDebit,
			Amount:         w.RequestedAmount.Neg(),
			IdempotencyKey: "withdrawal:" + w.ID.String() + ":payout",
		})
		if err != nil {
			return err
		}
		if inserted {
			if err := tx.DebitWallet(ctx, w.UserID, w.RequestedAmount); err != nil {
				return err
			}
			metrics.LedgerEffectsTotal.WithLabelValues(models.LedgerKindWalletDebit).Inc()
		}

		completed := models.PayoutStatusCompleted
		w.PayoutStatus = &completed
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}
		done = *w
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}

	logger.Component("withdrawal").WithFields(logrus.Fields{"withdrawal_id": id, "admin_id": adminID}).Info("выплата завершена")
	return &done, nil
}

func (s *WithdrawalService) notify(ctx context.Context, userID uuid.UUID, event string, w *models.WithdrawalRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), userID, event, w); err != nil {
		logger.Component("withdrawal").WithError(err).WithField("withdrawal_id", w.ID).Warn("не удалось отправить уведомление")
	}
}

func nonEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
