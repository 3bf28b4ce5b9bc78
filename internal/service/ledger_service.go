package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
)

// LedgerAccounts чтение и создание счетов вне единицы работы.
type LedgerAccounts interface {
	EnsureMasterAccount(ctx context.Context) (*models.MasterAccount, error)
	GetMasterAccount(ctx context.Context) (*models.MasterAccount, error)
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
}

// LedgerService операции над мастер-счётом и кошельками.
type LedgerService struct {
	accounts LedgerAccounts
}

func NewLedgerService(accounts LedgerAccounts) *LedgerService {
	return &LedgerService{accounts: accounts}
}

// EnsureMasterAccount создаёт мастер-счёт при первом запуске. Безопасно вызывать повторно.
func (s *LedgerService) EnsureMasterAccount(ctx context.Context) (*models.MasterAccount, error) {
	acc, err := s.accounts.EnsureMasterAccount(ctx)
	if err != nil {
		return nil, toAppError(err)
	}
	logger.Component("ledger").WithField("balance", acc.Balance.String()).Info("мастер-счёт готов")
	return acc, nil
}

func (s *LedgerService) MasterAccount(ctx context.Context) (*models.MasterAccount, error) {
	acc, err := s.accounts.GetMasterAccount(ctx)
	return acc, toAppError(err)
}

func (s *LedgerService) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	w, err := s.accounts.EnsureWallet(ctx, userID)
	return w, toAppError(err)
}

func (s *LedgerService) Wallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	w, err := s.accounts.GetWallet(ctx, userID)
	return w, toAppError(err)
}

// Entries история проводок по кошельку пользователя.
func (s *LedgerService) Entries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = page(limit, offset)
	entries, err := s.accounts.ListEntriesByUser(ctx, userID, limit, offset)
	return entries, toAppError(err)
}

// payoutInTx списывает мастер-счёт и пополняет кошелёк в транзакции вызывающего.
// false, если выплата с этим ключом уже проведена.
func payoutInTx(ctx context.Context, tx repository.LedgerTx, userID uuid.UUID, withdrawalID *uuid.UUID, amount decimal.Decimal, key string) (bool, error) {
	inserted, err := tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
		Account:        models.LedgerAccountMaster,
		WithdrawalID:   withdrawalID,
		Kind:           models.LedgerKindPayoutDebit,
		Amount:         amount.Neg(),
		IdempotencyKey: key + ":master",
	})
	if err != nil || !inserted {
		return false, err
	}

	if err := tx.DebitMaster(ctx, amount); err != nil {
		logger.Component("ledger").WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  amount.String(),
		}).WithError(err).Warn("выплата в кошелёк отклонена")
		return false, err
	}
	if err := tx.CreditWallet(ctx, userID, amount); err != nil {
		return false, err
	}
	if _, err := tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
		Account:        models.LedgerAccountWallet,
		UserID:         &userID,
		WithdrawalID:   withdrawalID,
		Kind:           models.LedgerKindPayoutCredit,
		Amount:         amount,
		IdempotencyKey: key + ":wallet",
	}); err != nil {
		return false, err
	}

	metrics.LedgerEffectsTotal.WithLabelValues(models.LedgerKindPayoutCredit).Inc()
	return true, nil
}
