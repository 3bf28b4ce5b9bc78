package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository/common"
)

var (
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	// ErrWithdrawalNotPending заявка уже рассмотрена.
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
)

type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO withdrawal_requests (campaign_id, user_id, requested_amount, destination_bank, destination_account, destination_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, w.CampaignID, w.UserID, w.RequestedAmount, w.DestinationBank, w.DestinationAccount, w.DestinationName, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("withdrawal repository: create %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return common.GetByID[models.WithdrawalRequest](ctx, r.db, "withdrawal_requests", id, ErrWithdrawalNotFound)
}

// SumReserved сумма заявок кампании, которые ещё не отклонены.
func (r *WithdrawalRepository) SumReserved(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(requested_amount), 0) FROM withdrawal_requests
		WHERE campaign_id = $1 AND status IN ('pending', 'approved')
	`, campaignID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("withdrawal repository: sum reserved %w", err)
	}
	return total, nil
}

func (r *WithdrawalRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.WithdrawalRequest, error) {
	var withdrawals []models.WithdrawalRequest
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawal_requests WHERE campaign_id = $1 ORDER BY created_at DESC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: list %w", err)
	}
	return withdrawals, nil
}

// Reject отклоняет заявку, если она ещё в ожидании.
func (r *WithdrawalRepository) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE withdrawal_requests SET status = 'rejected', reviewed_by = $2, reviewed_at = $3, reason = $4
		WHERE id = $1 AND status = 'pending'
	`, id, reviewerID, at, reason)
	if err != nil {
		return fmt.Errorf("withdrawal repository: reject %w", err)
	}
	return common.RequireAffected(result, ErrWithdrawalNotPending)
}
