package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository/common"
)

var ErrDonationNotFound = errors.New("donation not found")

// DonationRepository отвечает за хранение донатов.
type DonationRepository struct {
	db *sqlx.DB
}

func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create сохраняет новый донат в статусе pending.
func (r *DonationRepository) Create(ctx context.Context, d *models.Donation) error {
	query := `
		INSERT INTO donations (campaign_id, user_id, donor_name, is_anonymous, amount, message, external_order_id, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, settlement_version, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		d.CampaignID, d.UserID, d.DonorName, d.IsAnonymous, d.Amount, d.Message, d.ExternalOrderID, d.PaymentStatus,
	).Scan(&d.ID, &d.SettlementVersion, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("donation repository: create %w", err)
	}
	return nil
}

// DeletePending удаляет донат, который так и не дошёл до шлюза.
func (r *DonationRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE id = $1 AND payment_status = $2`, id, valueobject.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("donation repository: delete %w", err)
	}
	return common.RequireAffected(result, ErrDonationNotFound)
}

// SetTransactionRef сохраняет токен транзакции шлюза.
func (r *DonationRepository) SetTransactionRef(ctx context.Context, id uuid.UUID, ref string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE donations SET transaction_ref = $2, updated_at = NOW() WHERE id = $1`, id, ref)
	if err != nil {
		return fmt.Errorf("donation repository: set transaction ref %w", err)
	}
	return common.RequireAffected(result, ErrDonationNotFound)
}

func (r *DonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	return common.GetByID[models.Donation](ctx, r.db, "donations", id, ErrDonationNotFound)
}

// FindByExternalOrderID ищет донат по идентификатору заказа в шлюзе.
func (r *DonationRepository) FindByExternalOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	return common.GetByField[models.Donation](ctx, r.db, "donations", "external_order_id", orderID, ErrDonationNotFound)
}

// ListByUser возвращает донаты пользователя, новые сначала.
func (r *DonationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.SelectContext(ctx, &donations, `
		SELECT * FROM donations WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("donation repository: list by user %w", err)
	}
	return donations, nil
}

// ListSuccessfulByCampaign возвращает оплаченные донаты кампании.
func (r *DonationRepository) ListSuccessfulByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.SelectContext(ctx, &donations, `
		SELECT * FROM donations WHERE campaign_id = $1 AND payment_status = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, campaignID, valueobject.PaymentStatusSuccess, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("donation repository: list by campaign %w", err)
	}
	return donations, nil
}
