package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository/common"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCampaignStateChanged кампания сменила статус между чтением и записью.
	ErrCampaignStateChanged = errors.New("campaign state changed")
)

// recomputeCollectedQuery пересчитывает собранную сумму одним оператором по оплаченным донатам.
const recomputeCollectedQuery = `
	UPDATE campaigns c
	SET collected_amount = (
		SELECT COALESCE(SUM(d.amount), 0) FROM donations d
		WHERE d.campaign_id = c.id AND d.payment_status = 'success'
	), updated_at = NOW()
	FROM campaigns prev
	WHERE c.id = $1 AND prev.id = c.id`

// CampaignRepository отвечает за кампании и заявки на верификацию.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return common.GetByID[models.Campaign](ctx, r.db, "campaigns", id, ErrCampaignNotFound)
}

// Approve переводит кампанию в approved, одобряет верификацию и заводит кошелёк владельца.
func (r *CampaignRepository) Approve(ctx context.Context, c *models.Campaign, reviewerID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := casStatus(ctx, tx, c.ID, c.Status, valueobject.CampaignStatusApproved); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_verification_requests (campaign_id, verification_status, reviewed_by, reviewed_at)
			VALUES ($1, 'approved', $2, NOW())
			ON CONFLICT (campaign_id) DO UPDATE
			SET verification_status = 'approved', reviewed_by = $2, reviewed_at = NOW()
		`, c.ID, reviewerID); err != nil {
			return fmt.Errorf("campaign repository: approve verification %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, balance, total_income, total_withdrawn)
			VALUES ($1, 0, 0, 0)
			ON CONFLICT (user_id) DO NOTHING
		`, c.UserID); err != nil {
			return fmt.Errorf("campaign repository: ensure wallet %w", err)
		}
		return nil
	})
}

// Reject отклоняет кампанию и записывает причину в заявку на верификацию.
func (r *CampaignRepository) Reject(ctx context.Context, c *models.Campaign, reviewerID uuid.UUID, reason string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := casStatus(ctx, tx, c.ID, c.Status, valueobject.CampaignStatusRejected); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_verification_requests (campaign_id, verification_status, reviewed_by, reviewed_at, notes)
			VALUES ($1, 'rejected', $2, NOW(), $3)
			ON CONFLICT (campaign_id) DO UPDATE
			SET verification_status = 'rejected', reviewed_by = $2, reviewed_at = NOW(), notes = $3
		`, c.ID, reviewerID, reason); err != nil {
			return fmt.Errorf("campaign repository: reject verification %w", err)
		}
		return nil
	})
}

func casStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to valueobject.CampaignStatus) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE campaigns SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("campaign repository: update status %w", err)
	}
	return common.RequireAffected(result, ErrCampaignStateChanged)
}

// CloseExpired закрывает активные кампании с прошедшим дедлайном.
func (r *CampaignRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'closed', pending_changes = NULL, updated_at = NOW()
		WHERE status IN ('approved', 'edit_pending') AND deadline < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("campaign repository: close expired %w", err)
	}
	return result.RowsAffected()
}

// StageChanges сохраняет предложенные правки и переводит кампанию в edit_pending.
func (r *CampaignRepository) StageChanges(ctx context.Context, c *models.Campaign, changes models.StagedChanges) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'edit_pending', pending_changes = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, c.ID, c.Status, changes)
	if err != nil {
		return fmt.Errorf("campaign repository: stage changes %w", err)
	}
	return common.RequireAffected(result, ErrCampaignStateChanged)
}

// ApplyStagedChanges применяет все правки разом и возвращает кампанию в approved.
func (r *CampaignRepository) ApplyStagedChanges(ctx context.Context, id uuid.UUID, changes models.StagedChanges) error {
	sets := []string{"status = 'approved'", "pending_changes = NULL", "updated_at = NOW()"}
	args := []interface{}{id}
	for _, ch := range changes {
		if _, ok := models.EditableCampaignFields[ch.Field]; !ok {
			return fmt.Errorf("campaign repository: поле %q нельзя изменить", ch.Field)
		}
		args = append(args, ch.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", ch.Field, len(args)))
	}

	query := fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = $1 AND status = 'edit_pending'`, strings.Join(sets, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("campaign repository: apply changes %w", err)
	}
	return common.RequireAffected(result, ErrCampaignStateChanged)
}

// DiscardStagedChanges отбрасывает правки и возвращает кампанию в approved.
func (r *CampaignRepository) DiscardStagedChanges(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'approved', pending_changes = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'edit_pending'
	`, id)
	if err != nil {
		return fmt.Errorf("campaign repository: discard changes %w", err)
	}
	return common.RequireAffected(result, ErrCampaignStateChanged)
}

// RecomputeCollected пересчитывает собранную сумму и возвращает значения до и после.
func (r *CampaignRepository) RecomputeCollected(ctx context.Context, id uuid.UUID) (before, after decimal.Decimal, err error) {
	row := r.db.QueryRowxContext(ctx, recomputeCollectedQuery+` RETURNING prev.collected_amount, c.collected_amount`, id)
	if err = row.Scan(&before, &after); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, ErrCampaignNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("campaign repository: recompute %w", err)
	}
	return before, after, nil
}

// ListIDsForReconcile возвращает кампании, которые могли получать донаты.
func (r *CampaignRepository) ListIDsForReconcile(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM campaigns WHERE status IN ('approved', 'edit_pending', 'closed') ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("campaign repository: list for reconcile %w", err)
	}
	return ids, nil
}
