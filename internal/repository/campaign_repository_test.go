package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

func TestCampaignRepository_RecomputeCollected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	id := uuid.New()

	mock.ExpectQuery(q("SELECT COALESCE(SUM(d.amount), 0) FROM donations d")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"collected_amount", "collected_amount"}).AddRow("125000.00", "50000.00"))

	before, after, err := repo.RecomputeCollected(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, before.Equal(decimal.NewFromInt(125000)))
	assert.True(t, after.Equal(decimal.NewFromInt(50000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_RecomputeCollectedNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(q("UPDATE campaigns c")).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b"}))

	_, _, err := repo.RecomputeCollected(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestCampaignRepository_ApproveEnsuresWallet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	c := &models.Campaign{ID: uuid.New(), UserID: uuid.New(), Status: valueobject.CampaignStatusPending}
	admin := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE campaigns SET status = $3")).
		WithArgs(c.ID, valueobject.CampaignStatusPending, valueobject.CampaignStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO campaign_verification_requests")).
		WithArgs(c.ID, admin).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO wallets")).
		WithArgs(c.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Approve(context.Background(), c, admin))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_ApproveStateChanged(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	c := &models.Campaign{ID: uuid.New(), Status: valueobject.CampaignStatusPending}

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE campaigns SET status = $3")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), c, uuid.New())
	assert.ErrorIs(t, err, ErrCampaignStateChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_ApplyStagedChanges(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	id := uuid.New()

	mock.ExpectExec(q("SET status = 'approved', pending_changes = NULL, updated_at = NOW(), title = $2, target_amount = $3 WHERE id = $1 AND status = 'edit_pending'")).
		WithArgs(id, "New title", "2000000").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyStagedChanges(context.Background(), id, models.StagedChanges{
		{Field: models.CampaignFieldTitle, Value: "New title"},
		{Field: models.CampaignFieldTargetAmount, Value: "2000000"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_ApplyStagedChangesRejectsUnknownField(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	err := repo.ApplyStagedChanges(context.Background(), uuid.New(), models.StagedChanges{
		{Field: "collected_amount", Value: "1"},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
