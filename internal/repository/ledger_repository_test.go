package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestLedgerRepository_DebitMasterInsufficientRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE master_account SET balance = balance - $2")).
		WithArgs(models.MasterAccountID, decimal.NewFromInt(100000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM master_account WHERE id = $1)")).
		WithArgs(models.MasterAccountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.DebitMaster(ctx, decimal.NewFromInt(100000))
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_DebitMasterMissingAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE master_account SET balance = balance - $2")).
		WithArgs(models.MasterAccountID, decimal.NewFromInt(500)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM master_account WHERE id = $1)")).
		WithArgs(models.MasterAccountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.DebitMaster(ctx, decimal.NewFromInt(500))
	})
	assert.ErrorIs(t, err, ErrMasterNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_DebitMasterSufficientSkipsCheck(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE master_account SET balance = balance - $2")).
		WithArgs(models.MasterAccountID, decimal.NewFromInt(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.DebitMaster(ctx, decimal.NewFromInt(500))
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_CreditUnitCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	campaignID := uuid.New()
	donationID := uuid.New()
	amount := decimal.NewFromInt(50000)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM donations WHERE external_order_id = $1 FOR UPDATE")).
		WithArgs("RUANG-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "external_order_id", "payment_status", "settlement_version"}).
			AddRow(donationID.String(), campaignID.String(), "50000.00", "RUANG-1", "pending", 0))
	mock.ExpectExec(q("UPDATE donations")).
		WithArgs(donationID, valueobject.PaymentStatusSuccess, sqlmock.AnyArg(), sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE campaigns SET collected_amount = collected_amount + $2")).
		WithArgs(campaignID, amount).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE master_account SET balance = balance + $2")).
		WithArgs(models.MasterAccountID, amount).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("INSERT INTO ledger_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New().String(), time.Now()))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		d, err := tx.LockDonationByOrderID(ctx, "RUANG-1")
		if err != nil {
			return err
		}
		assert.True(t, d.Amount.Equal(amount))
		if err := tx.UpdateDonationPayment(ctx, DonationPaymentUpdate{
			DonationID:        d.ID,
			Status:            valueobject.PaymentStatusSuccess,
			SettlementVersion: d.SettlementVersion + 1,
		}); err != nil {
			return err
		}
		if err := tx.IncrementCollected(ctx, d.CampaignID, d.Amount); err != nil {
			return err
		}
		if err := tx.CreditMaster(ctx, d.Amount); err != nil {
			return err
		}
		inserted, err := tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
			Account: models.LedgerAccountMaster, DonationID: &d.ID, Kind: models.LedgerKindDonationCredit,
			Amount: d.Amount, IdempotencyKey: "RUANG-1:success:v1",
		})
		assert.True(t, inserted)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_LockDonationNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM donations WHERE external_order_id = $1 FOR UPDATE")).
		WithArgs("RUANG-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		_, err := tx.LockDonationByOrderID(ctx, "RUANG-missing")
		return err
	})
	assert.ErrorIs(t, err, ErrDonationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_DuplicateLedgerEntry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("ON CONFLICT (idempotency_key) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectCommit()

	var inserted bool
	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		var err error
		inserted, err = tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
			Account: models.LedgerAccountMaster, Kind: models.LedgerKindDonationCredit,
			Amount: decimal.NewFromInt(1), IdempotencyKey: "dup",
		})
		return err
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_DebitWalletGuarded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("WHERE user_id = $1 AND balance >= $2")).
		WithArgs(userID, decimal.NewFromInt(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.DebitWallet(ctx, userID, decimal.NewFromInt(10))
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec(q("WHERE user_id = $1 AND balance >= $2")).
		WithArgs(userID, decimal.NewFromInt(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err = repo.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.DebitWallet(ctx, userID, decimal.NewFromInt(10))
	})
	assert.ErrorIs(t, err, ErrWalletNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_EnsureMasterAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectExec(q("INSERT INTO master_account (id, balance) VALUES ($1, 0)")).
		WithArgs(models.MasterAccountID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT * FROM master_account WHERE id = $1")).
		WithArgs(models.MasterAccountID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "updated_at"}).AddRow(1, "40000.00", time.Now()))

	acc, err := repo.EnsureMasterAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, acc.ID)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(40000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
