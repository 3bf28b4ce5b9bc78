package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

func TestDonationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDonationRepository(db)
	d := &models.Donation{
		CampaignID:      uuid.New(),
		DonorName:       models.AnonymousDonorName,
		IsAnonymous:     true,
		Amount:          decimal.NewFromInt(50000),
		ExternalOrderID: "RUANG-01",
		PaymentStatus:   valueobject.PaymentStatusPending,
	}
	newID := uuid.New()

	mock.ExpectQuery(q("INSERT INTO donations")).
		WithArgs(d.CampaignID, nil, d.DonorName, true, d.Amount, nil, "RUANG-01", valueobject.PaymentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "settlement_version", "created_at", "updated_at"}).
			AddRow(newID.String(), 0, time.Now(), time.Now()))

	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, newID, d.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepository_DeletePendingOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDonationRepository(db)
	id := uuid.New()

	mock.ExpectExec(q("DELETE FROM donations WHERE id = $1 AND payment_status = $2")).
		WithArgs(id, valueobject.PaymentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeletePending(context.Background(), id), ErrDonationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepository_FindByExternalOrderID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDonationRepository(db)
	id := uuid.New()

	mock.ExpectQuery(q("SELECT * FROM donations WHERE external_order_id = $1")).
		WithArgs("RUANG-7").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_order_id", "payment_status", "amount"}).
			AddRow(id.String(), "RUANG-7", "success", "75000.00"))

	d, err := repo.FindByExternalOrderID(context.Background(), "RUANG-7")
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, valueobject.PaymentStatusSuccess, d.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
