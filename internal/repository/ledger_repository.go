package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository/common"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMasterNotFound    = errors.New("master account not found")
	ErrWalletNotFound    = errors.New("wallet not found")
)

// DonationPaymentUpdate новые платёжные поля доната после уведомления шлюза.
type DonationPaymentUpdate struct {
	DonationID            uuid.UUID
	Status                valueobject.PaymentStatus
	ExternalTransactionID *string
	PaymentMethod         *string
	SettlementVersion     int
}

// LedgerTx операции, выполняемые внутри одной транзакции расчёта.
type LedgerTx interface {
	LockDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error)
	LockDonationByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	UpdateDonationPayment(ctx context.Context, upd DonationPaymentUpdate) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	IncrementCollected(ctx context.Context, campaignID uuid.UUID, delta decimal.Decimal) error
	RecomputeCollected(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error)
	CreditMaster(ctx context.Context, amount decimal.Decimal) error
	DebitMaster(ctx context.Context, amount decimal.Decimal) error
	CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	DebitWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	LockWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error
}

// LedgerStore открывает единицу работы над журналом.
type LedgerStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerRepository хранит мастер-счёт, кошельки и журнал проводок.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithinTx выполняет fn в транзакции, ошибка fn откатывает все изменения.
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(ctx, &ledgerTx{tx: tx})
	})
}

// EnsureMasterAccount создаёт строку мастер-счёта, если её ещё нет, и возвращает её.
func (r *LedgerRepository) EnsureMasterAccount(ctx context.Context) (*models.MasterAccount, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO master_account (id, balance) VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`, models.MasterAccountID); err != nil {
		return nil, fmt.Errorf("ledger repository: ensure master %w", err)
	}
	return r.GetMasterAccount(ctx)
}

// GetMasterAccount возвращает текущее состояние мастер-счёта.
func (r *LedgerRepository) GetMasterAccount(ctx context.Context) (*models.MasterAccount, error) {
	return common.GetByID[models.MasterAccount](ctx, r.db, "master_account", models.MasterAccountID, ErrMasterNotFound)
}

// EnsureWallet создаёт пустой кошелёк пользователя, если его нет.
func (r *LedgerRepository) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.GetContext(ctx, &wallet, `
		INSERT INTO wallets (user_id, balance, total_income, total_withdrawn)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		RETURNING user_id, balance, total_income, total_withdrawn, updated_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: ensure wallet %w", err)
	}
	return &wallet, nil
}

// GetWallet возвращает кошелёк пользователя.
func (r *LedgerRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return common.GetByField[models.Wallet](ctx, r.db, "wallets", "user_id", userID, ErrWalletNotFound)
}

// ListEntriesByUser возвращает проводки по кошельку пользователя.
func (r *LedgerRepository) ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list entries %w", err)
	}
	return entries, nil
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (t *ledgerTx) lockDonation(ctx context.Context, field string, value interface{}) (*models.Donation, error) {
	var d models.Donation
	query := fmt.Sprintf(`SELECT * FROM donations WHERE %s = $1 FOR UPDATE`, field)
	if err := t.tx.GetContext(ctx, &d, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("ledger tx: lock donation %w", err)
	}
	return &d, nil
}

func (t *ledgerTx) LockDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	return t.lockDonation(ctx, "external_order_id", orderID)
}

func (t *ledgerTx) LockDonationByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	return t.lockDonation(ctx, "id", id)
}

func (t *ledgerTx) UpdateDonationPayment(ctx context.Context, upd DonationPaymentUpdate) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE donations
		SET payment_status = $2,
			external_transaction_id = COALESCE($3, external_transaction_id),
			payment_method = COALESCE($4, payment_method),
			settlement_version = $5,
			updated_at = NOW()
		WHERE id = $1
	`, upd.DonationID, upd.Status, upd.ExternalTransactionID, upd.PaymentMethod, upd.SettlementVersion)
	if err != nil {
		return fmt.Errorf("ledger tx: update donation %w", err)
	}
	return common.RequireAffected(result, ErrDonationNotFound)
}

func (t *ledgerTx) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return common.GetByID[models.Campaign](ctx, t.tx, "campaigns", id, ErrCampaignNotFound)
}

// IncrementCollected атомарно прибавляет delta к собранной сумме, delta может быть отрицательной.
func (t *ledgerTx) IncrementCollected(ctx context.Context, campaignID uuid.UUID, delta decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE campaigns SET collected_amount = collected_amount + $2, updated_at = NOW()
		WHERE id = $1
	`, campaignID, delta)
	if err != nil {
		return fmt.Errorf("ledger tx: increment collected %w", err)
	}
	return common.RequireAffected(result, ErrCampaignNotFound)
}

func (t *ledgerTx) RecomputeCollected(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.GetContext(ctx, &total, recomputeCollectedQuery+` RETURNING c.collected_amount`, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrCampaignNotFound
		}
		return decimal.Zero, fmt.Errorf("ledger tx: recompute collected %w", err)
	}
	return total, nil
}

func (t *ledgerTx) CreditMaster(ctx context.Context, amount decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE master_account SET balance = balance + $2, updated_at = NOW() WHERE id = $1
	`, models.MasterAccountID, amount)
	if err != nil {
		return fmt.Errorf("ledger tx: credit master %w", err)
	}
	return common.RequireAffected(result, ErrMasterNotFound)
}

// DebitMaster списывает с мастер-счёта только при достаточном балансе.
func (t *ledgerTx) DebitMaster(ctx context.Context, amount decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE master_account SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
	`, models.MasterAccountID, amount)
	if err != nil {
		return fmt.Errorf("ledger tx: debit master %w", err)
	}
	return t.guardedDebit(ctx, result, `SELECT EXISTS (SELECT 1 FROM master_account WHERE id = $1)`, models.MasterAccountID, ErrMasterNotFound)
}

func (t *ledgerTx) CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, total_income, total_withdrawn)
		VALUES ($1, $2, $2, 0)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + $2, total_income = wallets.total_income + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ledger tx: credit wallet %w", err)
	}
	return nil
}

func (t *ledgerTx) DebitWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - $2, total_withdrawn = total_withdrawn + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ledger tx: debit wallet %w", err)
	}
	return t.guardedDebit(ctx, result, `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, userID, ErrWalletNotFound)
}

// guardedDebit различает отсутствующий счёт и нехватку средств, если списание не затронуло строк.
func (t *ledgerTx) guardedDebit(ctx context.Context, result sql.Result, existsQuery string, id interface{}, notFoundErr error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger tx: rows affected %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, existsQuery, id); err != nil {
		return fmt.Errorf("ledger tx: check account %w", err)
	}
	if !exists {
		return notFoundErr
	}
	return ErrInsufficientFunds
}

// InsertLedgerEntry пишет проводку, false означает, что ключ идемпотентности уже использован.
func (t *ledgerTx) InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	rows, err := t.tx.QueryxContext(ctx, `
		INSERT INTO ledger_entries (account, user_id, donation_id, withdrawal_id, kind, amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`, entry.Account, entry.UserID, entry.DonationID, entry.WithdrawalID, entry.Kind, entry.Amount, entry.IdempotencyKey)
	if err != nil {
		return false, fmt.Errorf("ledger tx: insert entry %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return false, fmt.Errorf("ledger tx: scan entry %w", err)
	}
	return true, nil
}

func (t *ledgerTx) LockWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := t.tx.GetContext(ctx, &w, `SELECT * FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("ledger tx: lock withdrawal %w", err)
	}
	return &w, nil
}

func (t *ledgerTx) UpdateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, reason = $5, payout_id = $6, payout_status = $7
		WHERE id = $1
	`, w.ID, w.Status, w.ReviewedBy, w.ReviewedAt, w.Reason, w.PayoutID, w.PayoutStatus)
	if err != nil {
		return fmt.Errorf("ledger tx: update withdrawal %w", err)
	}
	return common.RequireAffected(result, ErrWithdrawalNotFound)
}
