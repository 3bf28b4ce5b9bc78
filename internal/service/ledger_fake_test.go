package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
)

// memLedger хранилище в памяти. Транзакции сериализуются, изменения видны только после коммита.
type memLedger struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	master      decimal.Decimal
	donations   map[uuid.UUID]models.Donation
	campaigns   map[uuid.UUID]models.Campaign
	wallets     map[uuid.UUID]models.Wallet
	withdrawals map[uuid.UUID]models.WithdrawalRequest
	entries     []models.LedgerEntry
	keys        map[string]struct{}
}

func newMemLedger() *memLedger {
	return &memLedger{state: &memState{
		donations:   map[uuid.UUID]models.Donation{},
		campaigns:   map[uuid.UUID]models.Campaign{},
		wallets:     map[uuid.UUID]models.Wallet{},
		withdrawals: map[uuid.UUID]models.WithdrawalRequest{},
		keys:        map[string]struct{}{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		master:      s.master,
		donations:   make(map[uuid.UUID]models.Donation, len(s.donations)),
		campaigns:   make(map[uuid.UUID]models.Campaign, len(s.campaigns)),
		wallets:     make(map[uuid.UUID]models.Wallet, len(s.wallets)),
		withdrawals: make(map[uuid.UUID]models.WithdrawalRequest, len(s.withdrawals)),
		entries:     append([]models.LedgerEntry(nil), s.entries...),
		keys:        make(map[string]struct{}, len(s.keys)),
	}
	for k, v := range s.donations {
		c.donations[k] = v
	}
	for k, v := range s.campaigns {
		c.campaigns[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k := range s.keys {
		c.keys[k] = struct{}{}
	}
	return c
}

func (m *memLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memLedger) addCampaign(owner uuid.UUID, collected decimal.Decimal) models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Campaign{
		ID:              uuid.New(),
		UserID:          owner,
		Title:           "Clean water",
		TargetAmount:    decimal.NewFromInt(1000000),
		CollectedAmount: collected,
		Deadline:        time.Now().Add(24 * time.Hour),
		Status:          valueobject.CampaignStatusApproved,
	}
	m.state.campaigns[c.ID] = c
	return c
}

func (m *memLedger) addDonation(campaignID uuid.UUID, orderID string, amount int64, status valueobject.PaymentStatus) models.Donation {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := models.Donation{
		ID:              uuid.New(),
		CampaignID:      campaignID,
		DonorName:       "Budi",
		Amount:          decimal.NewFromInt(amount),
		ExternalOrderID: orderID,
		PaymentStatus:   status,
	}
	m.state.donations[d.ID] = d
	return d
}

func (m *memLedger) addWithdrawal(c models.Campaign, amount int64) models.WithdrawalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := models.WithdrawalRequest{
		ID:              uuid.New(),
		CampaignID:      c.ID,
		UserID:          c.UserID,
		RequestedAmount: decimal.NewFromInt(amount),
		Status:          models.WithdrawalStatusPending,
	}
	m.state.withdrawals[w.ID] = w
	return w
}

func (m *memLedger) setMaster(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.master = decimal.NewFromInt(amount)
}

func (m *memLedger) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memTx struct {
	s *memState
}

func (t *memTx) LockDonationByOrderID(_ context.Context, orderID string) (*models.Donation, error) {
	for _, d := range t.s.donations {
		if d.ExternalOrderID == orderID {
			return &d, nil
		}
	}
	return nil, repository.ErrDonationNotFound
}

func (t *memTx) LockDonationByID(_ context.Context, id uuid.UUID) (*models.Donation, error) {
	d, ok := t.s.donations[id]
	if !ok {
		return nil, repository.ErrDonationNotFound
	}
	return &d, nil
}

func (t *memTx) UpdateDonationPayment(_ context.Context, upd repository.DonationPaymentUpdate) error {
	d, ok := t.s.donations[upd.DonationID]
	if !ok {
		return repository.ErrDonationNotFound
	}
	d.PaymentStatus = upd.Status
	d.SettlementVersion = upd.SettlementVersion
	if upd.ExternalTransactionID != nil {
		d.ExternalTransactionID = upd.ExternalTransactionID
	}
	if upd.PaymentMethod != nil {
		d.PaymentMethod = upd.PaymentMethod
	}
	t.s.donations[d.ID] = d
	return nil
}

func (t *memTx) GetCampaign(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := t.s.campaigns[id]
	if !ok {
		return nil, repository.ErrCampaignNotFound
	}
	return &c, nil
}

func (t *memTx) IncrementCollected(_ context.Context, campaignID uuid.UUID, delta decimal.Decimal) error {
	c, ok := t.s.campaigns[campaignID]
	if !ok {
		return repository.ErrCampaignNotFound
	}
	c.CollectedAmount = c.CollectedAmount.Add(delta)
	t.s.campaigns[c.ID] = c
	return nil
}

func (t *memTx) RecomputeCollected(_ context.Context, campaignID uuid.UUID) (decimal.Decimal, error) {
	c, ok := t.s.campaigns[campaignID]
	if !ok {
		return decimal.Zero, repository.ErrCampaignNotFound
	}
	sum := decimal.Zero
	for _, d := range t.s.donations {
		if d.CampaignID == campaignID && d.IsSuccess() {
			sum = sum.Add(d.Amount)
		}
	}
	c.CollectedAmount = sum
	t.s.campaigns[c.ID] = c
	return sum, nil
}

func (t *memTx) CreditMaster(_ context.Context, amount decimal.Decimal) error {
	t.s.master = t.s.master.Add(amount)
	return nil
}

func (t *memTx) DebitMaster(_ context.Context, amount decimal.Decimal) error {
	if t.s.master.LessThan(amount) {
		return repository.ErrInsufficientFunds
	}
	t.s.master = t.s.master.Sub(amount)
	return nil
}

func (t *memTx) CreditWallet(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	w := t.s.wallets[userID]
	w.UserID = userID
	w.Balance = w.Balance.Add(amount)
	w.TotalIncome = w.TotalIncome.Add(amount)
	t.s.wallets[userID] = w
	return nil
}

func (t *memTx) DebitWallet(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	w, ok := t.s.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return repository.ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	t.s.wallets[userID] = w
	return nil
}

func (t *memTx) InsertLedgerEntry(_ context.Context, entry *models.LedgerEntry) (bool, error) {
	if _, dup := t.s.keys[entry.IdempotencyKey]; dup {
		return false, nil
	}
	e := *entry
	e.ID = uuid.New()
	t.s.keys[e.IdempotencyKey] = struct{}{}
	t.s.entries = append(t.s.entries, e)
	return true, nil
}

func (t *memTx) LockWithdrawal(_ context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	w, ok := t.s.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (t *memTx) UpdateWithdrawal(_ context.Context, w *models.WithdrawalRequest) error {
	if _, ok := t.s.withdrawals[w.ID]; !ok {
		return repository.ErrWithdrawalNotFound
	}
	t.s.withdrawals[w.ID] = *w
	return nil
}
