// Package repotest provides an in-memory LedgerRepository for service tests.
// A single store mutex stands in for the database's transaction isolation:
// ExecuteInTransaction holds it for the whole closure and rolls the state
// back on error, so transactional semantics (all-or-nothing, serialized
// wallet access) behave as they do against Postgres.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"paystream/internal/models"
	"paystream/internal/repositories"

	"github.com/shopspring/decimal"
)

var (
	_ repositories.LedgerRepository = (*Store)(nil)
	_ repositories.LedgerRepository = (*session)(nil)
)

type state struct {
	wallets      map[string]*models.Wallet
	walletSeq    uint
	transactions []models.WalletTransaction
	txSeq        uint
	withdrawals  map[uint]*models.WithdrawalRequest
	wdSeq        uint
}

func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[string]*models.Wallet, len(s.wallets)),
		walletSeq:    s.walletSeq,
		transactions: make([]models.WalletTransaction, len(s.transactions)),
		txSeq:        s.txSeq,
		withdrawals:  make(map[uint]*models.WithdrawalRequest, len(s.withdrawals)),
		wdSeq:        s.wdSeq,
	}
	for k, w := range s.wallets {
		c.wallets[k] = copyWallet(w)
	}
	copy(c.transactions, s.transactions)
	for id, r := range s.withdrawals {
		c.withdrawals[id] = copyWithdrawal(r)
	}
	return c
}

func copyWallet(w *models.Wallet) *models.Wallet {
	c := *w
	if w.LastWithdrawalDate != nil {
		t := *w.LastWithdrawalDate
		c.LastWithdrawalDate = &t
	}
	return &c
}

func copyWithdrawal(r *models.WithdrawalRequest) *models.WithdrawalRequest {
	c := *r
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

func walletKey(earnerID uint, earnerType string) string {
	return fmt.Sprintf("%s:%d", earnerType, earnerID)
}

// Store is the thread-safe fake. Use NewStore and pass it anywhere a
// repositories.LedgerRepository is expected.
type Store struct {
	mu        sync.Mutex
	s         *state
	conflicts int
}

func NewStore() *Store {
	return &Store{s: &state{
		wallets:     make(map[string]*models.Wallet),
		withdrawals: make(map[uint]*models.WithdrawalRequest),
	}}
}

// QueueConflicts makes the next n transactions fail with
// ErrSerializationFailure before running, to exercise retry paths.
func (f *Store) QueueConflicts(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts = n
}

func (f *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflicts > 0 {
		f.conflicts--
		return repositories.ErrSerializationFailure
	}

	snapshot := f.s.clone()
	if err := fn(&session{s: f.s}); err != nil {
		f.s = snapshot
		return err
	}
	return nil
}

func (f *Store) locked(fn func(*session) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(&session{s: f.s})
}

func (f *Store) GetWallet(ctx context.Context, earnerID uint, earnerType string) (w *models.Wallet, err error) {
	err = f.locked(func(s *session) error {
		w, err = s.GetWallet(ctx, earnerID, earnerType)
		return err
	})
	return w, err
}

func (f *Store) GetWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	return f.GetWallet(ctx, earnerID, earnerType)
}

func (f *Store) GetOrCreateWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (w *models.Wallet, err error) {
	err = f.locked(func(s *session) error {
		w, err = s.GetOrCreateWalletForUpdate(ctx, earnerID, earnerType)
		return err
	})
	return w, err
}

func (f *Store) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	return f.locked(func(s *session) error { return s.UpdateWallet(ctx, wallet) })
}

func (f *Store) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	return f.locked(func(s *session) error { return s.CreateTransaction(ctx, entry) })
}

func (f *Store) ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) (out []models.WalletTransaction, err error) {
	err = f.locked(func(s *session) error {
		out, err = s.ListTransactions(ctx, earnerID, earnerType, limit, offset)
		return err
	})
	return out, err
}

func (f *Store) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return f.locked(func(s *session) error { return s.CreateWithdrawal(ctx, req) })
}

func (f *Store) GetWithdrawal(ctx context.Context, id uint) (r *models.WithdrawalRequest, err error) {
	err = f.locked(func(s *session) error {
		r, err = s.GetWithdrawal(ctx, id)
		return err
	})
	return r, err
}

func (f *Store) GetWithdrawalForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	return f.GetWithdrawal(ctx, id)
}

func (f *Store) UpdateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return f.locked(func(s *session) error { return s.UpdateWithdrawal(ctx, req) })
}

func (f *Store) HasPendingWithdrawal(ctx context.Context, earnerID uint, earnerType string) (ok bool, err error) {
	err = f.locked(func(s *session) error {
		ok, err = s.HasPendingWithdrawal(ctx, earnerID, earnerType)
		return err
	})
	return ok, err
}

func (f *Store) ListWithdrawals(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) (out []models.WithdrawalRequest, err error) {
	err = f.locked(func(s *session) error {
		out, err = s.ListWithdrawals(ctx, earnerID, earnerType, status, limit, offset)
		return err
	})
	return out, err
}

func (f *Store) ListPendingWithdrawals(ctx context.Context, limit, offset int) (out []models.WithdrawalRequest, err error) {
	err = f.locked(func(s *session) error {
		out, err = s.ListPendingWithdrawals(ctx, limit, offset)
		return err
	})
	return out, err
}

func (f *Store) GetWithdrawalStats(ctx context.Context, now time.Time) (st *repositories.WithdrawalStats, err error) {
	err = f.locked(func(s *session) error {
		st, err = s.GetWithdrawalStats(ctx, now)
		return err
	})
	return st, err
}

func (f *Store) SumTransactions(ctx context.Context, earnerID uint, earnerType string) (sum decimal.Decimal, err error) {
	err = f.locked(func(s *session) error {
		sum, err = s.SumTransactions(ctx, earnerID, earnerType)
		return err
	})
	return sum, err
}

// session is the transaction-scoped view. It holds no lock of its own; the
// Store serializes access before handing one out.
type session struct {
	s *state
}

func (t *session) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	return fn(t)
}

func (t *session) GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	w, ok := t.s.wallets[walletKey(earnerID, earnerType)]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (t *session) GetWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	return t.GetWallet(ctx, earnerID, earnerType)
}

func (t *session) GetOrCreateWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	if w, ok := t.s.wallets[walletKey(earnerID, earnerType)]; ok {
		return copyWallet(w), nil
	}
	t.s.walletSeq++
	w := &models.Wallet{
		ID:             t.s.walletSeq,
		EarnerID:       earnerID,
		EarnerType:     earnerType,
		Balance:        decimal.Zero,
		PendingBalance: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	t.s.wallets[walletKey(earnerID, earnerType)] = w
	return copyWallet(w), nil
}

func (t *session) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	key := walletKey(wallet.EarnerID, wallet.EarnerType)
	if _, ok := t.s.wallets[key]; !ok {
		return repositories.ErrWalletNotFound
	}
	c := copyWallet(wallet)
	c.UpdatedAt = time.Now()
	t.s.wallets[key] = c
	return nil
}

func (t *session) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	t.s.txSeq++
	entry.ID = t.s.txSeq
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.s.transactions = append(t.s.transactions, *entry)
	return nil
}

func (t *session) ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, e := range t.s.transactions {
		if e.EarnerID == earnerID && e.EarnerType == earnerType {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, limit, offset), nil
}

func (t *session) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	t.s.wdSeq++
	req.ID = t.s.wdSeq
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	t.s.withdrawals[req.ID] = copyWithdrawal(req)
	return nil
}

func (t *session) GetWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	r, ok := t.s.withdrawals[id]
	if !ok {
		return nil, repositories.ErrWithdrawalNotFound
	}
	return copyWithdrawal(r), nil
}

func (t *session) GetWithdrawalForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	return t.GetWithdrawal(ctx, id)
}

func (t *session) UpdateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if _, ok := t.s.withdrawals[req.ID]; !ok {
		return repositories.ErrWithdrawalNotFound
	}
	c := copyWithdrawal(req)
	c.UpdatedAt = time.Now()
	t.s.withdrawals[req.ID] = c
	return nil
}

func (t *session) HasPendingWithdrawal(ctx context.Context, earnerID uint, earnerType string) (bool, error) {
	for _, r := range t.s.withdrawals {
		if r.EarnerID == earnerID && r.EarnerType == earnerType && r.Status == models.WithdrawalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *session) ListWithdrawals(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, r := range t.s.withdrawals {
		if r.EarnerID != earnerID || r.EarnerType != earnerType {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *copyWithdrawal(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, limit, offset), nil
}

func (t *session) ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, r := range t.s.withdrawals {
		if r.Status == models.WithdrawalStatusPending {
			out = append(out, *copyWithdrawal(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, limit, offset), nil
}

func (t *session) GetWithdrawalStats(ctx context.Context, now time.Time) (*repositories.WithdrawalStats, error) {
	stats := &repositories.WithdrawalStats{TotalWithdrawn: decimal.Zero}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, r := range t.s.withdrawals {
		switch r.Status {
		case models.WithdrawalStatusPending:
			stats.PendingCount++
		case models.WithdrawalStatusApproved:
			stats.TotalWithdrawn = stats.TotalWithdrawn.Add(r.Amount)
		}
		if r.Status != models.WithdrawalStatusPending && r.ProcessedAt != nil && !r.ProcessedAt.Before(startOfDay) {
			stats.ProcessedToday++
		}
	}
	return stats, nil
}

func (t *session) SumTransactions(ctx context.Context, earnerID uint, earnerType string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range t.s.transactions {
		if e.EarnerID != earnerID || e.EarnerType != earnerType || e.Status != models.TransactionStatusCompleted {
			continue
		}
		if e.Direction == models.DirectionCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

func window[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
