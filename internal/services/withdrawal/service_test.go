package withdrawal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"paystream/internal/models"
	"paystream/internal/repositories/repotest"
	"paystream/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu      sync.Mutex
	wallets map[string]*models.Wallet
}

func newFakeCache() *fakeCache {
	return &fakeCache{wallets: make(map[string]*models.Wallet)}
}

func (c *fakeCache) GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.wallets[fmt.Sprintf("%s:%d", earnerType, earnerID)]; ok {
		return w, nil
	}
	return nil, assert.AnError
}

func (c *fakeCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets[fmt.Sprintf("%s:%d", wallet.EarnerType, wallet.EarnerID)] = wallet
	return nil
}

func (c *fakeCache) InvalidateWallet(ctx context.Context, earnerID uint, earnerType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.wallets, fmt.Sprintf("%s:%d", earnerType, earnerID))
	return nil
}

type fixture struct {
	store  *repotest.Store
	ledger ledger.Service
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	cache := newFakeCache()
	ledgerSvc := ledger.NewService(store, cache, ledger.Config{RetryBackoff: 1}, nil)
	return &fixture{
		store:  store,
		ledger: ledgerSvc,
		svc:    NewService(store, ledgerSvc, cache),
	}
}

func (f *fixture) credit(t *testing.T, earnerID uint, earnerType string, amount int64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), earnerID, earnerType,
		decimal.NewFromInt(amount), "earning", "order", models.ReferenceTypeOrder)
	require.NoError(t, err)
}

func (f *fixture) ledgerEntries(t *testing.T, earnerID uint, earnerType string) []models.WalletTransaction {
	t.Helper()
	entries, err := f.store.ListTransactions(context.Background(), earnerID, earnerType, 0, 0)
	require.NoError(t, err)
	return entries
}

func TestService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots the full balance", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)

		req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusPending, req.Status)
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(50)))
		assert.NotEmpty(t, req.Reference)
		assert.False(t, req.RequestedAt.IsZero())

		// Requesting does not touch the wallet or the ledger.
		wallet, err := f.store.GetWallet(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50)))
		assert.Len(t, f.ledgerEntries(t, 1, models.EarnerTypeDeliveryPartner), 1)
	})

	t.Run("empty wallet cannot request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("second request while one is pending", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)

		_, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		_, err = f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		assert.ErrorIs(t, err, ErrDuplicatePendingRequest)
	})

	t.Run("concurrent requests leave at most one pending", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
			}(i)
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrDuplicatePendingRequest):
				dup++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 3, dup)

		pending, err := f.store.ListPendingWithdrawals(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("unknown earner type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Request(ctx, 1, "customer")
		assert.ErrorIs(t, err, ErrInvalidEarnerType)
	})
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the wallet and finalizes the request", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)

		approved, err := f.svc.Approve(ctx, req.ID, "admin-a", "ok", "TXN123")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusApproved, approved.Status)
		assert.Equal(t, "admin-a", approved.ProcessedBy)
		assert.Equal(t, "ok", approved.AdminNotes)
		assert.Equal(t, "TXN123", approved.TransactionID)
		assert.NotNil(t, approved.ProcessedAt)

		wallet, err := f.store.GetWallet(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.IsZero())
		assert.True(t, wallet.TotalWithdrawn.Equal(decimal.NewFromInt(50)))

		entries := f.ledgerEntries(t, 1, models.EarnerTypeDeliveryPartner)
		require.Len(t, entries, 2)
		debit := entries[0] // newest first
		assert.Equal(t, models.TransactionTypeWithdrawal, debit.Type)
		assert.True(t, debit.BalanceBefore.Equal(decimal.NewFromInt(50)))
		assert.True(t, debit.BalanceAfter.IsZero())
		assert.Equal(t, req.Reference, debit.ReferenceID)
		assert.Equal(t, models.ReferenceTypeWithdrawal, debit.ReferenceType)
	})

	t.Run("second approval is rejected and adds no entry", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)

		_, err = f.svc.Approve(ctx, req.ID, "admin-a", "", "TXN1")
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, req.ID, "admin-b", "", "TXN2")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)

		assert.Len(t, f.ledgerEntries(t, 1, models.EarnerTypeDeliveryPartner), 2)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Approve(ctx, 42, "admin-a", "", "TXN")
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("balance dropped since request", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)

		// Corrective debit between request and approval.
		_, err = f.ledger.Adjust(ctx, 1, models.EarnerTypeDeliveryPartner,
			decimal.NewFromInt(-30), "chargeback")
		require.NoError(t, err)

		_, err = f.svc.Approve(ctx, req.ID, "admin-a", "", "TXN")
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		// The approval aborted as a whole: request still pending, balance
		// unchanged, no withdrawal entry.
		got, err := f.svc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusPending, got.Status)

		wallet, err := f.store.GetWallet(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(20)))
		assert.True(t, wallet.TotalWithdrawn.IsZero())
	})

	t.Run("concurrent approvals process exactly once", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 3)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.Approve(ctx, req.ID, fmt.Sprintf("admin-%d", i), "", "TXN")
			}(i)
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrAlreadyProcessed)
			}
		}
		assert.Equal(t, 1, ok)

		wallet, err := f.store.GetWallet(ctx, 1, models.EarnerTypeDeliveryPartner)
		require.NoError(t, err)
		assert.True(t, wallet.TotalWithdrawn.Equal(decimal.NewFromInt(50)), "wallet debited exactly once")
	})
}

func TestService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("leaves wallet and ledger untouched", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeVendor, 30)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeVendor)
		require.NoError(t, err)

		rejected, err := f.svc.Reject(ctx, req.ID, "admin-b", "duplicate claim")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusRejected, rejected.Status)
		assert.Equal(t, "admin-b", rejected.ProcessedBy)
		assert.Equal(t, "duplicate claim", rejected.RejectionReason)
		assert.NotNil(t, rejected.ProcessedAt)

		wallet, err := f.store.GetWallet(ctx, 1, models.EarnerTypeVendor)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(30)))
		assert.True(t, wallet.TotalWithdrawn.IsZero())
		assert.Len(t, f.ledgerEntries(t, 1, models.EarnerTypeVendor), 1, "rejecting writes no ledger entry")
	})

	t.Run("rejected request is terminal", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeVendor, 30)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeVendor)
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, req.ID, "admin-b", "dup")
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, req.ID, "admin-b", "again")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		_, err = f.svc.Approve(ctx, req.ID, "admin-a", "", "TXN")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("earner can request again after rejection", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 1, models.EarnerTypeVendor, 30)
		req, err := f.svc.Request(ctx, 1, models.EarnerTypeVendor)
		require.NoError(t, err)
		_, err = f.svc.Reject(ctx, req.ID, "admin-b", "dup")
		require.NoError(t, err)

		again, err := f.svc.Request(ctx, 1, models.EarnerTypeVendor)
		require.NoError(t, err)
		assert.True(t, again.Amount.Equal(decimal.NewFromInt(30)))
	})
}

func TestService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.credit(t, 1, models.EarnerTypeDeliveryPartner, 50)
	f.credit(t, 2, models.EarnerTypeVendor, 20)

	r1, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
	require.NoError(t, err)
	r2, err := f.svc.Request(ctx, 2, models.EarnerTypeVendor)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, r1.ID, "admin-a", "", "TXN1")
	require.NoError(t, err)

	t.Run("list by earner with status filter", func(t *testing.T) {
		reqs, err := f.svc.ListByEarner(ctx, 1, models.EarnerTypeDeliveryPartner, models.WithdrawalStatusApproved, 0, 0)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, r1.ID, reqs[0].ID)

		reqs, err = f.svc.ListByEarner(ctx, 1, models.EarnerTypeDeliveryPartner, models.WithdrawalStatusPending, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("admin pending queue", func(t *testing.T) {
		pending, err := f.svc.ListPending(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, r2.ID, pending[0].ID)
	})

	t.Run("aggregate stats", func(t *testing.T) {
		stats, err := f.svc.Stats(ctx)
		require.NoError(t, err)
		assert.True(t, stats.TotalWithdrawn.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, int64(1), stats.PendingCount)
		assert.Equal(t, int64(1), stats.ProcessedToday)
	})
}

func TestService_Stats_ProcessedTodayWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.credit(t, 1, models.EarnerTypeDeliveryPartner, 10)
	req, err := f.svc.Request(ctx, 1, models.EarnerTypeDeliveryPartner)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, req.ID, "admin-a", "test")
	require.NoError(t, err)

	// Push the processed timestamp to yesterday; it must fall out of the
	// processed-today count.
	stored, err := f.store.GetWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	yesterday := time.Now().Add(-36 * time.Hour)
	stored.ProcessedAt = &yesterday
	require.NoError(t, f.store.UpdateWithdrawal(ctx, stored))

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ProcessedToday)
	assert.True(t, stats.TotalWithdrawn.IsZero(), "rejections never count as withdrawn")
}
