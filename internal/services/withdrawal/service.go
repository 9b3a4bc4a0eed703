// Package withdrawal implements the payout request state machine:
// pending -> approved | rejected, terminal states immutable. Approval debits
// the wallet through the ledger inside the same transaction that flips the
// request status; rejection never touches the wallet.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paystream/internal/models"
	"paystream/internal/repositories"
	"paystream/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the withdrawal workflow interface.
type Service interface {
	// Request opens a payout request for the earner's entire current
	// balance. Partial amounts are not supported; the amount is snapshotted
	// at request time and re-validated at approval time.
	Request(ctx context.Context, earnerID uint, earnerType string) (*models.WithdrawalRequest, error)

	// Approve debits the wallet by the requested amount and marks the
	// request approved, all in one transaction. transactionID is the
	// external payout reference the admin supplies.
	Approve(ctx context.Context, requestID uint, adminID, notes, transactionID string) (*models.WithdrawalRequest, error)

	// Reject marks the request rejected. The wallet is not touched.
	Reject(ctx context.Context, requestID uint, adminID, reason string) (*models.WithdrawalRequest, error)

	// Read projections
	Get(ctx context.Context, requestID uint) (*models.WithdrawalRequest, error)
	ListByEarner(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) ([]models.WithdrawalRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error)
	Stats(ctx context.Context) (*repositories.WithdrawalStats, error)
}

// Default retry bounds for storage conflicts, matching the ledger service.
const (
	defaultMaxConflictRetries = 3
	defaultRetryBackoff       = 25 * time.Millisecond
)

type service struct {
	repo   repositories.LedgerRepository
	ledger ledger.Service
	cache  ledger.CacheOperator
}

// NewService creates a new withdrawal workflow service
func NewService(repo repositories.LedgerRepository, ledgerSvc ledger.Service, cache ledger.CacheOperator) Service {
	if repo == nil {
		panic("repo is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	return &service{
		repo:   repo,
		ledger: ledgerSvc,
		cache:  cache,
	}
}

func (s *service) Request(ctx context.Context, earnerID uint, earnerType string) (*models.WithdrawalRequest, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}

	var req *models.WithdrawalRequest
	err := s.withRetry(ctx, func(tx repositories.LedgerRepository) error {
		// The wallet row lock serializes concurrent requests for the same
		// earner, so the pending-request check below cannot race.
		wallet, err := tx.GetOrCreateWalletForUpdate(ctx, earnerID, earnerType)
		if err != nil {
			return err
		}

		if wallet.Balance.LessThanOrEqual(decimal.Zero) {
			return ErrInsufficientBalance
		}

		pending, err := tx.HasPendingWithdrawal(ctx, earnerID, earnerType)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicatePendingRequest
		}

		req = &models.WithdrawalRequest{
			Reference:   uuid.NewString(),
			EarnerID:    earnerID,
			EarnerType:  earnerType,
			Amount:      wallet.Balance,
			Status:      models.WithdrawalStatusPending,
			RequestedAt: time.Now(),
		}
		return tx.CreateWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) Approve(ctx context.Context, requestID uint, adminID, notes, transactionID string) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := s.withRetry(ctx, func(tx repositories.LedgerRepository) error {
		r, err := tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrWithdrawalNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if r.Terminal() {
			return ErrAlreadyProcessed
		}

		// The balance may have dropped since the request was made; the
		// debit re-checks it under the wallet lock and aborts the whole
		// approval if it no longer covers the amount.
		_, err = s.ledger.DebitWithin(ctx, tx, r.EarnerID, r.EarnerType, r.Amount,
			models.TransactionTypeWithdrawal,
			fmt.Sprintf("Withdrawal payout for request %s", r.Reference),
			r.Reference, models.ReferenceTypeWithdrawal)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				return ErrInsufficientBalance
			}
			return err
		}

		now := time.Now()
		r.Status = models.WithdrawalStatusApproved
		r.ProcessedAt = &now
		r.ProcessedBy = adminID
		r.AdminNotes = notes
		r.TransactionID = transactionID
		if err := tx.UpdateWithdrawal(ctx, r); err != nil {
			return err
		}

		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, req.EarnerID, req.EarnerType)
	return req, nil
}

func (s *service) Reject(ctx context.Context, requestID uint, adminID, reason string) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := s.withRetry(ctx, func(tx repositories.LedgerRepository) error {
		r, err := tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrWithdrawalNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if r.Terminal() {
			return ErrAlreadyProcessed
		}

		now := time.Now()
		r.Status = models.WithdrawalStatusRejected
		r.ProcessedAt = &now
		r.ProcessedBy = adminID
		r.RejectionReason = reason
		if err := tx.UpdateWithdrawal(ctx, r); err != nil {
			return err
		}

		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) Get(ctx context.Context, requestID uint) (*models.WithdrawalRequest, error) {
	req, err := s.repo.GetWithdrawal(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrWithdrawalNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *service) ListByEarner(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}
	return s.repo.ListWithdrawals(ctx, earnerID, earnerType, status, limit, offset)
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.repo.ListPendingWithdrawals(ctx, limit, offset)
}

func (s *service) Stats(ctx context.Context) (*repositories.WithdrawalStats, error) {
	return s.repo.GetWithdrawalStats(ctx, time.Now())
}

func (s *service) withRetry(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	var err error
	for attempt := 0; attempt <= defaultMaxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(defaultRetryBackoff * time.Duration(attempt)):
			}
		}

		err = s.repo.ExecuteInTransaction(ctx, fn)
		if !errors.Is(err, repositories.ErrSerializationFailure) {
			return err
		}
	}
	return ErrStorageConflict
}
