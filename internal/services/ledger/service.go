package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paystream/internal/models"
	"paystream/internal/repositories"

	"github.com/shopspring/decimal"
)

type service struct {
	repo    repositories.LedgerRepository
	cache   CacheOperator
	config  Config
	metrics MetricsCollector
}

// NewService creates a new ledger service
func NewService(repo repositories.LedgerRepository, cache CacheOperator, config Config, metrics MetricsCollector) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	if config.MaxConflictRetries <= 0 {
		config.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		repo:    repo,
		cache:   cache,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) Credit(ctx context.Context, earnerID uint, earnerType string, amount decimal.Decimal, description, referenceID, referenceType string) (*models.Wallet, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		s.metrics.RecordError("credit", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var wallet *models.Wallet
	err := s.withRetry(ctx, func(tx repositories.LedgerRepository) error {
		w, err := tx.GetOrCreateWalletForUpdate(ctx, earnerID, earnerType)
		if err != nil {
			return err
		}

		before := w.Balance
		w.Balance = before.Add(amount)
		if err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}

		entry := &models.WalletTransaction{
			EarnerID:      earnerID,
			EarnerType:    earnerType,
			Type:          models.TransactionTypeEarning,
			Direction:     models.DirectionCredit,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  w.Balance,
			Description:   description,
			ReferenceID:   referenceID,
			ReferenceType: referenceType,
			Status:        models.TransactionStatusCompleted,
		}
		if err := tx.CreateTransaction(ctx, entry); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		s.metrics.RecordError("credit", errType(err))
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, earnerID, earnerType)
	s.metrics.RecordOperationResult("credit", "success")
	s.metrics.RecordTransaction(models.TransactionTypeEarning, amount)
	return wallet, nil
}

func (s *service) Adjust(ctx context.Context, earnerID uint, earnerType string, amount decimal.Decimal, description string) (*models.Wallet, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}
	if amount.IsZero() {
		s.metrics.RecordError("adjust", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var wallet *models.Wallet
	err := s.withRetry(ctx, func(tx repositories.LedgerRepository) error {
		if amount.IsNegative() {
			w, err := s.DebitWithin(ctx, tx, earnerID, earnerType, amount.Neg(),
				models.TransactionTypeAdjustment, description, "", models.ReferenceTypeManual)
			if err != nil {
				return err
			}
			wallet = w
			return nil
		}

		w, err := tx.GetOrCreateWalletForUpdate(ctx, earnerID, earnerType)
		if err != nil {
			return err
		}

		before := w.Balance
		w.Balance = before.Add(amount)
		if err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}

		entry := &models.WalletTransaction{
			EarnerID:      earnerID,
			EarnerType:    earnerType,
			Type:          models.TransactionTypeAdjustment,
			Direction:     models.DirectionCredit,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  w.Balance,
			Description:   description,
			ReferenceType: models.ReferenceTypeManual,
			Status:        models.TransactionStatusCompleted,
		}
		if err := tx.CreateTransaction(ctx, entry); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		s.metrics.RecordError("adjust", errType(err))
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, earnerID, earnerType)
	s.metrics.RecordOperationResult("adjust", "success")
	s.metrics.RecordTransaction(models.TransactionTypeAdjustment, amount.Abs())
	return wallet, nil
}

// DebitWithin subtracts amount from the wallet inside the caller's
// transaction. The balance check happens here, under the row lock, because
// any balance the caller observed earlier may be stale by commit time.
func (s *service) DebitWithin(ctx context.Context, tx repositories.LedgerRepository, earnerID uint, earnerType string, amount decimal.Decimal, entryType, description, referenceID, referenceType string) (*models.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	w, err := tx.GetWalletForUpdate(ctx, earnerID, earnerType)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	before := w.Balance
	w.Balance = before.Sub(amount)
	if entryType == models.TransactionTypeWithdrawal {
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
		now := time.Now()
		w.LastWithdrawalDate = &now
	}
	if err := tx.UpdateWallet(ctx, w); err != nil {
		return nil, err
	}

	entry := &models.WalletTransaction{
		EarnerID:      earnerID,
		EarnerType:    earnerType,
		Type:          entryType,
		Direction:     models.DirectionDebit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Description:   description,
		ReferenceID:   referenceID,
		ReferenceType: referenceType,
		Status:        models.TransactionStatusCompleted,
	}
	if err := tx.CreateTransaction(ctx, entry); err != nil {
		return nil, err
	}

	return w, nil
}

func (s *service) GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}

	// Try cache first
	if wallet, err := s.cache.GetWallet(ctx, earnerID, earnerType); err == nil {
		return wallet, nil
	}

	wallet, err := s.repo.GetWallet(ctx, earnerID, earnerType)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	s.cache.SetWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) ([]models.WalletTransaction, error) {
	if !models.ValidEarnerType(earnerType) {
		return nil, ErrInvalidEarnerType
	}
	return s.repo.ListTransactions(ctx, earnerID, earnerType, limit, offset)
}

func (s *service) CheckConsistency(ctx context.Context, earnerID uint, earnerType string) error {
	wallet, err := s.repo.GetWallet(ctx, earnerID, earnerType)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return err
	}

	sum, err := s.repo.SumTransactions(ctx, earnerID, earnerType)
	if err != nil {
		return err
	}

	if !wallet.Balance.Equal(sum) {
		return fmt.Errorf("%w: balance %s, ledger sum %s",
			ErrLedgerInconsistent, wallet.Balance, sum)
	}
	return nil
}

// withRetry runs fn in a transaction, retrying the whole operation on
// storage conflicts. Retries re-execute fn from scratch so every balance
// read is fresh.
func (s *service) withRetry(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	var err error
	for attempt := 0; attempt <= s.config.MaxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.RetryBackoff * time.Duration(attempt)):
			}
		}

		err = s.repo.ExecuteInTransaction(ctx, fn)
		if !errors.Is(err, repositories.ErrSerializationFailure) {
			return err
		}
	}
	return ErrStorageConflict
}

func errType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, ErrStorageConflict):
		return "storage_conflict"
	default:
		return "internal"
	}
}
