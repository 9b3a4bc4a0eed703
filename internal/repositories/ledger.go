package repositories

import (
	"context"
	"errors"
	"time"

	"paystream/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrSerializationFailure = errors.New("storage conflict, operation should be retried")
)

// WithdrawalStats is the admin dashboard projection over withdrawal requests.
type WithdrawalStats struct {
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	PendingCount   int64           `json:"pending_count"`
	ProcessedToday int64           `json:"processed_today"`
}

// LedgerRepository defines the data access surface for wallets, ledger
// entries and withdrawal requests. The ForUpdate variants take a row lock and
// are only meaningful inside ExecuteInTransaction; the wallet row lock is the
// serialization point for all balance mutations of one earner.
type LedgerRepository interface {
	// Wallet operations
	GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error)
	GetWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error)
	GetOrCreateWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, wallet *models.Wallet) error

	// Ledger entries (append-only)
	CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error
	ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) ([]models.WalletTransaction, error)

	// Withdrawal requests
	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	GetWithdrawalForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	HasPendingWithdrawal(ctx context.Context, earnerID uint, earnerType string) (bool, error)
	ListWithdrawals(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) ([]models.WithdrawalRequest, error)
	ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error)

	// Analytics and reporting
	GetWithdrawalStats(ctx context.Context, now time.Time) (*WithdrawalStats, error)
	SumTransactions(ctx context.Context, earnerID uint, earnerType string) (decimal.Decimal, error)

	// ExecuteInTransaction runs fn inside a single database transaction; the
	// repository passed to fn is scoped to that transaction. A commit failure
	// caused by a concurrent writer surfaces as ErrSerializationFailure.
	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
}
