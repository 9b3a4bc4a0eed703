package ledger

import (
	"context"

	"paystream/internal/models"
	"paystream/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service defines the wallet ledger interface.
type Service interface {
	// Credit records an earning and increases the wallet balance. The wallet
	// is created lazily on first credit. Amount must be positive.
	Credit(ctx context.Context, earnerID uint, earnerType string, amount decimal.Decimal, description, referenceID, referenceType string) (*models.Wallet, error)

	// Adjust records a corrective adjustment. Positive amounts credit the
	// wallet, negative amounts debit it subject to the commit-time balance
	// check. Zero is rejected.
	Adjust(ctx context.Context, earnerID uint, earnerType string, amount decimal.Decimal, description string) (*models.Wallet, error)

	// DebitWithin applies a debit inside an already-open transaction. It
	// re-reads the balance under the wallet row lock and fails with
	// ErrInsufficientBalance if the balance no longer covers the amount.
	// The withdrawal workflow is the only intended caller.
	DebitWithin(ctx context.Context, tx repositories.LedgerRepository, earnerID uint, earnerType string, amount decimal.Decimal, entryType, description, referenceID, referenceType string) (*models.Wallet, error)

	// Read projections
	GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) ([]models.WalletTransaction, error)

	// CheckConsistency replays the ledger and verifies the cached balance
	// matches the sum of completed entries.
	CheckConsistency(ctx context.Context, earnerID uint, earnerType string) error
}
