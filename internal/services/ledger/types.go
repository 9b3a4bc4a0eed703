package ledger

import (
	"context"
	"time"

	"paystream/internal/models"

	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultMaxConflictRetries = 3
	DefaultRetryBackoff       = 25 * time.Millisecond
)

// Config holds ledger service configuration.
type Config struct {
	// MaxConflictRetries bounds automatic retries of a mutating operation
	// after a storage conflict. Only conflicts are retried; application
	// errors surface immediately.
	MaxConflictRetries int
	RetryBackoff       time.Duration
}

// CacheOperator defines the wallet caching operations the service needs.
type CacheOperator interface {
	GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, earnerID uint, earnerType string) error
}

// MetricsCollector defines the interface for collecting ledger metrics.
type MetricsCollector interface {
	RecordOperationResult(operation, result string)
	RecordError(operation, errType string)
	RecordTransaction(txType string, amount decimal.Decimal)
}
