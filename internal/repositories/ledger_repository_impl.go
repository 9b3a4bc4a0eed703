package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paystream/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Postgres SQLSTATE codes that mean "the transaction lost a race and should
// be retried as a whole".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return ErrSerializationFailure
		}
	}
	return err
}

func (r *ledgerRepository) GetWallet(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("earner_id = ? AND earner_type = ?", earnerID, earnerType).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("earner_id = ? AND earner_type = ?", earnerID, earnerType).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", translateConflict(err))
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetOrCreateWalletForUpdate(ctx context.Context, earnerID uint, earnerType string) (*models.Wallet, error) {
	wallet, err := r.GetWalletForUpdate(ctx, earnerID, earnerType)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	created := &models.Wallet{
		EarnerID:       earnerID,
		EarnerType:     earnerType,
		Balance:        decimal.Zero,
		PendingBalance: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// A concurrent creator winning the unique index race is a retryable
		// conflict, not a hard failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrSerializationFailure
		}
		return nil, fmt.Errorf("failed to create wallet: %w", translateConflict(err))
	}
	return created, nil
}

func (r *ledgerRepository) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	if err := r.db.WithContext(ctx).Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", translateConflict(err))
	}
	return nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", translateConflict(err))
	}
	return nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, earnerID uint, earnerType string, limit, offset int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("earner_id = ? AND earner_type = ?", earnerID, earnerType).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", translateConflict(err))
	}
	return nil
}

func (r *ledgerRepository) GetWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &req, nil
}

func (r *ledgerRepository) GetWithdrawalForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to lock withdrawal request: %w", translateConflict(err))
	}
	return &req, nil
}

func (r *ledgerRepository) UpdateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", translateConflict(err))
	}
	return nil
}

func (r *ledgerRepository) HasPendingWithdrawal(ctx context.Context, earnerID uint, earnerType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("earner_id = ? AND earner_type = ? AND status = ?", earnerID, earnerType, models.WithdrawalStatusPending).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check pending withdrawals: %w", err)
	}
	return count > 0, nil
}

func (r *ledgerRepository) ListWithdrawals(ctx context.Context, earnerID uint, earnerType, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	q := r.db.WithContext(ctx).
		Where("earner_id = ? AND earner_type = ?", earnerID, earnerType)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var reqs []models.WithdrawalRequest
	err := q.Order("requested_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return reqs, nil
}

func (r *ledgerRepository) ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WithdrawalStatusPending).
		Order("requested_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawal requests: %w", err)
	}
	return reqs, nil
}

func (r *ledgerRepository) GetWithdrawalStats(ctx context.Context, now time.Time) (*WithdrawalStats, error) {
	stats := &WithdrawalStats{TotalWithdrawn: decimal.Zero}

	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status = ?", models.WithdrawalStatusApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum approved withdrawals: %w", err)
	}
	if total.Valid {
		stats.TotalWithdrawn = total.Decimal
	}

	err = r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status = ?", models.WithdrawalStatusPending).
		Count(&stats.PendingCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status IN ? AND processed_at >= ?",
			[]string{models.WithdrawalStatusApproved, models.WithdrawalStatusRejected}, startOfDay).
		Count(&stats.ProcessedToday).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count processed withdrawals: %w", err)
	}

	return stats, nil
}

func (r *ledgerRepository) SumTransactions(ctx context.Context, earnerID uint, earnerType string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("earner_id = ? AND earner_type = ? AND status = ?",
			earnerID, earnerType, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", models.DirectionCredit).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
	if err != nil {
		return translateConflict(err)
	}
	return nil
}
