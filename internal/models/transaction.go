package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types
const (
	TransactionTypeEarning    = "earning"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeAdjustment = "adjustment"
)

// Ledger entry directions
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Ledger entry statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Reference types linking an entry to the event that caused it
const (
	ReferenceTypeOrder      = "Order"
	ReferenceTypeWithdrawal = "WithdrawalRequest"
	ReferenceTypeManual     = "ManualAdjustment"
)

// WalletTransaction is one immutable ledger entry. Amount is a magnitude;
// the direction column says which way the balance moved. BalanceBefore and
// BalanceAfter pin the entry into the per-earner balance chain, so the full
// history replays to the wallet's current balance. Entries are never updated
// or deleted; corrections are new adjustment entries.
type WalletTransaction struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	EarnerID      uint            `gorm:"index:idx_wallet_transactions_earner,priority:1;not null" json:"earner_id"`
	EarnerType    string          `gorm:"index:idx_wallet_transactions_earner,priority:2;size:32;not null" json:"earner_type"`
	Type          string          `gorm:"size:32;not null" json:"type"`
	Direction     string          `gorm:"size:16;not null" json:"direction"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	Description   string          `gorm:"size:255" json:"description"`
	ReferenceID   string          `gorm:"size:64;index" json:"reference_id"`
	ReferenceType string          `gorm:"size:32" json:"reference_type"`
	Status        string          `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt     time.Time       `gorm:"index:idx_wallet_transactions_earner,priority:3" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
