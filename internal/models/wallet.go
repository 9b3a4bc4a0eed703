package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earner types
const (
	EarnerTypeDeliveryPartner = "delivery_partner"
	EarnerTypeVendor          = "vendor"
)

// ValidEarnerType reports whether t is a known earner role.
func ValidEarnerType(t string) bool {
	return t == EarnerTypeDeliveryPartner || t == EarnerTypeVendor
}

// Wallet holds the current balance for one earner. There is exactly one row
// per (earner_id, earner_type) pair; rows are created lazily on the first
// credit or withdrawal request and never deleted. The balance column is a
// cache over the transaction log: it is only ever written in the same
// database transaction as the log entry that explains the change.
type Wallet struct {
	ID                 uint            `gorm:"primarykey" json:"id"`
	EarnerID           uint            `gorm:"uniqueIndex:idx_wallets_earner;not null" json:"earner_id"`
	EarnerType         string          `gorm:"uniqueIndex:idx_wallets_earner;size:32;not null" json:"earner_type"`
	Balance            decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	PendingBalance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"pending_balance"`
	TotalWithdrawn     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_withdrawn"`
	LastWithdrawalDate *time.Time      `json:"last_withdrawal_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
