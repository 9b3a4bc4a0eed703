package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal request statuses. Pending is the only non-terminal state.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// WithdrawalRequest is one payout attempt. An earner opens it against their
// full balance at request time; an admin moves it to exactly one terminal
// state. Approving debits the wallet inside the same database transaction;
// rejecting never touches the wallet. At most one pending request may exist
// per earner.
type WithdrawalRequest struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Reference       string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	EarnerID        uint            `gorm:"index:idx_withdrawal_requests_earner,priority:1;not null" json:"earner_id"`
	EarnerType      string          `gorm:"index:idx_withdrawal_requests_earner,priority:2;size:32;not null" json:"earner_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status          string          `gorm:"index:idx_withdrawal_requests_earner,priority:3;index:idx_withdrawal_requests_queue,priority:1;size:16;not null;default:'pending'" json:"status"`
	RequestedAt     time.Time       `gorm:"index:idx_withdrawal_requests_queue,priority:2;not null" json:"requested_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy     string          `gorm:"size:64" json:"processed_by,omitempty"`
	AdminNotes      string          `gorm:"size:255" json:"admin_notes,omitempty"`
	RejectionReason string          `gorm:"size:255" json:"rejection_reason,omitempty"`
	TransactionID   string          `gorm:"size:128" json:"transaction_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// Terminal reports whether the request has been processed.
func (w *WithdrawalRequest) Terminal() bool {
	return w.Status != WithdrawalStatusPending
}
