package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidEarnerType   = errors.New("invalid earner type")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrStorageConflict     = errors.New("operation failed due to concurrent writes, please retry")
	ErrLedgerInconsistent  = errors.New("wallet balance does not match ledger")
)
