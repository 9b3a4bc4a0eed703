package withdrawal

import "errors"

// Service errors
var (
	ErrInsufficientBalance     = errors.New("insufficient balance for withdrawal")
	ErrDuplicatePendingRequest = errors.New("a pending withdrawal request already exists")
	ErrRequestNotFound         = errors.New("withdrawal request not found")
	ErrAlreadyProcessed        = errors.New("withdrawal request already processed")
	ErrInvalidEarnerType       = errors.New("invalid earner type")
	ErrStorageConflict         = errors.New("operation failed due to concurrent writes, please retry")
)
