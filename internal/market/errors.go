package market

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. All are returned synchronously and
// matched by callers with errors.Is.
var (
	ErrAlreadyInitialized = errors.New("protocol registry already initialized")
	ErrNotInitialized     = errors.New("protocol registry not initialized")
	ErrAlreadyExists      = errors.New("token factory already exists")
	ErrNotFound           = errors.New("token factory not found")
	ErrInactive           = errors.New("token factory is deactivated")
	ErrInvalidAmount      = errors.New("purchase amount must be at least 1")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	// ErrConcurrentModification is returned by stores using optimistic
	// concurrency when the supply changed between read and write.
	ErrConcurrentModification = errors.New("token supply changed between read and write")
)

// InsufficientFundsError reports a buyer balance below the total cost of a
// purchase. It matches ErrInsufficientFunds via errors.Is.
type InsufficientFundsError struct {
	Account  string
	Balance  uint64
	Required uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s holds %d lamports, purchase requires %d",
		e.Account, e.Balance, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
