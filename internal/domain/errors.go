package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNoCapacity            = errors.New("no machine available for tier")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrInvalidState          = errors.New("invalid state")
)

// IsRetryable reports whether err is transient. Only dependency failures are;
// every other error is deterministic for the same inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependencyUnavailable)
}
