package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: unit price must be greater than zero", ErrValidation)
	ErrInvalidSymbol   = fmt.Errorf("%w: symbol is invalid", ErrValidation)

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoSuchHolding      = errors.New("no such holding")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")

	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrLockTimeout        = fmt.Errorf("%w: account is busy", ErrStorageUnavailable)
	ErrConcurrentUpdate   = fmt.Errorf("%w: account was modified concurrently", ErrStorageUnavailable)

	ErrConstraintViolation = errors.New("constraint violation")
	ErrRecordNotFound      = errors.New("record not found")
)

// IsRetryable reports whether the caller may retry the same request with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrQuoteUnavailable)
}

// ErrorCode is the machine readable reason reported to API clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInsufficientShares):
		return "INSUFFICIENT_SHARES"
	case errors.Is(err, ErrNoSuchHolding):
		return "NO_SUCH_HOLDING"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrNotAuthenticated):
		return "NOT_AUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrLockTimeout):
		return "ACCOUNT_BUSY"
	case errors.Is(err, ErrConcurrentUpdate):
		return "CONCURRENT_UPDATE"
	case errors.Is(err, ErrStorageUnavailable):
		return "STORAGE_UNAVAILABLE"
	case errors.Is(err, ErrQuoteUnavailable):
		return "QUOTE_UNAVAILABLE"
	case errors.Is(err, ErrConstraintViolation):
		return "CONFLICT"
	case errors.Is(err, ErrRecordNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}
