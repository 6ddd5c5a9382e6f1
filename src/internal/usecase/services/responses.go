package services

import (
	"errors"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

// failure builds an error envelope. Store and unknown errors are reported
// with a generic text so driver details never reach clients.
func failure[T any](message string, err error) commons.Response[T] {
	code := domain.ErrorCode(err)

	detail := err.Error()
	switch {
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrConcurrentUpdate):
		detail = "The account is busy, please retry"
	case errors.Is(err, domain.ErrStorageUnavailable):
		detail = "Storage is temporarily unavailable, please retry"
	case code == "INTERNAL_ERROR":
		detail = "Unable to process request right now"
	}

	return commons.ErrorResponse[T](message, detail).WithCode(code, domain.IsRetryable(err))
}
