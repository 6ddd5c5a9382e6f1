package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps a service error onto the HTTP status clients see.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoSuchHolding), errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case domain.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respond[T any](w http.ResponseWriter, r *http.Request, start time.Time, okStatus int, response commons.Response[T], err error) {
	if err != nil {
		status := statusFor(err)
		logError(r, err, logger.Fields{"message": response.Message, "code": response.Code})
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, okStatus, response)
	logResponse(r, okStatus, response, start)
}

// decodeBody reads a JSON request body into dst. On failure it has already
// written the 400 response.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, start time.Time, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[T]("invalid request body", err.Error()).WithCode(domain.ErrorCode(domain.ErrValidation), false)
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	logRequest(r, dst)
	return true
}

// identity returns the caller resolved by the session middleware. On failure
// it has already written the 401 response.
func identity[T any](w http.ResponseWriter, r *http.Request, start time.Time) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		err := fmt.Errorf("%w: no session on request", domain.ErrNotAuthenticated)
		response := commons.ErrorResponse[T]("unauthorized").WithCode(domain.ErrorCode(err), false)
		respond(w, r, start, http.StatusOK, response, err)
		return domain.Identity{}, false
	}
	return id, true
}

func protect(handler http.HandlerFunc, wrappers ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = handler
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] != nil {
			h = wrappers[i](h)
		}
	}
	return h
}
