package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	return identity, ok
}

// SessionAuth resolves the session token from a Bearer header or the session
// cookie and stores the caller's identity on the request context.
func SessionAuth(auth Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				logger.Error("session auth middleware missing authenticator", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeError(w, http.StatusInternalServerError, "server auth configuration is missing", "INTERNAL_ERROR", false)
				return
			}

			token := SessionToken(r, cookieName)
			if token == "" {
				logger.Info("session auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "missing",
				})
				writeError(w, http.StatusUnauthorized, "unauthorized", "NOT_AUTHENTICATED", false)
				return
			}

			identity, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if domain.IsRetryable(err) {
					logger.Error("session auth middleware lookup failed", err, logger.Fields{"path": r.URL.Path})
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusServiceUnavailable, "session lookup unavailable", domain.ErrorCode(err), true)
					return
				}
				logger.Info("session auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_expired",
				})
				writeError(w, http.StatusUnauthorized, "unauthorized", "NOT_AUTHENTICATED", false)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects authenticated callers without the given role. It must
// run inside SessionAuth.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "NOT_AUTHENTICATED", false)
				return
			}
			if identity.Role != role {
				logger.Warn("role middleware forbidden request", logger.Fields{
					"accountId": identity.AccountID,
					"path":      r.URL.Path,
					"required":  string(role),
				})
				writeError(w, http.StatusForbidden, "forbidden", domain.ErrorCode(domain.ErrForbidden), false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SessionToken(r *http.Request, cookieName string) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			logger.Debug("session cookie unreadable", logger.Fields{"error": err.Error()})
		}
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func writeError(w http.ResponseWriter, status int, message, code string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(commons.ErrorResponse[struct{}](message).WithCode(code, retryable))
}
