package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type stubAuthenticator struct {
	tokens map[string]domain.Identity
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	identity, ok := s.tokens[token]
	if !ok {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}
	return identity, nil
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(identity.AccountID))
	})
}

func TestSessionAuth_AllowsBearerToken(t *testing.T) {
	auth := stubAuthenticator{tokens: map[string]domain.Identity{"tok": {AccountID: "acc-1", Role: domain.RoleTrader}}}
	mw := SessionAuth(auth, "sse_session")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	rr := httptest.NewRecorder()
	mw(echoIdentity()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "acc-1" {
		t.Fatalf("expected acc-1 with 200, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestSessionAuth_AllowsCookie(t *testing.T) {
	auth := stubAuthenticator{tokens: map[string]domain.Identity{"tok": {AccountID: "acc-2"}}}
	mw := SessionAuth(auth, "sse_session")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sse_session", Value: "tok"})

	rr := httptest.NewRecorder()
	mw(echoIdentity()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "acc-2" {
		t.Fatalf("expected acc-2 with 200, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestSessionAuth_RejectsMissingAndUnknownTokens(t *testing.T) {
	mw := SessionAuth(stubAuthenticator{}, "sse_session")

	for _, header := range []string{"", "Bearer nope", "Basic Zm9vOmJhcg=="} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		mw(echoIdentity()).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected status %d, got %d", header, http.StatusUnauthorized, rr.Code)
		}
	}
}

func TestSessionAuth_StorageOutageIsRetryable(t *testing.T) {
	mw := SessionAuth(stubAuthenticator{err: fmt.Errorf("%w: db down", domain.ErrStorageUnavailable)}, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	mw(echoIdentity()).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin)

	cases := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"trader", WithIdentity(context.Background(), domain.Identity{AccountID: "t", Role: domain.RoleTrader}), http.StatusForbidden},
		{"admin", WithIdentity(context.Background(), domain.Identity{AccountID: "a", Role: domain.RoleAdmin}), http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(tc.ctx)
		rr := httptest.NewRecorder()
		mw(echoIdentity()).ServeHTTP(rr, req)
		if rr.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.status, rr.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Fatal("expected request id echoed on response")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected caller request id kept, got %q", seen)
	}
}
