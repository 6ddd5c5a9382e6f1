package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type tokenAuth map[string]domain.Identity

func (a tokenAuth) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	identity, ok := a[token]
	if !ok {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}
	return identity, nil
}

var testAuth = tokenAuth{
	"trader-token": {AccountID: "acc-1", Username: "asha", Role: domain.RoleTrader},
	"admin-token":  {AccountID: "acc-0", Username: "root", Role: domain.RoleAdmin},
}

type tradeServiceStub struct {
	gotAccount string
	gotSide    domain.Side
	err        error
}

func (s *tradeServiceStub) PlaceTrade(_ context.Context, accountID string, side domain.Side, req models.TradeRequest) (commons.Response[models.TradeResponse], error) {
	s.gotAccount, s.gotSide = accountID, side
	if s.err != nil {
		return commons.ErrorResponse[models.TradeResponse]("trade rejected", s.err.Error()).WithCode(domain.ErrorCode(s.err), domain.IsRetryable(s.err)), s.err
	}
	return commons.SuccessResponse("trade settled", models.TradeResponse{
		Transaction: models.TransactionResponse{Symbol: req.Symbol, Side: string(side), Quantity: req.Quantity},
	}), nil
}

type transactionServiceStub struct {
	gotLimit int
}

func (s *transactionServiceStub) GetTransactions(_ context.Context, _ string, limit int) (commons.Response[models.TransactionListResponse], error) {
	s.gotLimit = limit
	return commons.SuccessResponse("transactions retrieved", models.TransactionListResponse{}), nil
}

type accountServiceStub struct{}

func (accountServiceStub) Register(_ context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error) {
	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}
	if req.Username == "taken" {
		err := fmt.Errorf("%w: username", domain.ErrConstraintViolation)
		return commons.ErrorResponse[models.AccountResponse]("username or email already registered"), err
	}
	return commons.SuccessResponse("account registered", models.AccountResponse{Username: req.Username}), nil
}

func (accountServiceStub) Login(_ context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error) {
	if req.Password != "correct-horse" {
		return commons.ErrorResponse[models.LoginResponse]("invalid username or password"), domain.ErrNotAuthenticated
	}
	return commons.SuccessResponse("logged in", models.LoginResponse{Token: "trader-token", ExpiresAt: "2030-01-01T00:00:00Z"}), nil
}

func (accountServiceStub) Logout(_ context.Context, token string) (commons.Response[models.LogoutResponse], error) {
	return commons.SuccessResponse("logged out", models.LogoutResponse{LoggedOut: token != ""}), nil
}

func (accountServiceStub) Me(_ context.Context, identity domain.Identity) (commons.Response[models.AccountResponse], error) {
	return commons.SuccessResponse("account retrieved", models.AccountResponse{ID: identity.AccountID, Username: identity.Username}), nil
}

type marketServiceStub struct {
	adjustedBy string
}

func (s *marketServiceStub) GetQuote(_ context.Context, symbol string) (commons.Response[models.QuoteResponse], error) {
	if symbol == "NOPE" {
		err := fmt.Errorf("%w: unknown symbol", domain.ErrRecordNotFound)
		return commons.ErrorResponse[models.QuoteResponse]("failed to retrieve quote"), err
	}
	if symbol == "DOWN" {
		err := fmt.Errorf("%w: provider timeout", domain.ErrQuoteUnavailable)
		return commons.ErrorResponse[models.QuoteResponse]("failed to retrieve quote").WithCode("QUOTE_UNAVAILABLE", true), err
	}
	return commons.SuccessResponse("quote retrieved", models.QuoteResponse{Symbol: symbol}), nil
}

func (s *marketServiceStub) GetWatchlist(context.Context) (commons.Response[models.QuoteListResponse], error) {
	return commons.SuccessResponse("quotes retrieved", models.QuoteListResponse{}), nil
}

func (s *marketServiceStub) AdjustPrice(_ context.Context, identity domain.Identity, symbol string, _ models.AdjustPriceRequest) (commons.Response[models.QuoteResponse], error) {
	s.adjustedBy = identity.AccountID
	return commons.SuccessResponse("price adjusted", models.QuoteResponse{Symbol: symbol}), nil
}

func newTestMux(trades *tradeServiceStub, txns *transactionServiceStub, market *marketServiceStub) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.SessionAuth(testAuth, "sse_session")
	NewAccountController(accountServiceStub{}, CookieConfig{Name: "sse_session"}).RegisterRoutes(mux, auth)
	NewTradeController(trades, txns).RegisterRoutes(mux, auth)
	NewMarketController(market).RegisterRoutes(mux, auth)
	NewHealthController(nil).RegisterRoutes(mux, auth)
	return mux
}

func do(mux http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("%w: bad", domain.ErrValidation): http.StatusBadRequest,
		domain.ErrInvalidQuantity:                   http.StatusBadRequest,
		domain.ErrNotAuthenticated:                  http.StatusUnauthorized,
		domain.ErrForbidden:                         http.StatusForbidden,
		domain.ErrNoSuchHolding:                     http.StatusNotFound,
		domain.ErrRecordNotFound:                    http.StatusNotFound,
		domain.ErrConstraintViolation:               http.StatusConflict,
		domain.ErrInsufficientFunds:                 http.StatusUnprocessableEntity,
		domain.ErrInsufficientShares:                http.StatusUnprocessableEntity,
		domain.ErrLockTimeout:                       http.StatusServiceUnavailable,
		domain.ErrQuoteUnavailable:                  http.StatusServiceUnavailable,
		errors.New("boom"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func TestTradeRoutesRequireSession(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	rr := do(mux, http.MethodPost, "/api/trades/buy", "", `{"symbol":"TCS","quantity":1}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestBuyUsesSessionAccount(t *testing.T) {
	trades := &tradeServiceStub{}
	mux := newTestMux(trades, &transactionServiceStub{}, &marketServiceStub{})

	rr := do(mux, http.MethodPost, "/api/trades/buy", "trader-token", `{"symbol":"TCS","quantity":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if trades.gotAccount != "acc-1" || trades.gotSide != domain.SideBuy {
		t.Fatalf("unexpected trade call account=%s side=%s", trades.gotAccount, trades.gotSide)
	}

	var body commons.Response[models.TradeResponse]
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Data.Transaction.Quantity != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSellRejectionStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{domain.ErrNoSuchHolding, http.StatusNotFound},
		{domain.ErrLockTimeout, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		mux := newTestMux(&tradeServiceStub{err: tc.err}, &transactionServiceStub{}, &marketServiceStub{})
		rr := do(mux, http.MethodPost, "/api/trades/sell", "trader-token", `{"symbol":"TCS","quantity":3}`)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rr.Code)
		}
		if tc.status == http.StatusServiceUnavailable && rr.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header on retryable failure")
		}
	}
}

func TestTradeRejectsMalformedBody(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	rr := do(mux, http.MethodPost, "/api/trades/buy", "trader-token", `{"symbol":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestTransactionsLimit(t *testing.T) {
	txns := &transactionServiceStub{}
	mux := newTestMux(&tradeServiceStub{}, txns, &marketServiceStub{})

	if rr := do(mux, http.MethodGet, "/api/transactions?limit=5", "trader-token", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if txns.gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", txns.gotLimit)
	}
	if rr := do(mux, http.MethodGet, "/api/transactions?limit=abc", "trader-token", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	rr := do(mux, http.MethodPost, "/api/register", "", `{"username":"asha","email":"asha@example.com","password":"correct-horse"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = do(mux, http.MethodPost, "/api/register", "", `{"username":"taken","email":"t@example.com","password":"correct-horse"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}

	rr = do(mux, http.MethodPost, "/api/login", "", `{"username":"asha","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	rr = do(mux, http.MethodPost, "/api/login", "", `{"username":"asha","password":"correct-horse"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sse_session" || cookies[0].Value != "trader-token" || !cookies[0].HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookies)
	}
}

func TestMeWithCookie(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "sse_session", Value: "trader-token"})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"acc-1"`) {
		t.Fatalf("expected own account, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	rr := do(mux, http.MethodPost, "/api/logout", "trader-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cookie removal, got %+v", cookies)
	}
}

func TestQuoteRoutes(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	if rr := do(mux, http.MethodGet, "/api/quotes", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/api/quotes/TCS", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/api/quotes/NOPE", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	rr := do(mux, http.MethodGet, "/api/quotes/DOWN", "", "")
	if rr.Code != http.StatusServiceUnavailable || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected retryable 503, got %d", rr.Code)
	}
}

func TestAdjustPriceRequiresAdmin(t *testing.T) {
	market := &marketServiceStub{}
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, market)

	rr := do(mux, http.MethodPost, "/api/admin/prices/TCS/adjust", "trader-token", `{"percent":"5"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
	if market.adjustedBy != "" {
		t.Fatal("service must not be reached without the admin role")
	}

	rr = do(mux, http.MethodPost, "/api/admin/prices/TCS/adjust", "admin-token", `{"percent":"5"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if market.adjustedBy != "acc-0" {
		t.Fatalf("expected admin account on call, got %q", market.adjustedBy)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(&tradeServiceStub{}, &transactionServiceStub{}, &marketServiceStub{})

	if rr := do(mux, http.MethodGet, "/api/trades/buy", "trader-token", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthController(nil).RegisterRoutes(mux, nil)
	if rr := do(mux, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	mux = http.NewServeMux()
	NewHealthController(failingPinger{}).RegisterRoutes(mux, nil)
	if rr := do(mux, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}
