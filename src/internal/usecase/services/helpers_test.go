package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/repository/implementations"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/usecase/services"
)

type fakeSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	down   bool
	calls  int
	delay  time.Duration
}

func newFakeSource(prices map[string]string) *fakeSource {
	src := &fakeSource{prices: make(map[string]decimal.Decimal)}
	for symbol, price := range prices {
		src.prices[symbol] = decimal.RequireFromString(price)
	}
	return src
}

func (s *fakeSource) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	s.mu.Lock()
	s.calls++
	down, delay := s.down, s.delay
	price, ok := s.prices[symbol]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, ctx.Err())
		}
	}
	if down {
		return domain.Quote{}, fmt.Errorf("%w: provider down", domain.ErrQuoteUnavailable)
	}
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrRecordNotFound, symbol)
	}
	return domain.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now().UTC()}, nil
}

func (s *fakeSource) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) byType(eventType domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type ledger struct {
	db          *implementations.Database
	accountRepo *implementations.AccountRepository
	holdingRepo *implementations.HoldingRepository
	txnRepo     *implementations.TransactionRepository
	accounts    *services.AccountService
	settlement  *services.SettlementService
	portfolio   *services.PortfolioService
	market      *services.MarketService
	source      *fakeSource
	publisher   *recordingPublisher
}

func newLedger(t *testing.T, startingBalance string) *ledger {
	t.Helper()

	ctx := context.Background()
	db, err := implementations.Open(ctx, implementations.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, implementations.RunMigrations(ctx, db, ""))

	l := &ledger{
		db:          db,
		accountRepo: implementations.NewAccountRepository(db),
		holdingRepo: implementations.NewHoldingRepository(db),
		txnRepo:     implementations.NewTransactionRepository(db),
		source:      newFakeSource(map[string]string{"TCS": "100", "INFY": "250.50"}),
		publisher:   &recordingPublisher{},
	}

	l.market = services.NewMarketService(l.source, l.publisher, services.MarketServiceConfig{
		Currency:  "INR",
		Timeout:   time.Second,
		Watchlist: []string{"TCS", "INFY"},
	})
	l.accounts = services.NewAccountService(l.accountRepo, implementations.NewSessionRepository(db), services.AccountServiceConfig{
		Currency:        "INR",
		StartingBalance: decimal.RequireFromString(startingBalance),
		SessionTTL:      time.Hour,
		BcryptCost:      bcrypt.MinCost,
	})
	l.settlement = services.NewSettlementService(
		l.accountRepo,
		l.holdingRepo,
		implementations.NewSettlementRepository(db),
		services.NewAccountLocker(10*time.Second),
		l.market,
		l.publisher,
		"INR",
	)
	l.portfolio = services.NewPortfolioService(implementations.NewSnapshotRepository(db), l.txnRepo, l.market, "INR")
	return l
}

func (l *ledger) newAccount(t *testing.T, username string) domain.Account {
	t.Helper()
	account, err := l.accounts.CreateAccount(context.Background(), username, username+"@example.com", "correct-horse", domain.RoleTrader)
	require.NoError(t, err)
	return account
}

func (l *ledger) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	account, err := l.accountRepo.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	return account.CashBalance
}

func (l *ledger) holding(t *testing.T, accountID, symbol string) (domain.Holding, bool) {
	t.Helper()
	h, err := l.holdingRepo.Get(context.Background(), accountID, symbol)
	if err != nil {
		require.ErrorIs(t, err, domain.ErrRecordNotFound)
		return domain.Holding{}, false
	}
	return h, true
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (l *ledger) sessionRepo() *implementations.SessionRepository {
	return implementations.NewSessionRepository(l.db)
}
