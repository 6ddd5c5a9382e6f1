package quote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Seed is the initial state of one symbol in a StaticSource.
type Seed struct {
	Symbol        string
	Name          string
	Price         decimal.Decimal
	ChangePercent decimal.Decimal
}

// StaticSource is an in-memory quote book. Prices only move through Adjust.
type StaticSource struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	order  []string
	now    func() time.Time
}

func NewStaticSource(seeds []Seed) (*StaticSource, error) {
	s := &StaticSource{
		quotes: make(map[string]domain.Quote, len(seeds)),
		now:    time.Now,
	}
	for _, seed := range seeds {
		symbol, err := domain.NormalizeSymbol(seed.Symbol)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", seed.Symbol, err)
		}
		if !seed.Price.IsPositive() {
			return nil, fmt.Errorf("seed %q: %w", seed.Symbol, domain.ErrInvalidPrice)
		}
		if _, dup := s.quotes[symbol]; dup {
			return nil, fmt.Errorf("seed %q: duplicate symbol", symbol)
		}
		s.quotes[symbol] = domain.Quote{
			Symbol:        symbol,
			Name:          seed.Name,
			Price:         seed.Price,
			Change:        seed.Price.Mul(seed.ChangePercent).Div(hundred).Round(2),
			ChangePercent: seed.ChangePercent,
		}
		s.order = append(s.order, symbol)
	}
	return s, nil
}

func (s *StaticSource) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}

	s.mu.RLock()
	q, ok := s.quotes[symbol]
	s.mu.RUnlock()
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrRecordNotFound, symbol)
	}

	q.FetchedAt = s.now().UTC()
	return q, nil
}

// Adjust moves the price of symbol by percent of its current value and
// records percent as the last change. Prices are kept to two decimals and
// never reach zero.
func (s *StaticSource) Adjust(ctx context.Context, symbol string, percent decimal.Decimal) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrRecordNotFound, symbol)
	}

	next := q.Price.Add(q.Price.Mul(percent).Div(hundred)).Round(2)
	if !next.IsPositive() {
		return domain.Quote{}, domain.ErrInvalidPrice
	}

	q.Change = next.Sub(q.Price)
	q.ChangePercent = percent
	q.Price = next
	s.quotes[symbol] = q

	q.FetchedAt = s.now().UTC()
	return q, nil
}

// Symbols lists the book in seed order.
func (s *StaticSource) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns every quote, sorted by symbol.
func (s *StaticSource) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	out := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		q.FetchedAt = now
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
