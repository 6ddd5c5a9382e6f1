package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)
}

// PriceAdjuster is implemented by quote sources whose prices can be moved by
// an operator.
type PriceAdjuster interface {
	Adjust(ctx context.Context, symbol string, percent decimal.Decimal) (domain.Quote, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type MarketServiceConfig struct {
	Currency    string
	Timeout     time.Duration
	Concurrency int
	Watchlist   []string
}

// MarketService fronts the quote source. Every successful fetch updates an
// in-memory last-known book that the portfolio projection falls back to.
type MarketService struct {
	source    QuoteSource
	publisher EventPublisher
	cfg       MarketServiceConfig

	group     singleflight.Group
	mu        sync.RWMutex
	lastKnown map[string]domain.Quote
}

func NewMarketService(source QuoteSource, publisher EventPublisher, cfg MarketServiceConfig) *MarketService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &MarketService{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		lastKnown: make(map[string]domain.Quote),
	}
}

// Quote fetches a live quote. Concurrent callers for the same symbol share
// one upstream request, which is bounded by the configured timeout and not
// by any single caller's context.
func (s *MarketService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	ch := s.group.DoChan(symbol, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()

		q, err := s.source.GetQuote(fetchCtx, symbol)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrQuoteUnavailable) {
				err = fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
			}
			return domain.Quote{}, err
		}
		s.remember(q)
		return q, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Quote{}, res.Err
		}
		return res.Val.(domain.Quote), nil
	case <-ctx.Done():
		return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, ctx.Err())
	}
}

// LastKnown returns the most recent successful quote, flagged stale.
func (s *MarketService) LastKnown(symbol string) (domain.Quote, bool) {
	s.mu.RLock()
	q, ok := s.lastKnown[symbol]
	s.mu.RUnlock()
	if ok {
		q.Stale = true
	}
	return q, ok
}

// Quotes fetches symbols in parallel. A failed fetch falls back to the
// last-known quote; symbols with neither are returned in missing.
func (s *MarketService) Quotes(ctx context.Context, symbols []string) ([]domain.Quote, []string) {
	results := make([]domain.Quote, len(symbols))
	found := make([]bool, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			q, err := s.Quote(ctx, symbol)
			if err != nil {
				if stale, ok := s.LastKnown(symbol); ok {
					results[i], found[i] = stale, true
					return nil
				}
				logger.Warn("market service quote unavailable", logger.Fields{"symbol": symbol, "error": err.Error()})
				return nil
			}
			results[i], found[i] = q, true
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]domain.Quote, 0, len(symbols))
	var missing []string
	for i, symbol := range symbols {
		if found[i] {
			quotes = append(quotes, results[i])
		} else {
			missing = append(missing, symbol)
		}
	}
	return quotes, missing
}

func (s *MarketService) GetQuote(ctx context.Context, symbol string) (commons.Response[models.QuoteResponse], error) {
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			if stale, ok := s.staleQuote(symbol); ok {
				return commons.SuccessResponse("quote retrieved from last known price", models.NewQuoteResponse(stale, s.cfg.Currency)), nil
			}
		}
		logger.Error("market service get quote failed", err, logger.Fields{"symbol": symbol})
		return failure[models.QuoteResponse]("failed to retrieve quote", err), err
	}

	return commons.SuccessResponse("quote retrieved", models.NewQuoteResponse(q, s.cfg.Currency)), nil
}

func (s *MarketService) GetWatchlist(ctx context.Context) (commons.Response[models.QuoteListResponse], error) {
	quotes, missing := s.Quotes(ctx, s.cfg.Watchlist)
	if len(quotes) == 0 && len(s.cfg.Watchlist) > 0 {
		err := fmt.Errorf("%w: no quotes available", domain.ErrQuoteUnavailable)
		return failure[models.QuoteListResponse]("failed to retrieve quotes", err), err
	}

	return commons.SuccessResponse("quotes retrieved", s.quoteList(quotes, missing)), nil
}

// AdjustPrice moves a symbol's price by a percentage. Only admins may do it
// and only when the quote source supports it.
func (s *MarketService) AdjustPrice(ctx context.Context, identity domain.Identity, symbol string, req models.AdjustPriceRequest) (commons.Response[models.QuoteResponse], error) {
	logger.Info("market service adjust price request", logger.Fields{
		"accountId": identity.AccountID,
		"symbol":    symbol,
		"percent":   req.Percent,
	})

	if !identity.IsAdmin() {
		err := domain.ErrForbidden
		logger.Warn("market service adjust price forbidden", logger.Fields{"accountId": identity.AccountID})
		return failure[models.QuoteResponse]("price adjustment requires the admin role", err), err
	}

	normalized, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return failure[models.QuoteResponse]("validation failed", err), err
	}
	if err := req.Validate(); err != nil {
		return failure[models.QuoteResponse]("validation failed", err), err
	}

	adjuster, ok := s.source.(PriceAdjuster)
	if !ok {
		err := fmt.Errorf("%w: quote provider does not support price adjustment", domain.ErrValidation)
		return failure[models.QuoteResponse]("price adjustment unavailable", err), err
	}

	q, err := adjuster.Adjust(ctx, normalized, req.Percent)
	if err != nil {
		logger.Error("market service adjust price failed", err, logger.Fields{"symbol": normalized})
		return failure[models.QuoteResponse]("failed to adjust price", err), err
	}
	s.remember(q)

	logger.Info("market service adjust price success", logger.Fields{
		"symbol": normalized,
		"price":  q.Price,
	})

	s.Tick(ctx)
	return commons.SuccessResponse("price adjusted", models.NewQuoteResponse(q, s.cfg.Currency)), nil
}

// Tick publishes the current watchlist to realtime subscribers.
func (s *MarketService) Tick(ctx context.Context) {
	if len(s.cfg.Watchlist) == 0 {
		return
	}
	quotes, missing := s.Quotes(ctx, s.cfg.Watchlist)
	s.publishQuotes(ctx, quotes, missing)
}

// RunTicker calls Tick every interval until ctx is done.
func (s *MarketService) RunTicker(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *MarketService) remember(q domain.Quote) {
	q.Stale = false
	s.mu.Lock()
	s.lastKnown[q.Symbol] = q
	s.mu.Unlock()
}

func (s *MarketService) staleQuote(raw string) (domain.Quote, bool) {
	symbol, err := domain.NormalizeSymbol(raw)
	if err != nil {
		return domain.Quote{}, false
	}
	return s.LastKnown(symbol)
}

func (s *MarketService) quoteList(quotes []domain.Quote, missing []string) models.QuoteListResponse {
	out := models.QuoteListResponse{
		Quotes:  make([]models.QuoteResponse, 0, len(quotes)),
		Missing: missing,
	}
	for _, q := range quotes {
		out.Quotes = append(out.Quotes, models.NewQuoteResponse(q, s.cfg.Currency))
	}
	return out
}

func (s *MarketService) publishQuotes(ctx context.Context, quotes []domain.Quote, missing []string) {
	if s.publisher == nil || len(quotes) == 0 {
		return
	}
	event := domain.Event{
		Type:    domain.EventQuotes,
		Payload: s.quoteList(quotes, missing),
		At:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("market service publish quotes failed", logger.Fields{"error": err.Error()})
	}
}
