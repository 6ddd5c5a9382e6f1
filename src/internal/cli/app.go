package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/quote"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/realtime"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/repository/implementations"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/config"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/usecase/services"
)

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// bootstrap loads config, installs the logger and opens a migrated store.
// The returned cleanup closes both.
func bootstrap(ctx context.Context, opts *rootOptions) (config.Config, *implementations.Database, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logger.Init(cfg.Log)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := implementations.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		_ = logCloser.Close()
		return config.Config{}, nil, nil, err
	}

	if err := implementations.RunMigrations(ctx, db, cfg.Database.MigrationsDir); err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return config.Config{}, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database failed", logger.Fields{"error": err.Error()})
		}
		_ = logCloser.Close()
	}
	return cfg, db, cleanup, nil
}

func newQuoteSource(cfg config.Config) (services.QuoteSource, error) {
	switch cfg.Quotes.Provider {
	case config.ProviderHTTP:
		source, err := quote.NewHTTPSource(&http.Client{Timeout: cfg.Quotes.Timeout}, quote.HTTPSourceConfig{
			URLTemplate:  cfg.Quotes.URL,
			APIKey:       cfg.Quotes.APIKey,
			APIKeyHeader: cfg.Quotes.APIKeyHeader,
			Timeout:      cfg.Quotes.Timeout,
			Fields: quote.Fields{
				Price:         cfg.Quotes.Fields.Price,
				Name:          cfg.Quotes.Fields.Name,
				Change:        cfg.Quotes.Fields.Change,
				ChangePercent: cfg.Quotes.Fields.ChangePercent,
			},
		})
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		seeds, err := staticSeeds(cfg.Quotes.Symbols)
		if err != nil {
			return nil, err
		}
		source, err := quote.NewStaticSource(seeds)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
}

func staticSeeds(symbols []config.SymbolSeed) ([]quote.Seed, error) {
	seeds := make([]quote.Seed, 0, len(symbols))
	for _, s := range symbols {
		price, err := decimal.NewFromString(strings.TrimSpace(s.Price))
		if err != nil {
			return nil, fmt.Errorf("symbol %s price: %w", s.Symbol, err)
		}
		change := decimal.Zero
		if strings.TrimSpace(s.Change) != "" {
			if change, err = decimal.NewFromString(strings.TrimSpace(s.Change)); err != nil {
				return nil, fmt.Errorf("symbol %s change: %w", s.Symbol, err)
			}
		}
		seeds = append(seeds, quote.Seed{Symbol: s.Symbol, Name: s.Name, Price: price, ChangePercent: change})
	}
	return seeds, nil
}

// realtimeSinks is the websocket hub plus an optional Kafka mirror, queued
// behind one bounded Async publisher.
type realtimeSinks struct {
	hub   *realtime.Hub
	async *realtime.Async
	kafka *realtime.KafkaPublisher
}

func newRealtimeSinks(cfg config.RealtimeConfig) *realtimeSinks {
	sinks := &realtimeSinks{hub: realtime.NewHub(realtime.OriginChecker(cfg.AllowedOrigins))}

	fanout := realtime.Fanout{sinks.hub}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		sinks.kafka = realtime.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		fanout = append(fanout, sinks.kafka)
	}

	sinks.async = realtime.NewAsync(fanout, cfg.QueueSize, cfg.PublishTimeout)
	return sinks
}

func (s *realtimeSinks) Close() error {
	var errs []error
	if s.kafka != nil {
		errs = append(errs, s.kafka.Close())
	}
	if dropped := s.async.Dropped(); dropped > 0 {
		logger.Warn("realtime events dropped", logger.Fields{"count": dropped})
	}
	return errors.Join(errs...)
}

var _ io.Closer = (*realtimeSinks)(nil)

type application struct {
	cfg        config.Config
	db         *implementations.Database
	market     *services.MarketService
	accounts   *services.AccountService
	settlement *services.SettlementService
	portfolio  *services.PortfolioService
	sinks      *realtimeSinks
}

func newApplication(cfg config.Config, db *implementations.Database) (*application, error) {
	startingBalance, err := cfg.StartingBalance()
	if err != nil {
		return nil, err
	}

	source, err := newQuoteSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build quote source: %w", err)
	}

	sinks := newRealtimeSinks(cfg.Realtime)

	accountRepo := implementations.NewAccountRepository(db)
	holdingRepo := implementations.NewHoldingRepository(db)
	transactionRepo := implementations.NewTransactionRepository(db)

	market := services.NewMarketService(source, sinks.async, services.MarketServiceConfig{
		Currency:    cfg.Ledger.Currency,
		Timeout:     cfg.Quotes.Timeout,
		Concurrency: cfg.Quotes.Concurrency,
		Watchlist:   cfg.Watchlist(),
	})

	return &application{
		cfg:    cfg,
		db:     db,
		market: market,
		accounts: services.NewAccountService(accountRepo, implementations.NewSessionRepository(db), services.AccountServiceConfig{
			Currency:        cfg.Ledger.Currency,
			StartingBalance: startingBalance,
			SessionTTL:      cfg.Session.TTL,
			BcryptCost:      cfg.Session.BcryptCost,
		}),
		settlement: services.NewSettlementService(
			accountRepo,
			holdingRepo,
			implementations.NewSettlementRepository(db),
			services.NewAccountLocker(cfg.Ledger.LockTimeout),
			market,
			sinks.async,
			cfg.Ledger.Currency,
		),
		portfolio: services.NewPortfolioService(implementations.NewSnapshotRepository(db), transactionRepo, market, cfg.Ledger.Currency),
		sinks:     sinks,
	}, nil
}
