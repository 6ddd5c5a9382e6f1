package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/controller"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/router"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const sessionPurgeInterval = 10 * time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket stream and price ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, db, cleanup, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			app, err := newApplication(cfg, db)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.sinks.Close(); err != nil {
					logger.Warn("close realtime sinks failed", logger.Fields{"error": err.Error()})
				}
			}()

			return app.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides http.addr")
	return cmd
}

func (a *application) handler() http.Handler {
	auth := middleware.SessionAuth(a.accounts, a.cfg.Session.CookieName)

	return router.New(auth,
		controller.NewAccountController(a.accounts, controller.CookieConfig{
			Name:   a.cfg.Session.CookieName,
			Secure: a.cfg.Session.SecureCookie,
		}),
		controller.NewTradeController(a.settlement, a.portfolio),
		controller.NewPortfolioController(a.portfolio),
		controller.NewMarketController(a.market),
		controller.NewRealtimeController(a.sinks.hub),
		controller.NewHealthController(a.db),
	)
}

// serve runs until ctx is cancelled, then shuts the server down and lets the
// realtime queue drain.
func (a *application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":     srv.Addr,
			"driver":   a.db.Driver(),
			"provider": a.cfg.Quotes.Provider,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("http server shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.sinks.async.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return a.market.RunTicker(gctx, a.cfg.Realtime.TickInterval)
	})

	g.Go(func() error {
		a.purgeSessions(gctx, sessionPurgeInterval)
		return nil
	})

	return g.Wait()
}

func (a *application) purgeSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.accounts.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warn("purge expired sessions failed", logger.Fields{"error": err.Error()})
				continue
			}
			if removed > 0 {
				logger.Info("purged expired sessions", logger.Fields{"count": removed})
			}
		}
	}
}
