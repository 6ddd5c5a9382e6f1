package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/quote"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/usecase/services"
)

func newQuotesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes",
		Short: "Print the watchlist from the configured quote provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			source, err := newQuoteSource(cfg)
			if err != nil {
				return err
			}

			var quotes []domain.Quote
			var missing []string
			if book, ok := source.(*quote.StaticSource); ok {
				quotes = book.Snapshot()
			} else {
				market := services.NewMarketService(source, nil, services.MarketServiceConfig{
					Currency:    cfg.Ledger.Currency,
					Timeout:     cfg.Quotes.Timeout,
					Concurrency: cfg.Quotes.Concurrency,
				})
				quotes, missing = market.Quotes(context.WithoutCancel(cmd.Context()), cfg.Watchlist())
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tPRICE\tCHANGE %")
			for _, q := range quotes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.Symbol, q.Name, models.FormatMoney(q.Price, cfg.Ledger.Currency), q.ChangePercent.StringFixed(2))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, symbol := range missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "no quote for %s\n", symbol)
			}
			return nil
		},
	}
}
