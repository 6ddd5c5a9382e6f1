package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, _, cleanup, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("migrations completed", logger.Fields{"driver": cfg.Database.Driver})
			fmt.Fprintln(cmd.OutOrStdout(), "migrations completed successfully")
			return nil
		},
	}
}
