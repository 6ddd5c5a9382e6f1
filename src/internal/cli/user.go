package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

func newCreateUserCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		email    string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account, e.g. the first admin",
		Long: "Create an account funded with the configured starting balance.\n" +
			"The password is read from TRADING_USER_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("TRADING_USER_PASSWORD")
			if password == "" {
				return fmt.Errorf("TRADING_USER_PASSWORD must be set")
			}

			cfg, db, cleanup, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			app, err := newApplication(cfg, db)
			if err != nil {
				return err
			}

			account, err := app.accounts.CreateAccount(cmd.Context(), username, email, password, domain.Role(role))
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (%s)\n", account.Role, account.Username, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleTrader), "Role: trader|admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
