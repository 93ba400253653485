package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/registrar/bootstrap"
	"github.com/artpar/registrar/config"
	"github.com/spf13/cobra"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var checkDatabase bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration before deployment",
		Long: `Validate the registrar configuration file.

Checks:
  - YAML syntax is valid
  - Values are in range
  - Database is reachable and migrated (optional)

Examples:
  registrar validate
  registrar validate --config /etc/registrar/config.yaml --check-database`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Validating %s...\n\n", root.cfgFile)

			if _, err := os.Stat(root.cfgFile); os.IsNotExist(err) {
				fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
				return fmt.Errorf("config file not found: %s", root.cfgFile)
			}
			fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

			cfg, err := config.Load(root.cfgFile)
			if err != nil {
				fmt.Fprintf(out, "  %s Config valid\n", crossMark)
				return fmt.Errorf("config error: %w", err)
			}
			fmt.Fprintf(out, "  %s Config valid\n", checkMark)

			fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
			fmt.Fprintf(out, "  %s Database: %s\n", checkMark, cfg.Database.Driver)
			fmt.Fprintf(out, "  %s Hash cost: %d\n", checkMark, cfg.Hashing.Cost)
			fmt.Fprintf(out, "  %s Metrics: %v\n", checkMark, cfg.Metrics.Enabled)
			fmt.Fprintf(out, "  %s Tracing: %s\n", checkMark, cfg.Tracing.Exporter)
			fmt.Fprintf(out, "  %s OpenAPI: %v\n", checkMark, cfg.OpenAPI.Enabled)

			if checkDatabase {
				if err := checkDatabaseReachable(cmd.Context(), cfg.Database); err != nil {
					fmt.Fprintf(out, "  %s Database reachable\n", crossMark)
					fmt.Fprintf(out, "      Error: %v\n", err)
					return err
				}
				fmt.Fprintf(out, "  %s Database reachable\n", checkMark)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Configuration is valid.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkDatabase, "check-database", false, "open the database and apply migrations")
	return cmd
}

func checkDatabaseReachable(ctx context.Context, cfg config.DatabaseConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	users, closeFn, err := bootstrap.OpenUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return users.Ping(ctx)
}
