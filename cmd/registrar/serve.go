package main

import (
	"fmt"
	"os"

	"github.com/artpar/registrar/bootstrap"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var hotReload bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registration HTTP server",
		Long: `Start the registrar HTTP server.

The server will:
  - Load configuration from registrar.yaml (or --config)
  - Or load configuration from REGISTRAR_* environment variables
  - Open the user store and apply migrations
  - Serve POST /api/1.0/users

Environment variables (for Docker deployments):
  REGISTRAR_DATABASE_DRIVER - memory, sqlite or postgres
  REGISTRAR_DATABASE_DSN    - Database DSN
  REGISTRAR_SERVER_PORT     - Server port (default: 8080)
  REGISTRAR_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  registrar serve
  registrar serve --config /etc/registrar/config.yaml
  registrar serve --hot-reload=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			hasConfigFile := false
			if _, err := os.Stat(root.cfgFile); err == nil {
				hasConfigFile = true
			}
			if !hasConfigFile {
				fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
			}

			app, err := bootstrap.New(cmd.Context(), bootstrap.Options{
				ConfigPath: root.cfgFile,
				HotReload:  hasConfigFile && hotReload,
				Version:    version,
			})
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}

			// Blocks until shutdown.
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
	return cmd
}
