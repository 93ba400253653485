package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "registrar",
		Short: "User registration service with field validation and bcrypt hashing",
		Long: `Registrar accepts user registrations over HTTP.

Each request is validated field by field. Username, email and password
each run an ordered rule chain that stops at the first failure, and the
email chain checks that the address is not already registered. Valid
users are stored with a bcrypt-hashed password.

Quick start:
  registrar serve              # Start the HTTP server
  registrar validate           # Validate configuration

Management:
  registrar users list         # List registered users
  registrar users register     # Register a user from the command line`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "registrar.yaml", "config file path")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
		newUsersCmd(opts),
	)
	return cmd
}
