package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/artpar/registrar/bootstrap"
	"github.com/artpar/registrar/config"
	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newUsersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
		Long: `Manage registered users.

Examples:
  registrar users list --limit 20
  registrar users count
  registrar users register --username user1 --email user1@mail.com --password P4ssword`,
	}

	cmd.AddCommand(
		newUsersListCmd(root),
		newUsersCountCmd(root),
		newUsersRegisterCmd(root),
	)
	return cmd
}

func newUsersListCmd(root *rootOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), root, func(ctx context.Context, _ *config.Config, users ports.UserStore) error {
				list, err := users.List(ctx, limit, offset)
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}
				return printUsers(cmd.OutOrStdout(), list)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of users (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of users to skip")
	return cmd
}

func newUsersCountCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), root, func(ctx context.Context, _ *config.Config, users ports.UserStore) error {
				n, err := users.Count(ctx)
				if err != nil {
					return fmt.Errorf("failed to count users: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newUsersRegisterCmd(root *rootOptions) *cobra.Command {
	var req registration.Request

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user through the same validation as the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), root, func(ctx context.Context, cfg *config.Config, users ports.UserStore) error {
				signup := bootstrap.NewSignup(bootstrap.SignupDeps{
					Users:  users,
					Cost:   cfg.Hashing.Cost,
					Logger: zerolog.Nop(),
				})

				out := cmd.OutOrStdout()
				u, err := signup.Handle(ctx, req)
				var verr *registration.ValidationError
				if errors.As(err, &verr) {
					fmt.Fprintln(out, "Registration rejected:")
					for _, field := range verr.Errors.Fields() {
						msg, _ := verr.Errors.Get(field)
						fmt.Fprintf(out, "  %s %s: %s\n", crossMark, field, msg)
					}
					return errors.New("validation failed")
				}
				if err != nil {
					return fmt.Errorf("failed to register user: %w", err)
				}

				fmt.Fprintf(out, "User created: %s\n", u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	return cmd
}

func loadConfig(root *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadWithFallback(root.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// withUserStore opens the configured store for the duration of fn.
func withUserStore(ctx context.Context, root *rootOptions, fn func(context.Context, *config.Config, ports.UserStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	users, closeFn, err := bootstrap.OpenUserStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeFn()

	return fn(ctx, cfg, users)
}

func printUsers(out io.Writer, users []ports.User) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCREATED")
	fmt.Fprintln(w, "--\t--------\t-----\t-------")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
