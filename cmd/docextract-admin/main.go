// Package main provides docextract-admin, the operator CLI for schema
// migrations, user bootstrap and API key issuance.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/migrate"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/repository"
	"github.com/docextract/docextract/internal/service"
)

const commandTimeout = 30 * time.Second

type globalOptions struct {
	databaseURL string
	format      string
}

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "docextract-admin",
		Short:         "Administer a docextract deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			if opts.format != "plain" && opts.format != "json" {
				return fmt.Errorf("--format must be plain or json, got %q", opts.format)
			}
			return nil
		},
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "plain", "Output format: plain or json")

	cmd.AddCommand(migrateCmd(opts), userCmd(opts), keyCmd(opts))
	return cmd
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			db, err := sql.Open("postgres", opts.databaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			applied, err := migrate.Up(ctx, db, logger)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), opts.format, map[string]int{"applied": applied},
				fmt.Sprintf("applied %d migration(s)", applied))
		},
	}
}

func userCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var user model.User
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.UserID == "" {
				return fmt.Errorf("--user-id is required")
			}
			return withUserService(cmd.Context(), opts, "", auth.EnvLive, func(ctx context.Context, svc *service.UserService) error {
				if err := svc.Create(ctx, &user); err != nil {
					return err
				}
				return emit(cmd.OutOrStdout(), opts.format, user, "User created successfully")
			})
		},
	}
	create.Flags().StringVar(&user.UserID, "user-id", "", "User ID")
	create.Flags().StringVar(&user.Name, "name", "", "Display name")
	create.Flags().StringVar(&user.Email, "email", "", "Email address")
	create.Flags().Int64Var(&user.APICredits, "credits", 0, "Initial API credits")

	cmd.AddCommand(create)
	return cmd
}

func keyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}

	var (
		userID string
		pepper string
		env    string
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an API key for an existing user; the plaintext is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			if env != auth.EnvLive && env != auth.EnvTest {
				return fmt.Errorf("--env must be %s or %s", auth.EnvLive, auth.EnvTest)
			}
			return withUserService(cmd.Context(), opts, pepper, env, func(ctx context.Context, svc *service.UserService) error {
				resp, err := svc.IssueAPIKey(ctx, userID)
				if err != nil {
					return err
				}
				return emit(cmd.OutOrStdout(), opts.format, resp, resp.APIKey)
			})
		},
	}
	issue.Flags().StringVar(&userID, "user-id", "", "Owning user ID")
	issue.Flags().StringVar(&pepper, "pepper", os.Getenv("API_KEY_PEPPER"), "Digest pepper; must match the server's API_KEY_PEPPER")
	issue.Flags().StringVar(&env, "env", auth.EnvLive, "Key namespace: live or test")

	cmd.AddCommand(issue)
	return cmd
}

func withUserService(parent context.Context, opts *globalOptions, pepper, keyEnv string, fn func(context.Context, *service.UserService) error) error {
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	repo, err := repository.New(ctx, opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewUserService(repo, auth.NewDigester(pepper), keyEnv, nil, logger)
	return fn(ctx, svc)
}

// emit prints v as JSON or the plain line.
func emit(w io.Writer, format string, v any, plain string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, plain)
	return err
}
