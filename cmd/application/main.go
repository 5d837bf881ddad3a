package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storefront_api/config"
	"storefront_api/internal/auth"
	"storefront_api/internal/storefront/app"
	"storefront_api/pkg/dbconnect/postgres"
	"storefront_api/pkg/logger"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "storefront",
		Short:   "Storefront API: catalog, checkout and payment fulfillment",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", getEnvDefault("STOREFRONT_CONFIG", ""), "path to YAML config")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db := postgres.NewPgConnector(&cfg.Postgres, cfg.Postgres.MaxOpenConns, log.WithPrefix("[postgres]"))
			return app.NewStorefrontServer(db, cfg, log).Run(ctx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeLog()

			db := postgres.NewPgConnector(&cfg.Postgres, cfg.Postgres.MaxOpenConns, log.WithPrefix("[postgres]"))
			defer db.Close()
			return app.NewStorefrontServer(db, cfg, log).Migrate()
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin console token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(cfg.Auth.JWTSecret, subject, auth.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func setup(configPath string) (*config.AppConfig, *logger.BaseLogger, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var sink io.Writer
	closeLog := func() {}
	if cfg.Log.File != "" {
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = file
		closeLog = func() { file.Close() }
	}
	return cfg, logger.NewLogger(sink, cfg.Log.Prefix), closeLog, nil
}

func getEnvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
