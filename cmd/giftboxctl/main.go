// Command giftboxctl runs one-off maintenance against the giftbox database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// app holds the resources shared by every subcommand.
type app struct {
	cfg     *config.Config
	logg    *logger.Logger
	db      *db.Client
	catalog *catalog.Repository
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logg.Error(context.Background(), "error closing database", err)
	}
}

func bootstrap(ctx context.Context) (*app, error) {
	logg := logger.New(logger.Options{ServiceName: "giftboxctl"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "giftboxctl"
	logg = logger.New(logger.Options{
		ServiceName: "giftboxctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	return &app{
		cfg:     cfg,
		logg:    logg,
		db:      dbClient,
		catalog: catalog.NewRepository(dbClient.DB()),
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "giftboxctl",
		Short:         "Catalog and database maintenance for the giftbox backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBackfillCmd(), newRepairCmd(), newRunJobsCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "giftboxctl:", err)
		os.Exit(1)
	}
}
