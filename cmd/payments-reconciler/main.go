package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/migrate"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/registry"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: consumerName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = consumerName

	logg = logger.New(logger.Options{
		ServiceName: consumerName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var dedupe deduper
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable, reconciling without dedupe")
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		ledger, err := idempotency.NewLedger(redisClient, consumerName, cfg.Outbox.DedupeTTL)
		if err != nil {
			logg.Error(ctx, "failed to build dedupe ledger", err)
			os.Exit(1)
		}
		dedupe = ledger
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workerMetrics := metrics.NewWorkerMetrics(reg)

	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TX:       dbClient,
		Payments: payments.NewRepository(gdb),
		Bookings: bookings.NewRepository(gdb),
		Carts:    cart.NewRepository(gdb),
		Catalog:  catalog.NewRepository(gdb),
		Outbox:   outbox.NewService(outboxRepo, logg),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build checkout service", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Registry:   registry.NewEventRegistry(),
		DLQ:        outbox.NewDLQRepository(gdb),
		Checkout:   checkoutService,
		Dedupe:     dedupe,
		Metrics:    workerMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payments reconciler", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Outbox.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": consumerName,
	})
	logg.Info(ctx, "starting payments reconciler")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "payments reconciler stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "payments reconciler shutting down gracefully")
}
