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

	"github.com/angelmondragon/giftbox-backend/api/routes"
	"github.com/angelmondragon/giftbox-backend/internal/auth"
	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/internal/personalize"
	"github.com/angelmondragon/giftbox-backend/internal/users"
	"github.com/angelmondragon/giftbox-backend/internal/wishlist"
	"github.com/angelmondragon/giftbox-backend/pkg/auth/session"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/maps"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/migrate"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
	"github.com/angelmondragon/giftbox-backend/pkg/razorpay"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	transportMetrics := metrics.NewTransportMetrics(registry)
	proxyMetrics := metrics.NewProxyMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	aiClient, err := personalizer.NewFromConfig(cfg.Personalizer, transportMetrics)
	requireResource(ctx, logg, "personalizer client", err)

	gateway, err := razorpay.NewFromConfig(cfg.Razorpay)
	requireResource(ctx, logg, "razorpay client", err)

	var places *maps.Client
	if cfg.GoogleMaps.APIKey != "" {
		places, err = maps.NewClient(cfg.GoogleMaps.APIKey)
		requireResource(ctx, logg, "places client", err)
	} else {
		logg.Warn(ctx, "google maps api key not set, places lookup disabled")
	}

	gdb := dbClient.DB()
	catalogRepo := catalog.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	bookingsRepo := bookings.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:          catalogRepo,
		Logger:        logg,
		DefaultRadius: cfg.Proximity.DefaultRadiusKM,
	})
	requireResource(ctx, logg, "catalog service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Guests:  cart.NewGuestStore(redisClient, cfg.Cart.GuestTTL),
		Catalog: catalogRepo,
		Logger:  logg,
	})
	requireResource(ctx, logg, "cart service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gdb),
		SessionManager: sessionManager,
		Carts:          cartService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	personalizeService, err := personalize.NewService(personalize.ServiceParams{
		Transport:       aiClient,
		Resolver:        catalogService,
		Store:           personalize.NewStore(redisClient, cfg.Personalizer.SessionTTL, cfg.Personalizer.LockTTL()),
		Logger:          logg,
		SuggestionCount: cfg.Personalizer.SuggestionCount,
	})
	requireResource(ctx, logg, "personalize service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     paymentsRepo,
		TX:       dbClient,
		Gateway:  gateway,
		Cart:     cartService,
		Outbox:   outboxService,
		Secret:   cfg.Razorpay.KeySecret,
		Currency: enums.Currency(cfg.Razorpay.Currency),
		Logger:   logg,
	})
	requireResource(ctx, logg, "payments service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TX:       dbClient,
		Payments: paymentsRepo,
		Bookings: bookingsRepo,
		Carts:    cartRepo,
		Catalog:  catalogRepo,
		Outbox:   outboxService,
		Logger:   logg,
	})
	requireResource(ctx, logg, "checkout service", err)

	bookingsService, err := bookings.NewService(bookingsRepo)
	requireResource(ctx, logg, "bookings service", err)

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:    wishlist.NewRepository(gdb),
		Catalog: catalogRepo,
	})
	requireResource(ctx, logg, "wishlist service", err)

	svc := routes.Services{
		Auth:        authService,
		Catalog:     catalogService,
		Personalize: personalizeService,
		Cart:        cartService,
		Payments:    paymentsService,
		Checkout:    checkoutService,
		Bookings:    bookingsService,
		Wishlist:    wishlistService,
	}
	if places != nil {
		svc.Places = places
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, svc, routes.Proxy{
			AI:            aiClient,
			Gateway:       gateway,
			GatewaySecret: cfg.Razorpay.KeySecret,
			Metrics:       proxyMetrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
