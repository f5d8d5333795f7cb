package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftbox-backend/api/controllers"
	"github.com/angelmondragon/giftbox-backend/api/controllers/proxy"
	"github.com/angelmondragon/giftbox-backend/api/middleware"
	"github.com/angelmondragon/giftbox-backend/internal/auth"
	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/internal/personalize"
	"github.com/angelmondragon/giftbox-backend/internal/wishlist"
	"github.com/angelmondragon/giftbox-backend/pkg/auth/session"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Auth        auth.Service
	Catalog     catalog.Service
	Places      controllers.PlacesClient
	Personalize personalize.Service
	Cart        cart.Service
	Payments    payments.Service
	Checkout    checkout.Service
	Bookings    bookings.Service
	Wishlist    wishlist.Service
}

// Proxy holds the collaborators behind the stateless /api/proxy routes.
type Proxy struct {
	AI            proxy.Caller
	Gateway       proxy.OrderCreator
	GatewaySecret string
	Metrics       *metrics.ProxyMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	svc Services,
	px Proxy,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger(redisClient)))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	var idempotencyStore redis.IdempotencyStore
	var rateStore middleware.RateCounterStore
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.AllowedOrigins))

		r.Route("/experiences", func(r chi.Router) {
			r.Get("/", controllers.ExperienceList(svc.Catalog, logg))
			r.Get("/{experienceId}", controllers.ExperienceGet(svc.Catalog, logg))
		})

		r.Route("/places", func(r chi.Router) {
			r.Get("/autocomplete", controllers.PlacesAutocomplete(svc.Places, logg))
			r.Get("/{placeId}", controllers.PlaceLocation(svc.Places, logg))
		})

		r.Route("/personalize", func(r chi.Router) {
			r.Post("/", controllers.WizardStart(svc.Personalize, logg))
			r.Route("/{wizardId}", func(r chi.Router) {
				r.Get("/", controllers.WizardGet(svc.Personalize, logg))
				r.Post("/basics", controllers.WizardBasics(svc.Personalize, logg))
				r.Post("/interests", controllers.WizardInterests(svc.Personalize, logg))
				r.Post("/preferences", controllers.WizardPreferences(svc.Personalize, logg))
				r.Post("/back", controllers.WizardBack(svc.Personalize, logg))
				r.Post("/followup", controllers.WizardFollowup(svc.Personalize, logg))
				r.Post("/start-over", controllers.WizardStartOver(svc.Personalize, logg))
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Idempotency(idempotencyStore, middleware.RegisterIdempotencyTTL, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.LoginRateLimit(cfg.RateLimit.LoginEmailLimit, cfg.RateLimit.LoginWindow, rateStore, logg)).
				Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))
			r.Get("/", controllers.CartView(svc.Cart, logg))
			r.Delete("/", controllers.CartClear(svc.Cart, logg))
			r.Post("/items", controllers.CartAdd(svc.Cart, logg))
			r.Delete("/items/{experienceId}", controllers.CartRemove(svc.Cart, logg))
			r.Patch("/items/{experienceId}/quantity", controllers.CartUpdateQuantity(svc.Cart, logg))
			r.Patch("/items/{experienceId}/date", controllers.CartUpdateDate(svc.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			orderOnce := middleware.Idempotency(idempotencyStore, middleware.RegisterIdempotencyTTL, logg)
			payOnce := middleware.Idempotency(idempotencyStore, middleware.PaymentIdempotencyTTL, logg)

			r.With(orderOnce).Post("/payments/order", controllers.PaymentsCreateOrder(svc.Payments, logg))
			r.With(payOnce).Post("/payments/verify", controllers.PaymentsVerify(svc.Payments, logg))
			r.With(payOnce).Post("/checkout", controllers.Checkout(svc.Checkout, logg))

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", controllers.BookingsList(svc.Bookings, logg))
				r.Get("/{bookingId}", controllers.BookingGet(svc.Bookings, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(svc.Wishlist, logg))
				r.Get("/ids", controllers.WishlistIDs(svc.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(svc.Wishlist, logg))
				r.Delete("/{experienceId}", controllers.WishlistRemove(svc.Wishlist, logg))
			})
		})
	})

	r.Route("/api/proxy", func(r chi.Router) {
		r.Use(middleware.ProxyCORS())
		r.Use(middleware.ProxyRateLimit(cfg.RateLimit.ProxyRequestsPerMinute, rateStore, logg))

		r.HandleFunc("/ai/{endpoint}", proxy.AI(px.AI, px.Metrics, logg))
		r.HandleFunc("/payments/order", proxy.PaymentOrder(px.Gateway, px.Metrics, logg))
		r.HandleFunc("/payments/verify", proxy.PaymentVerify(px.GatewaySecret, px.Metrics, logg))
	})

	return r
}

func redisPinger(c *redis.Client) controllers.Pinger {
	if c == nil {
		return nil
	}
	return c
}
