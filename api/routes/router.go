package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attarco/attar-backend/api/controllers"
	addresscontrollers "github.com/attarco/attar-backend/api/controllers/addresses"
	cartcontrollers "github.com/attarco/attar-backend/api/controllers/cart"
	checkoutcontrollers "github.com/attarco/attar-backend/api/controllers/checkout"
	ordercontrollers "github.com/attarco/attar-backend/api/controllers/orders"
	paymentcontrollers "github.com/attarco/attar-backend/api/controllers/payments"
	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/internal/address"
	checkoutsvc "github.com/attarco/attar-backend/internal/checkout"
	orderssvc "github.com/attarco/attar-backend/internal/orders"
	paymentssvc "github.com/attarco/attar-backend/internal/payments"
	"github.com/attarco/attar-backend/pkg/config"
	"github.com/attarco/attar-backend/pkg/logger"
	pkgredis "github.com/attarco/attar-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	cartSyncer cartcontrollers.Syncer,
	addressService address.Service,
	checkoutService checkoutsvc.Service,
	ordersService orderssvc.Service,
	paymentsService paymentssvc.Service,
) http.Handler {
	r := chi.NewRouter()

	var cachePinger controllers.Pinger
	var idemStore pkgredis.IdempotencyStore
	if redisClient != nil {
		cachePinger = redisClient
		idemStore = redisClient
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.Session(logg),
		)
		r.Get("/", cartcontrollers.Fetch(cartSyncer, logg))
		r.Post("/", cartcontrollers.Add(cartSyncer, logg))
		r.Put("/", cartcontrollers.SetQuantity(cartSyncer, logg))
		r.Delete("/", cartcontrollers.Remove(cartSyncer, logg))
		r.Post("/sync", cartcontrollers.Sync(cartSyncer, logg))
	})

	r.Route("/api/user/addresses", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", addresscontrollers.List(addressService, logg))
		r.Post("/", addresscontrollers.Create(addressService, logg))
		r.Put("/{addressId}", addresscontrollers.Update(addressService, logg))
	})

	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", checkoutcontrollers.Begin(checkoutService, logg))
		r.Post("/contact", checkoutcontrollers.SubmitContact(checkoutService, logg))
		r.Post("/address", checkoutcontrollers.SelectAddress(checkoutService, logg))
		r.Post("/back", checkoutcontrollers.Back(checkoutService, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Session(logg),
			middleware.Idempotency(idemStore, logg),
		)
		r.Post("/", ordercontrollers.Create(ordersService, logg))
		r.Get("/", ordercontrollers.List(ordersService, logg))
		r.Get("/{orderId}", ordercontrollers.Get(ordersService, logg))
	})

	r.Route("/api/payment/razorpay", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Session(logg),
			middleware.Idempotency(idemStore, logg),
		)
		r.Post("/create", paymentcontrollers.Create(paymentsService, logg))
		r.Post("/verify", paymentcontrollers.Verify(paymentsService, logg))
	})

	return r
}
