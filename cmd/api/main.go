package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/attarco/attar-backend/api/routes"
	"github.com/attarco/attar-backend/internal/address"
	"github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/internal/cartsync"
	"github.com/attarco/attar-backend/internal/checkout"
	"github.com/attarco/attar-backend/internal/orders"
	"github.com/attarco/attar-backend/internal/payments"
	"github.com/attarco/attar-backend/internal/products"
	"github.com/attarco/attar-backend/internal/users"
	"github.com/attarco/attar-backend/pkg/config"
	"github.com/attarco/attar-backend/pkg/db"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/attarco/attar-backend/pkg/metrics"
	"github.com/attarco/attar-backend/pkg/migrate"
	"github.com/attarco/attar-backend/pkg/razorpay"
	"github.com/attarco/attar-backend/pkg/redis"
)

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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap razorpay", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	productsRepo := products.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	guestStore, err := cartsync.NewGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest cart store", err)
		os.Exit(1)
	}

	signal, err := cartsync.NewSignal(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart signal", err)
		os.Exit(1)
	}

	coordinator, err := cartsync.NewCoordinator(cartService, guestStore, signal, productsRepo, cartMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart coordinator", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(address.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	sessionStore, err := checkout.NewSessionStore(redisClient, cfg.Checkout.SessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout session store", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(sessionStore, usersRepo, addressService, cartService)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, cartService, checkoutService, productsRepo, coordinator, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersRepo, dbClient, gatewayClient, usersRepo, cartService, coordinator, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			coordinator,
			addressService,
			checkoutService,
			ordersService,
			paymentsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
