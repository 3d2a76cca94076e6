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
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewStorefront(registry)
	metrics.RegisterRedisPool(registry, redisClient)
	if sqlDB, err := dbClient.SQL(); err == nil {
		registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, "storefront"))
	}

	services, sessionManager, err := buildServices(cfg, logg, dbClient, redisClient, recorder)
	requireResource(ctx, logg, "services", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			recorder,
			map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			redisClient,
			sessionManager,
			services,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if shutdownErr != nil {
		logg.Error(shutdownCtx, "error during shutdown", shutdownErr)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, recorder *metrics.Storefront) (routes.Services, *session.Manager, error) {
	conn := dbClient.DB()
	productRepo := product.NewRepository(conn)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Services{}, nil, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, nil, err
	}

	productService, err := product.NewService(productRepo)
	if err != nil {
		return routes.Services{}, nil, err
	}

	reviewService, err := reviews.NewService(reviews.NewRepository(conn), productRepo, dbClient)
	if err != nil {
		return routes.Services{}, nil, err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ProductRepo:  productRepo,
	})
	if err != nil {
		return routes.Services{}, nil, err
	}

	orderService, err := orders.NewService(orders.NewRepository(conn), dbClient, recorder)
	if err != nil {
		return routes.Services{}, nil, err
	}

	paymentParams := payments.ServiceParams{
		Orders:   orderService,
		Currency: cfg.Gateway.Currency,
		Recorder: recorder,
		Logger:   logg,
	}
	if cfg.Gateway.Enabled() {
		gateway, err := razorpay.NewClient(
			cfg.Gateway.KeyID,
			cfg.Gateway.KeySecret,
			razorpay.WithBaseURL(cfg.Gateway.BaseURL),
			razorpay.WithHTTPClient(&http.Client{Timeout: cfg.Gateway.Timeout}),
			razorpay.WithRetry(cfg.Gateway.RetryAttempts, cfg.Gateway.RetryBackoff),
			razorpay.WithObserver(recorder.ObserveGateway),
		)
		if err != nil {
			return routes.Services{}, nil, err
		}
		paymentParams.Gateway = gateway
	} else {
		logg.Warn(context.Background(), "payment gateway credentials missing; online payments disabled")
	}
	paymentService, err := payments.NewService(paymentParams)
	if err != nil {
		return routes.Services{}, nil, err
	}

	cartStore, err := cart.NewRedisStore(redisClient)
	if err != nil {
		return routes.Services{}, nil, err
	}
	cartService, err := cart.NewService(cartStore, productService, orderService, cfg.Cart.TTL, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	return routes.Services{
		Auth:     authService,
		Products: productService,
		Reviews:  reviewService,
		Cart:     cartService,
		Orders:   orderService,
		Payments: paymentService,
		Wishlist: wishlistService,
	}, sessionManager, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
