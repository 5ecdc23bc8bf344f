package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yawasante/databundles-backend/api/routes"
	"github.com/yawasante/databundles-backend/internal/catalog"
	"github.com/yawasante/databundles-backend/internal/fulfillment"
	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/internal/purchases"
	paystackwebhook "github.com/yawasante/databundles-backend/internal/webhooks/paystack"
	wirenetwebhook "github.com/yawasante/databundles-backend/internal/webhooks/wirenet"
	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/db"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/metrics"
	"github.com/yawasante/databundles-backend/pkg/migrate"
	"github.com/yawasante/databundles-backend/pkg/paystack"
	"github.com/yawasante/databundles-backend/pkg/redis"
	"github.com/yawasante/databundles-backend/pkg/wirenet"
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

	gateway, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}
	supplier, err := wirenet.NewClient(cfg.WireNet, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	toggles := catalog.NewToggleSnapshot(catalogRepo)
	if err := toggles.Refresh(context.Background()); err != nil {
		logg.Warn(context.Background(), "service toggles unavailable, starting with defaults")
	}

	promRegistry := prometheus.NewRegistry()
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(promRegistry)

	dispatcher := fulfillment.NewWorkerDispatcher(
		cfg.FeatureFlags.DispatchWorkers,
		cfg.FeatureFlags.DispatchQueueLen,
		logg,
	)
	defer dispatcher.Close()

	fulfillmentService, err := fulfillment.NewService(fulfillment.Params{
		Repo:       ordersRepo,
		Supplier:   supplier,
		Dispatcher: dispatcher,
		Logger:     logg,
		Metrics:    fulfillmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	sweeper, err := fulfillment.NewSweeper(ordersRepo, logg, fulfillmentMetrics, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper", err)
		os.Exit(1)
	}

	purchaseService, err := purchases.NewService(purchases.Params{
		Orders:      ordersRepo,
		Catalog:     catalogRepo,
		Toggles:     toggles,
		Gateway:     gateway,
		Fulfillment: fulfillmentService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	paystackGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "paystack-event")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	paystackWebhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Fulfillment: fulfillmentService,
		Guard:       paystackGuard,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway webhook service", err)
		os.Exit(1)
	}
	wirenetWebhookService, err := wirenetwebhook.NewService(wirenetwebhook.ServiceParams{
		Fulfillment: fulfillmentService,
		Toggles:     toggles,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier webhook service", err)
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
			purchaseService,
			ordersRepo,
			catalogRepo,
			toggles,
			fulfillmentService,
			sweeper,
			supplier,
			gateway,
			paystackWebhookService,
			wirenetWebhookService,
			promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
