package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/OmarEhab007/cargoparts-sub002/api/routes"
	"github.com/OmarEhab007/cargoparts-sub002/internal/inventory"
	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/internal/payments"
	"github.com/OmarEhab007/cargoparts-sub002/internal/pricing"
	"github.com/OmarEhab007/cargoparts-sub002/internal/reconciler"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/env"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/instance"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/migrate"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/redis"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/square"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if _, err := env.LoadDotenv(); err != nil {
		logg.Warn(context.Background(), "dotenv file not loaded, relying on environment")
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

	registry, err := buildGatewayRegistry(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to configure payment providers", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(promRegistry)

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	ledger := inventory.NewLedger(orderMetrics)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		TX:       dbClient,
		Ledger:   ledger,
		Outbox:   emitter,
		Numbers:  orders.NewNumberGenerator(redisClient, logg),
		Pricing:  pricing.PolicyFromConfig(cfg.Pricing),
		Currency: cfg.Pricing.Currency,
		Metrics:  orderMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Registry: registry,
		Orders:   ordersRepo,
		Repo:     paymentsRepo,
		TX:       dbClient,
		Outbox:   emitter,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookReconciler, err := reconciler.New(reconciler.Params{
		Registry:    registry,
		Orders:      ordersRepo,
		Payments:    paymentsRepo,
		Transitions: orders.NewTransitioner(ordersRepo, ledger, emitter, orderMetrics),
		TX:          dbClient,
		Markers:     redisClient,
		MarkerTTL:   cfg.Payments.WebhookMarkerTTL,
		Metrics:     orderMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook reconciler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.ID(),
		"providers": registry.Providers(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Orders:      ordersService,
			Payments:    paymentsService,
			Reconciler:  webhookReconciler,
			Gatherer:    promRegistry,
			HTTPMetrics: metrics.NewHTTPMetrics(promRegistry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

func buildGatewayRegistry(cfg *config.Config, logg *logger.Logger) (*payments.Registry, error) {
	var gateways []payments.Gateway
	if cfg.Stripe.Enabled() {
		client, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, payments.NewStripeAdapter(client))
	}
	if cfg.Square.Enabled() {
		client, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, payments.NewSquareAdapter(client))
	}
	return payments.NewRegistry(gateways...)
}
