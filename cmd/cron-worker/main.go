package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/OmarEhab007/cargoparts-sub002/internal/cron"
	"github.com/OmarEhab007/cargoparts-sub002/internal/inventory"
	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
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
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if _, err := env.LoadDotenv(); err != nil {
		logg.Warn(context.Background(), "dotenv file not loaded, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cronMetrics := metrics.NewCronJobMetrics(promRegistry)
	orderMetrics := metrics.NewOrderMetrics(promRegistry)

	locks, err := cron.NewRedisLocker(redisClient, cron.DefaultLockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron locks", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	transitions := orders.NewTransitioner(ordersRepo, inventory.NewLedger(orderMetrics), emitter, orderMetrics)

	timeoutJob, err := cron.NewPaymentTimeoutJob(cron.PaymentTimeoutJobParams{
		Logger:      logg,
		DB:          dbClient,
		Orders:      ordersRepo,
		Transitions: transitions,
		Timeout:     cfg.Payments.Timeout,
		BatchSize:   cfg.Cron.SweepBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment timeout job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Outbox:           outboxRepo,
		Webhooks:         reconciler.NewRepository(),
		OutboxRetention:  time.Duration(cfg.Outbox.RetentionDays) * 24 * time.Hour,
		WebhookRetention: cfg.Payments.WebhookRetention,
		MinAttempts:      cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	jobs := cron.NewRegistry(timeoutJob)
	if err := jobs.Register(retentionJob, cfg.Cron.RetentionInterval); err != nil {
		logg.Error(context.Background(), "failed to register retention job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Locks:    locks,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, promRegistry, logg); err != nil {
			logg.Error(ctx, "metrics endpoint failed", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
