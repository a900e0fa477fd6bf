package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jurzon/backy/internal/app"
	"github.com/jurzon/backy/internal/shared/infrastructure/eventbus"
	"github.com/jurzon/backy/internal/shared/infrastructure/jobs"
	"github.com/jurzon/backy/pkg/config"
	"github.com/jurzon/backy/pkg/observability"
)

const cleanupInterval = time.Hour

func main() {
	logger := observability.LoggerFromEnv("backy-worker")
	logger.Info("starting backy worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewInMemoryMetrics()
	container, err := app.NewContainer(ctx, cfg, logger, app.WithMetrics(metrics))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Event bus: RabbitMQ when configured, otherwise in-process delivery.
	var (
		publisher  eventbus.Publisher
		subscriber eventbus.Subscriber
	)
	if cfg.RabbitMQURL != "" {
		rabbitPublisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer rabbitPublisher.Close()
		rabbitSubscriber, err := eventbus.NewRabbitMQSubscriber(eventbus.RabbitMQConfig{URL: cfg.RabbitMQURL, Logger: logger})
		if err != nil {
			logger.Error("failed to subscribe to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer rabbitSubscriber.Close()
		publisher, subscriber = rabbitPublisher, rabbitSubscriber
	} else {
		bus := eventbus.NewInProcessBus(logger)
		publisher, subscriber = bus, bus
		logger.Info("RABBITMQ_URL not set, delivering events in-process")
	}
	for _, handler := range container.EventHandlers() {
		if err := subscriber.Subscribe(handler); err != nil {
			logger.Error("failed to subscribe handler", "routing_keys", handler.RoutingKeys(), "error", err)
			os.Exit(1)
		}
	}
	go func() {
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event subscriber stopped", "error", err)
			cancel()
		}
	}()

	processor := container.NewOutboxProcessor(publisher)
	if cfg.OutboxProcessorEnabled {
		if err := processor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			os.Exit(1)
		}
		defer processor.Stop()
	}

	go pruneOutbox(ctx, container)

	loc, err := time.LoadLocation(cfg.WorkerTimezone)
	if err != nil {
		logger.Error("invalid WORKER_TIMEZONE", "error", err)
		os.Exit(1)
	}
	scheduler := jobs.NewScheduler(container.JobRunner, loc, logger)
	for _, sj := range container.ScheduledJobs() {
		if err := scheduler.Add(sj.Spec, sj.Job); err != nil {
			logger.Error("failed to schedule job", "error", err)
			os.Exit(1)
		}
	}

	if cfg.HealthAddr != "" {
		healthSrv := newHealthServer(cfg.HealthAddr, container)
		go func() {
			logger.Info("health server starting", "addr", cfg.HealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	// Blocks until a signal arrives and running jobs have finished.
	_ = scheduler.Run(ctx)
	logger.Info("worker stopped")
}

func pruneOutbox(ctx context.Context, container *app.Container) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := container.PruneOutbox(ctx)
			if err != nil {
				container.Logger.Error("outbox cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				container.Logger.Info("outbox cleanup completed",
					"deleted", deleted,
					"retention_days", container.Config.OutboxRetentionDays,
				)
			}
		}
	}
}

func newHealthServer(addr string, container *app.Container) *http.Server {
	health := observability.NewHealthRegistry()
	health.Register("database", observability.PingChecker("database", true, container.DBConn.Ping))
	if container.RedisClient != nil {
		health.Register("redis", observability.PingChecker("redis", false, func(ctx context.Context) error {
			return container.RedisClient.Ping(ctx).Err()
		}))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", observability.LiveHandler())
	mux.Handle("/readyz", health.ReadyHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
