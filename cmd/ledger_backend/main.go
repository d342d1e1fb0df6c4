package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	"github.com/SscSPs/mma_ledger/internal/core/projection"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/handlers"
	"github.com/SscSPs/mma_ledger/internal/messaging/rabbitmq"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Ledger backend stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Ledger backend stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stores, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()
	repos := stores.repos

	// --- Projection ---
	projector := projection.NewProjector(repos.JournalRead, repos.AccountRead, logger,
		projection.WithStreamReader(repos.EventStore),
		projection.WithDeadLetters(repos.DeadLetters))
	dispatcher := projection.NewDispatcher(projector, cfg.ProjectionPartitions, logger)

	publishers := messaging.Fanout{dispatcher}
	var consumer *rabbitmq.Consumer
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.LedgerExchange, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		publishers = append(publishers, publisher)

		consumer, err = rabbitmq.NewConsumer(cfg.RabbitMQURL, cfg.LedgerExchange, cfg.ProjectionQueue, cfg.ProjectionBatchSize, projector, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
	}

	serviceContainer := services.NewServiceContainer(cfg, *repos, publishers)

	// --- HTTP ---
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}
	handlers.RegisterRoutes(r, cfg, serviceContainer, rateLimiter, stores.checks...)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	scheduler := cron.New(cron.WithChain(cron.Recover(cronLogger)), cron.WithLogger(cronLogger))
	retrier := projection.NewDeadLetterRetrier(repos.DeadLetters, projector, logger)

	// --- Workers ---
	g, gctx := errgroup.WithContext(ctx)
	if _, err := retrier.Schedule(gctx, scheduler, cfg.DeadLetterRetrySchedule); err != nil {
		return err
	}

	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return dispatcher.Run(gctx) })

	for partition := 0; partition < cfg.ProjectionPartitions; partition++ {
		poller := projection.NewCatchUpPoller(repos.EventStore, repos.Checkpoints, repos.Leases, projector, projection.PollerConfig{
			Partition:  partition,
			Partitions: cfg.ProjectionPartitions,
			BatchSize:  cfg.ProjectionBatchSize,
			Interval:   cfg.ProjectionPollInterval,
			LeaseTTL:   cfg.ProjectionLeaseTTL,
		}, logger)
		g.Go(func() error { return poller.Run(gctx) })
	}

	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}

	scheduler.Start()
	g.Go(func() error {
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	return g.Wait()
}
