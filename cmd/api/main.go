package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/ticket-sla/internal/api/http"
	"github.com/spec-kit/ticket-sla/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla/internal/auth"
	"github.com/spec-kit/ticket-sla/internal/clock"
	"github.com/spec-kit/ticket-sla/internal/config"
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/notification"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/persistence"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := cfg.SLA.BuildRegistry()
	if err != nil {
		logger.Fatal("invalid sla policies", zap.Error(err))
	}
	for _, p := range registry.Policies() {
		logger.Info("sla policy",
			zap.String("priority", string(p.Priority)),
			zap.Duration("response", p.ResponseBudget),
			zap.Duration("resolution", p.ResolutionBudget))
	}

	metrics := observability.NewMetrics()
	sysClock := clock.NewSystemClock()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		ticketRepo  repository.TicketRepository
		historyRepo repository.TicketHistoryRepository
	)
	if pg.Enabled() {
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
		historyRepo = repository.NewTicketHistoryRepository(pg.PoolHandle())
	} else {
		ticketRepo = repository.NewMemoryTicketRepository(sysClock.Now)
		historyRepo = repository.NewMemoryTicketHistoryRepository(sysClock.Now)
	}

	var redis *persistence.Redis
	if cfg.Notification.LogBackend == config.NotificationLogRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
	}
	notificationLog := buildNotificationLog(cfg.Notification, pg, redis, logger)

	outbound, closeOutbound := buildOutbound(cfg.Notification, logger)
	defer closeOutbound()

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, outbound)
	notifier := notification.NewNotifier(notificationLog, notification.NewEventChannel(dispatcher), logger, metrics)

	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Registry:    registry,
		Clock:       sysClock,
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Logger:      logger,
		BatchSize:   cfg.SLA.ScanBatchSize,
	})

	scanner := worker.NewBreachScanner(ticketRepo, notifier, sysClock, worker.ScannerConfig{
		Interval:         cfg.SLA.ScanInterval(),
		BatchSize:        cfg.SLA.ScanBatchSize,
		TerminalLookback: cfg.SLA.TerminalLookback(),
	}, logger, metrics)
	reporter, err := worker.NewComplianceReporter(slaService, sysClock, cfg.SLA.ReportCron, logger, metrics)
	if err != nil {
		logger.Fatal("invalid report schedule", zap.Error(err))
	}
	workers := &worker.Workers{
		Notifications: notificationService,
		Scanner:       scanner,
		Reporter:      reporter,
	}
	if err := workers.Start(ctx); err != nil {
		logger.Fatal("failed to start workers", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return workers.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
	}
}

func buildNotificationLog(cfg config.NotificationConfig, pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) repository.NotificationLog {
	var base repository.NotificationLog
	switch cfg.LogBackend {
	case config.NotificationLogRedis:
		base = repository.NewRedisNotificationLog(redis.Client, 0)
	case config.NotificationLogPostgres:
		if pg.Enabled() {
			base = repository.NewPostgresNotificationLog(pg.PoolHandle())
			break
		}
		logger.Warn("postgres notification log requested without POSTGRES_DSN; using memory")
		base = repository.NewMemoryNotificationLog()
	default:
		base = repository.NewMemoryNotificationLog()
	}
	if cfg.LogCacheTTLSeconds <= 0 {
		return base
	}
	return repository.NewCachedNotificationLog(base, time.Duration(cfg.LogCacheTTLSeconds)*time.Second)
}

func buildOutbound(cfg config.NotificationConfig, logger *zap.Logger) (notification.Channel, func()) {
	channels := notification.MultiChannel{notification.NewLogChannel(logger)}
	closeFn := func() {}

	if cfg.WebhookURL != "" {
		channels = append(channels, notification.NewWebhookChannel(cfg.WebhookURL, cfg.WebhookTimeout()))
		logger.Info("breach webhook enabled", zap.String("url", cfg.WebhookURL))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := notification.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Fatal("failed to create kafka producer", zap.Error(err))
		}
		kafka := notification.NewKafkaChannel(producer, cfg.KafkaTopic)
		channels = append(channels, kafka)
		closeFn = func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("kafka producer close", zap.Error(err))
			}
		}
		logger.Info("breach kafka channel enabled", zap.String("topic", cfg.KafkaTopic))
	}
	return channels, closeFn
}
