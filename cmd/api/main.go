package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/supplyline/api/internal/handlers"
	"github.com/supplyline/api/internal/platform/auth"
	"github.com/supplyline/api/internal/platform/config"
	"github.com/supplyline/api/internal/platform/jobs"
	"github.com/supplyline/api/internal/platform/mailer"
	"github.com/supplyline/api/internal/platform/metrics"
	"github.com/supplyline/api/internal/platform/observability"
	ppostgres "github.com/supplyline/api/internal/platform/postgres"
	pgrepo "github.com/supplyline/api/internal/repositories/postgres"
	"github.com/supplyline/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := ppostgres.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := ppostgres.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	registry, err := pgrepo.NewRegistry(db)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	resolver, err := auth.NewRepositoryResolver(registry.Users())
	if err != nil {
		logger.Fatal("failed to initialise token resolver", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(resolver)

	m := metrics.New()

	queue, consumer, closeQueue, err := newImportQueue(ctx, cfg.Queue)
	if err != nil {
		logger.Fatal("failed to initialise import queue", zap.Error(err))
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Warn("queue close error", zap.Error(err))
		}
	}()

	importService, err := newImportService(cfg, registry, queue, m, logger)
	if err != nil {
		logger.Fatal("failed to initialise import service", zap.Error(err))
	}

	consumerCtx, consumerCancel := context.WithCancel(observability.WithLogger(context.Background(), logger.Named("consumer")))
	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		if err := consumer.Run(consumerCtx, importService.Execute); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("import consumer stopped", zap.Error(err))
		}
	}()

	importHandlers, err := handlers.NewImportHandlers(importService)
	if err != nil {
		logger.Fatal("failed to initialise import handlers", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("postgres", registry.Health().Check),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMetricsHandler(m.Handler()),
		handlers.WithImportRoutes(importHandlers.Register, authenticator.RequireToken()),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("supplyline api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	consumerCancel()
	consumerWG.Wait()
}

// newImportQueue builds the configured queue transport along with its
// consumer half and a close hook for shutdown.
func newImportQueue(ctx context.Context, cfg config.QueueConfig) (jobs.Queue, jobs.Consumer, func() error, error) {
	switch cfg.Mode {
	case "memory":
		q := jobs.NewMemoryQueue(cfg.Buffer, cfg.WorkerCount)
		return q, q, func() error {
			q.Close()
			return nil
		}, nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		q, err := jobs.NewPubSubQueue(client.Topic(cfg.Topic), client.Subscription(cfg.Subscription))
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return q, q, client.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown queue mode %q", cfg.Mode)
	}
}

func newImportService(cfg config.Config, registry *pgrepo.Registry, queue jobs.Queue, m *metrics.Metrics, logger *zap.Logger) (services.ImportService, error) {
	validator, err := services.NewURLValidator(services.URLValidatorDeps{Timeout: cfg.Import.ProbeTimeout})
	if err != nil {
		return nil, err
	}
	fetcher, err := services.NewCatalogFetcher(services.CatalogFetcherDeps{Timeout: cfg.Import.FetchTimeout})
	if err != nil {
		return nil, err
	}
	reconciler, err := services.NewCatalogReconciler(services.CatalogReconcilerDeps{Registry: registry})
	if err != nil {
		return nil, err
	}

	var notifier services.Notifier
	if cfg.SMTP.Enabled() {
		sender, err := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			return nil, err
		}
		notifier, err = services.NewMailNotifier(services.MailNotifierDeps{Sender: sender, From: cfg.SMTP.From})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("smtp host not configured; import notifications disabled")
	}

	return services.NewImportService(services.ImportServiceDeps{
		Registry:    registry,
		Validator:   validator,
		Fetcher:     fetcher,
		Parser:      services.NewCatalogParser(),
		Reconciler:  reconciler,
		Queue:       queue,
		Notifier:    notifier,
		Metrics:     m,
		MaxAttempts: cfg.Import.MaxAttempts,
		BaseDelay:   cfg.Import.BaseDelay,
	})
}
