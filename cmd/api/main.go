package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/getprisma/email-outbox/internal/config"
	"github.com/getprisma/email-outbox/internal/db"
	"github.com/getprisma/email-outbox/internal/handler"
	"github.com/getprisma/email-outbox/internal/mailer"
	"github.com/getprisma/email-outbox/internal/queue"
	"github.com/getprisma/email-outbox/internal/repository"
	"github.com/getprisma/email-outbox/internal/service"
	"github.com/getprisma/email-outbox/internal/worker"
)

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting email outbox API server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Connect to database
	database, err := db.New(db.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("connected to database")

	// Connect to the Redis nudge channel when configured
	var queueClient queue.Client
	if cfg.Queue.RedisURL != "" {
		queueClient, err = queue.NewRedisClient(queue.RedisConfig{
			URL:       cfg.Queue.RedisURL,
			QueueName: cfg.Queue.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer queueClient.Close()
	} else {
		logger.Info("REDIS_URL not set, worker runs on poll interval only")
	}

	// Initialize repository and services
	emailRepo := repository.NewEmailRepository(database.DB)
	templateSvc := service.NewTemplateService()
	sender := newSender(cfg, logger)

	var notifier service.Notifier
	if queueClient != nil {
		notifier = queueClient
	}

	emailSvc := service.NewEmailService(emailRepo, templateSvc, sender, notifier, cfg.Worker.MaxRetries, logger)

	// Construct the outbox worker. It is the process-wide owner of the
	// send loop; the health endpoint reads its snapshot even when the
	// loop itself is disabled for this process.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var nudge <-chan struct{}
	if queueClient != nil {
		nudge = queueClient.Listen(ctx)
	}

	outboxWorker := worker.New(emailRepo, sender, templateSvc, nudge, worker.Config{
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
		MaxRetries:   cfg.Worker.MaxRetries,
		SendTimeout:  cfg.Worker.SendTimeout,
	}, logger)

	workerErrors := make(chan error, 1)
	if cfg.Worker.Enabled {
		go func() {
			workerErrors <- outboxWorker.Run(ctx)
		}()
	} else {
		logger.Info("outbox worker disabled for this process")
	}

	// Initialize handlers
	emailHandler := handler.NewEmailHandler(emailSvc, outboxWorker, logger)
	healthHandler := handler.NewHealthHandler(database.DB, queueClient, logger)

	// Setup router
	r := chi.NewRouter()
	r.Use(handler.RecoveryMiddleware(logger))
	r.Use(handler.LoggingMiddleware(logger))
	r.Use(handler.CORSMiddleware)

	r.Get("/health", healthHandler.Health)
	emailHandler.RegisterRoutes(r)

	// Create server
	addr := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", slog.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal, server error, or worker failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)

	case err := <-workerErrors:
		if err != nil && err != context.Canceled {
			logger.Error("worker error", slog.String("error", err.Error()))
			os.Exit(1)
		}

	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}

		if cfg.Worker.Enabled {
			outboxWorker.Stop()
			select {
			case <-workerErrors:
			case <-shutdownCtx.Done():
				logger.Error("worker did not stop in time")
			}
		}

		logger.Info("stopped gracefully")
	}
}

// newSender picks the real Resend transport when an API key is
// configured, the mock transport otherwise.
func newSender(cfg *config.Config, logger *slog.Logger) mailer.Sender {
	if cfg.Resend.APIKey == "" {
		logger.Warn("RESEND_API_KEY not set, using mock email sender")
		return mailer.NewMockSender(0.92)
	}

	return mailer.NewResendSender(mailer.ResendConfig{
		APIKey:       cfg.Resend.APIKey,
		FromEmail:    cfg.Resend.FromEmail,
		FromName:     cfg.Resend.FromName,
		ReplyToEmail: cfg.Resend.ReplyToEmail,
	})
}
