package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getprisma/email-outbox/internal/config"
	"github.com/getprisma/email-outbox/internal/db"
	"github.com/getprisma/email-outbox/internal/mailer"
	"github.com/getprisma/email-outbox/internal/queue"
	"github.com/getprisma/email-outbox/internal/repository"
	"github.com/getprisma/email-outbox/internal/service"
	"github.com/getprisma/email-outbox/internal/worker"
)

// Standalone outbox worker process. Run at most one worker against a
// given database (delivery is at-least-once); when using this binary,
// start the API with WORKER_ENABLED=false.
func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting email outbox worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the Redis nudge channel when configured
	var nudge <-chan struct{}
	if cfg.Queue.RedisURL != "" {
		queueClient, err := queue.NewRedisClient(queue.RedisConfig{
			URL:       cfg.Queue.RedisURL,
			QueueName: cfg.Queue.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer queueClient.Close()
		nudge = queueClient.Listen(ctx)
	}

	// Initialize dependencies
	emailRepo := repository.NewEmailRepository(database.DB)
	templateSvc := service.NewTemplateService()

	var sender mailer.Sender
	if cfg.Resend.APIKey == "" {
		logger.Warn("RESEND_API_KEY not set, using mock email sender")
		sender = mailer.NewMockSender(0.92)
	} else {
		sender = mailer.NewResendSender(mailer.ResendConfig{
			APIKey:       cfg.Resend.APIKey,
			FromEmail:    cfg.Resend.FromEmail,
			FromName:     cfg.Resend.FromName,
			ReplyToEmail: cfg.Resend.ReplyToEmail,
		})
	}

	outboxWorker := worker.New(emailRepo, sender, templateSvc, nudge, worker.Config{
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
		MaxRetries:   cfg.Worker.MaxRetries,
		SendTimeout:  cfg.Worker.SendTimeout,
	}, logger)

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- outboxWorker.Run(ctx)
	}()

	// Wait for interrupt signal or worker error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		if err != nil && err != context.Canceled {
			logger.Error("worker error", slog.String("error", err.Error()))
			os.Exit(1)
		}

	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))

		outboxWorker.Stop()
		select {
		case <-workerErrors:
		case <-time.After(30 * time.Second):
			logger.Error("worker did not stop in time")
		}

		logger.Info("worker stopped gracefully")
	}
}
