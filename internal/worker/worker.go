package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getprisma/email-outbox/internal/mailer"
	"github.com/getprisma/email-outbox/internal/models"
	"github.com/getprisma/email-outbox/internal/repository"
	"github.com/getprisma/email-outbox/internal/service"
)

// Config holds worker tuning knobs
type Config struct {
	PollInterval time.Duration // default 30s
	BatchSize    int           // records per poll, default 50
	MaxRetries   int           // attempts before dead-lettering, default 3
	SendTimeout  time.Duration // per-send bound, default 30s
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Worker polls the email_communications table and sends due emails.
// One instance per deployment: nothing coordinates concurrent workers,
// so running several against the same store can duplicate sends
// (delivery is at-least-once, not exactly-once).
type Worker struct {
	repo      repository.EmailRepository
	sender    mailer.Sender
	templates service.TemplateService
	cfg       Config
	logger    *slog.Logger

	// nudge lets producers trigger an immediate poll; the interval
	// timer remains the upper bound on poll latency.
	nudge <-chan struct{}

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// New creates a worker. The nudge channel may be nil, in which case the
// loop is driven purely by the poll interval.
func New(
	repo repository.EmailRepository,
	sender mailer.Sender,
	templates service.TemplateService,
	nudge <-chan struct{},
	cfg Config,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		repo:      repo,
		sender:    sender,
		templates: templates,
		nudge:     nudge,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Run executes the poll loop until Stop is called or ctx is cancelled.
// A store that is unreachable at startup is fatal and propagates to the
// caller; once the loop is running, store errors are logged and the
// next interval is awaited.
func (w *Worker) Run(ctx context.Context) error {
	if _, err := w.repo.CountPending(ctx, w.cfg.MaxRetries); err != nil {
		return fmt.Errorf("email store unreachable at startup: %w", err)
	}

	w.running.Store(true)
	defer w.running.Store(false)

	w.logger.Info("email worker started",
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Int("batch_size", w.cfg.BatchSize),
		slog.Int("max_retries", w.cfg.MaxRetries),
	)
	defer w.logger.Info("email worker stopped")

	for {
		w.processPendingEmails(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-w.nudge:
			// poll immediately
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// Stop asks the loop to exit after the record currently being processed.
// It never interrupts an in-flight send: the loop notices the stop at
// the next select, within one poll interval.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Running reports whether the poll loop is active
func (w *Worker) Running() bool {
	return w.running.Load()
}

// processPendingEmails selects one batch of due records and attempts
// each in order. Selection failures are logged, never fatal; a failing
// record does not stop the rest of the batch.
func (w *Worker) processPendingEmails(ctx context.Context) {
	emails, err := w.repo.GetEligible(ctx, w.cfg.MaxRetries, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("failed to query pending emails", slog.String("error", err.Error()))
		return
	}

	if len(emails) == 0 {
		w.logger.Debug("no pending emails to process")
		return
	}

	w.logger.Info("processing pending emails", slog.Int("count", len(emails)))

	for _, email := range emails {
		w.sendEmail(ctx, email)
	}
}

// sendEmail renders and sends one record, then writes the outcome back.
// Render and transport failures share the retry path: an unknown email
// type or missing template key counts as an attempt and dead-letters
// like any provider outage, since only an external fix can clear it.
func (w *Worker) sendEmail(ctx context.Context, email *models.EmailCommunication) {
	w.logger.Info("sending email",
		slog.String("email_id", email.ID),
		slog.String("email_type", string(email.EmailType)),
		slog.String("recipient", email.RecipientEmail),
		slog.Int("attempt", email.RetryCount+1),
	)

	htmlBody, err := w.templates.Render(email.EmailType, email.TemplateData)
	if err != nil {
		w.logger.Error("template rendering failed",
			slog.String("email_id", email.ID),
			slog.String("email_type", string(email.EmailType)),
			slog.String("error", err.Error()),
		)
		w.handleSendFailure(ctx, email, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	resendEmailID, err := w.sender.Send(sendCtx, email.RecipientEmail, email.RecipientName, email.SubjectLine, htmlBody, email.ReplyToEmail)
	cancel()

	if err != nil {
		w.logger.Warn("email send failed",
			slog.String("email_id", email.ID),
			slog.Int("retry_count", email.RetryCount),
			slog.String("error", err.Error()),
		)
		w.handleSendFailure(ctx, email, err)
		return
	}

	if err := w.repo.MarkSent(ctx, email.ID, resendEmailID, w.now().UTC()); err != nil {
		w.logger.Error("failed to mark email as sent",
			slog.String("email_id", email.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Info("email sent successfully",
		slog.String("email_id", email.ID),
		slog.String("resend_email_id", resendEmailID),
	)
}

// handleSendFailure applies the retry/backoff transition for one failed
// attempt: schedule the next retry per the fixed delay table, or move
// the record to the dead letter state once retries are exhausted.
func (w *Worker) handleSendFailure(ctx context.Context, email *models.EmailCommunication, sendErr error) {
	newRetryCount := email.RetryCount + 1

	if newRetryCount >= w.cfg.MaxRetries {
		w.logger.Warn("email moved to dead letter queue",
			slog.String("email_id", email.ID),
			slog.Int("retry_count", newRetryCount),
			slog.Int("max_retries", w.cfg.MaxRetries),
		)

		if err := w.repo.MarkFailed(ctx, email.ID, newRetryCount, sendErr.Error(), w.now().UTC()); err != nil {
			w.logger.Error("failed to mark email as failed",
				slog.String("email_id", email.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	nextRetryAt := w.now().UTC().Add(retryDelay(newRetryCount))

	w.logger.Info("scheduling email retry",
		slog.String("email_id", email.ID),
		slog.Int("retry_count", newRetryCount),
		slog.Int("max_retries", w.cfg.MaxRetries),
		slog.Time("next_retry_at", nextRetryAt),
	)

	if err := w.repo.ScheduleRetry(ctx, email.ID, newRetryCount, sendErr.Error(), nextRetryAt); err != nil {
		w.logger.Error("failed to schedule email retry",
			slog.String("email_id", email.ID),
			slog.String("error", err.Error()),
		)
	}
}
