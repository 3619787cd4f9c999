package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/getprisma/email-outbox/internal/mailer"
	"github.com/getprisma/email-outbox/internal/models"
	"github.com/getprisma/email-outbox/internal/repository"
)

// Notifier wakes the worker after new records are enqueued. Optional:
// without one the worker still picks records up on its next poll.
type Notifier interface {
	Notify(ctx context.Context) error
}

// EmailStats is the aggregate summary for the stats endpoint
type EmailStats struct {
	TotalSent      int64   `json:"total_sent"`
	TotalPending   int64   `json:"total_pending"`
	TotalFailed    int64   `json:"total_failed"`
	TotalDelivered int64   `json:"total_delivered"`
	TotalOpened    int64   `json:"total_opened"`
	OpenRate       float64 `json:"open_rate"`
}

// EnqueueEmailInput describes a new outbox record
type EnqueueEmailInput struct {
	EmailType      models.EmailType  `json:"email_type"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	ReplyToEmail   *string           `json:"reply_to_email,omitempty"`
	SubjectLine    string            `json:"subject_line"`
	TemplateData   map[string]string `json:"template_data"`
}

// EmailService exposes the email management operations consumed by the
// HTTP layer: listing projections, the manual retry reset, delivery
// webhook application, stats, and enqueueing/test sends.
type EmailService interface {
	Enqueue(ctx context.Context, input EnqueueEmailInput) (*models.EmailCommunication, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error)
	ListFailed(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error)
	Get(ctx context.Context, id string) (*models.EmailCommunication, error)
	RetryReset(ctx context.Context, ids []string) (int64, error)
	ApplyDeliveryEvent(ctx context.Context, eventType, resendEmailID string) (processed bool, reason string)
	Stats(ctx context.Context) (*EmailStats, error)
	SendTest(ctx context.Context, recipientEmail, recipientName string) (string, error)
}

type emailService struct {
	repo       repository.EmailRepository
	templates  TemplateService
	sender     mailer.Sender
	notifier   Notifier
	maxRetries int
	logger     *slog.Logger
}

// NewEmailService creates a new email service. notifier may be nil.
func NewEmailService(
	repo repository.EmailRepository,
	templates TemplateService,
	sender mailer.Sender,
	notifier Notifier,
	maxRetries int,
	logger *slog.Logger,
) EmailService {
	return &emailService{
		repo:       repo,
		templates:  templates,
		sender:     sender,
		notifier:   notifier,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Enqueue persists a new pending record and nudges the worker
func (s *emailService) Enqueue(ctx context.Context, input EnqueueEmailInput) (*models.EmailCommunication, error) {
	if input.RecipientEmail == "" {
		return nil, models.ErrInvalidInput("recipient_email is required")
	}
	if input.SubjectLine == "" {
		return nil, models.ErrInvalidInput("subject_line is required")
	}
	if !isKnownEmailType(input.EmailType) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("unknown email_type: %q", input.EmailType))
	}

	email := &models.EmailCommunication{
		EmailType:      input.EmailType,
		RecipientEmail: input.RecipientEmail,
		RecipientName:  input.RecipientName,
		ReplyToEmail:   input.ReplyToEmail,
		SubjectLine:    input.SubjectLine,
		TemplateData:   input.TemplateData,
		Status:         models.EmailStatusPending,
	}

	if err := s.repo.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to enqueue email: %w", err)
	}

	s.logger.Info("email enqueued",
		slog.String("email_id", email.ID),
		slog.String("email_type", string(email.EmailType)),
		slog.String("recipient", email.RecipientEmail),
	)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx); err != nil {
			// The worker polls on an interval anyway; a lost nudge only
			// delays the send.
			s.logger.Warn("failed to nudge worker", slog.String("error", err.Error()))
		}
	}

	return email, nil
}

// ListPending returns unsent emails, including those awaiting retry
func (s *emailService) ListPending(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error) {
	models.ClampLimitOffset(&limit, &offset)
	return s.repo.ListPending(ctx, s.maxRetries, limit, offset)
}

// ListFailed returns the dead letter queue, most recent failure first
func (s *emailService) ListFailed(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error) {
	models.ClampLimitOffset(&limit, &offset)
	return s.repo.ListFailed(ctx, limit, offset)
}

// Get returns one email communication by id
func (s *emailService) Get(ctx context.Context, id string) (*models.EmailCommunication, error) {
	if id == "" {
		return nil, models.ErrInvalidInput("email id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// RetryReset is the operator override: the given emails become eligible
// on the next poll regardless of their current state, including
// dead-lettered ones.
func (s *emailService) RetryReset(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, models.ErrInvalidInput("email_ids is required")
	}

	count, err := s.repo.ResetForRetry(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to reset emails for retry: %w", err)
	}

	s.logger.Info("emails scheduled for retry", slog.Int64("count", count))

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx); err != nil {
			s.logger.Warn("failed to nudge worker", slog.String("error", err.Error()))
		}
	}

	return count, nil
}

// ApplyDeliveryEvent maps a Resend webhook event onto the record's
// delivery-tracking fields. Unknown event types and unmatched ids are
// reported as ignored, never as errors: the caller must always answer
// the provider with a success-shaped response.
func (s *emailService) ApplyDeliveryEvent(ctx context.Context, eventType, resendEmailID string) (bool, string) {
	if resendEmailID == "" {
		return false, "missing email_id"
	}

	now := time.Now().UTC()
	var update repository.DeliveryUpdate

	switch eventType {
	case "email.delivered":
		update.DeliveredAt = &now
	case "email.opened":
		update.OpenedAt = &now
	case "email.clicked":
		update.ClickedAt = &now
	case "email.bounced":
		bounced := models.EmailStatusBounced
		update.BouncedAt = &now
		update.Status = &bounced
	case "email.complained":
		complained := models.EmailStatusComplained
		update.Status = &complained
	default:
		return false, fmt.Sprintf("unknown event type: %s", eventType)
	}

	matched, err := s.repo.UpdateDeliveryTracking(ctx, resendEmailID, update)
	if err != nil {
		s.logger.Error("failed to apply delivery event",
			slog.String("event_type", eventType),
			slog.String("resend_email_id", resendEmailID),
			slog.String("error", err.Error()),
		)
		return false, "processing error"
	}

	if matched == 0 {
		return false, "no matching email"
	}

	s.logger.Info("delivery event applied",
		slog.String("event_type", eventType),
		slog.String("resend_email_id", resendEmailID),
	)

	return true, ""
}

// Stats returns aggregate counts and the computed open rate
func (s *emailService) Stats(ctx context.Context) (*EmailStats, error) {
	sent, err := s.repo.CountSent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect email stats: %w", err)
	}
	pending, err := s.repo.CountPending(ctx, s.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to collect email stats: %w", err)
	}
	failed, err := s.repo.CountFailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect email stats: %w", err)
	}
	delivered, err := s.repo.CountDelivered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect email stats: %w", err)
	}
	opened, err := s.repo.CountOpened(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect email stats: %w", err)
	}

	stats := &EmailStats{
		TotalSent:      sent,
		TotalPending:   pending,
		TotalFailed:    failed,
		TotalDelivered: delivered,
		TotalOpened:    opened,
	}

	// Open rate is 0 until something has been delivered.
	if delivered > 0 {
		stats.OpenRate = math.Round(float64(opened)/float64(delivered)*100*100) / 100
	}

	return stats, nil
}

// SendTest renders and sends a test email synchronously, bypassing the
// outbox. Used to verify Resend configuration end to end.
func (s *emailService) SendTest(ctx context.Context, recipientEmail, recipientName string) (string, error) {
	if recipientEmail == "" {
		return "", models.ErrInvalidInput("recipient_email is required")
	}
	if recipientName == "" {
		return "", models.ErrInvalidInput("recipient_name is required")
	}

	htmlBody, err := s.templates.Render(models.EmailTypeTestEmail, map[string]string{
		"recipient_name": recipientName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render test email: %w", err)
	}

	resendEmailID, err := s.sender.Send(ctx, recipientEmail, recipientName, "🧪 Test Email - Prisma Talent", htmlBody, nil)
	if err != nil {
		return "", fmt.Errorf("failed to send test email: %w", err)
	}

	s.logger.Info("test email sent",
		slog.String("recipient", recipientEmail),
		slog.String("resend_email_id", resendEmailID),
	)

	return resendEmailID, nil
}

func isKnownEmailType(t models.EmailType) bool {
	switch t {
	case models.EmailTypeLeaderFormRequest,
		models.EmailTypeJobDescriptionValidation,
		models.EmailTypeApplicantStatusUpdate,
		models.EmailTypeClientInvitation,
		models.EmailTypeTestEmail:
		return true
	default:
		return false
	}
}
