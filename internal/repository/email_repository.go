package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/getprisma/email-outbox/internal/models"
)

// DeliveryUpdate carries the fields a Resend delivery event may set.
// Only non-nil fields are written; the worker never touches these.
type DeliveryUpdate struct {
	DeliveredAt *time.Time
	OpenedAt    *time.Time
	ClickedAt   *time.Time
	BouncedAt   *time.Time
	Status      *string
}

// EmailRepository defines the interface for email communication data access
type EmailRepository interface {
	Create(ctx context.Context, email *models.EmailCommunication) error
	GetByID(ctx context.Context, id string) (*models.EmailCommunication, error)
	GetEligible(ctx context.Context, maxRetries, limit int) ([]*models.EmailCommunication, error)
	ListPending(ctx context.Context, maxRetries, limit, offset int) ([]*models.EmailCommunication, error)
	ListFailed(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error)
	MarkSent(ctx context.Context, id, resendEmailID string, sentAt time.Time) error
	ScheduleRetry(ctx context.Context, id string, retryCount int, errorMessage string, nextRetryAt time.Time) error
	MarkFailed(ctx context.Context, id string, retryCount int, errorMessage string, failedAt time.Time) error
	ResetForRetry(ctx context.Context, ids []string) (int64, error)
	UpdateDeliveryTracking(ctx context.Context, resendEmailID string, update DeliveryUpdate) (int64, error)
	CountPending(ctx context.Context, maxRetries int) (int64, error)
	CountFailed(ctx context.Context) (int64, error)
	CountSent(ctx context.Context) (int64, error)
	CountSentSince(ctx context.Context, since time.Time) (int64, error)
	CountDelivered(ctx context.Context) (int64, error)
	CountOpened(ctx context.Context) (int64, error)
}

// emailRepository implements EmailRepository using PostgreSQL
type emailRepository struct {
	db *sql.DB
}

// NewEmailRepository creates a new email communication repository
func NewEmailRepository(db *sql.DB) EmailRepository {
	return &emailRepository{db: db}
}

const emailColumns = `id, email_type, recipient_email, recipient_name, reply_to_email, subject_line,
		template_data, status, sent_at, delivered_at, opened_at, clicked_at, bounced_at, failed_at,
		retry_count, next_retry_at, error_message, resend_email_id, created_at, updated_at`

// Create inserts a new email communication with status "pending"
func (r *emailRepository) Create(ctx context.Context, email *models.EmailCommunication) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	if email.Status == "" {
		email.Status = models.EmailStatusPending
	}

	templateData, err := json.Marshal(email.TemplateData)
	if err != nil {
		return fmt.Errorf("failed to marshal template data: %w", err)
	}

	query := `
		INSERT INTO email_communications
			(id, email_type, recipient_email, recipient_name, reply_to_email, subject_line, template_data, status, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(
		ctx,
		query,
		email.ID,
		email.EmailType,
		email.RecipientEmail,
		email.RecipientName,
		email.ReplyToEmail,
		email.SubjectLine,
		templateData,
		email.Status,
		email.RetryCount,
	).Scan(&email.CreatedAt, &email.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create email communication: %w", err)
	}

	return nil
}

// GetByID retrieves an email communication by ID
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.EmailCommunication, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM email_communications
		WHERE id = $1`

	email, err := scanEmail(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("email communication %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email communication: %w", err)
	}

	return email, nil
}

// GetEligible retrieves email communications due for a send attempt:
// never sent, retries not exhausted, and no retry scheduled or the
// retry is due. Oldest created first so queued work is serviced fairly.
func (r *emailRepository) GetEligible(ctx context.Context, maxRetries, limit int) ([]*models.EmailCommunication, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM email_communications
		WHERE sent_at IS NULL
		  AND retry_count < $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $2`

	return r.queryEmails(ctx, query, maxRetries, limit)
}

// ListPending retrieves unsent emails (including those awaiting retry) with pagination
func (r *emailRepository) ListPending(ctx context.Context, maxRetries, limit, offset int) ([]*models.EmailCommunication, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM email_communications
		WHERE sent_at IS NULL AND retry_count < $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	return r.queryEmails(ctx, query, maxRetries, limit, offset)
}

// ListFailed retrieves dead-lettered emails, most recent failure first
func (r *emailRepository) ListFailed(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM email_communications
		WHERE status = $1
		ORDER BY failed_at DESC
		LIMIT $2 OFFSET $3`

	return r.queryEmails(ctx, query, models.EmailStatusFailed, limit, offset)
}

// MarkSent records a successful send. The overwrite is unconditional:
// the worker is the only writer of these fields, so last-writer-wins
// is safe and re-applying the update is idempotent.
func (r *emailRepository) MarkSent(ctx context.Context, id, resendEmailID string, sentAt time.Time) error {
	query := `
		UPDATE email_communications
		SET sent_at = $1, resend_email_id = $2, status = $3, error_message = NULL, next_retry_at = NULL
		WHERE id = $4`

	return r.execOnID(ctx, id, query, sentAt, resendEmailID, models.EmailStatusSent, id)
}

// ScheduleRetry records a failed attempt and queues the next one
func (r *emailRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, errorMessage string, nextRetryAt time.Time) error {
	query := `
		UPDATE email_communications
		SET retry_count = $1, error_message = $2, next_retry_at = $3, status = $4
		WHERE id = $5`

	return r.execOnID(ctx, id, query, retryCount, errorMessage, nextRetryAt, models.EmailStatusRetryScheduled, id)
}

// MarkFailed moves an email to the dead letter state after exhausting retries
func (r *emailRepository) MarkFailed(ctx context.Context, id string, retryCount int, errorMessage string, failedAt time.Time) error {
	query := `
		UPDATE email_communications
		SET status = $1, retry_count = $2, error_message = $3, failed_at = $4, next_retry_at = NULL
		WHERE id = $5`

	return r.execOnID(ctx, id, query, models.EmailStatusFailed, retryCount, errorMessage, failedAt, id)
}

// ResetForRetry is the operator override: it unconditionally clears the
// retry bookkeeping for the given ids so the worker picks them up on the
// next poll, regardless of current (even terminal) state.
func (r *emailRepository) ResetForRetry(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE email_communications
		SET retry_count = 0, next_retry_at = NULL, status = $1, error_message = NULL
		WHERE id = ANY($2)`

	result, err := r.db.ExecContext(ctx, query, models.EmailStatusRetryScheduled, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to reset emails for retry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// UpdateDeliveryTracking applies a Resend delivery event, keyed by the
// provider message id. Returns the number of matched records; an
// unknown id matches zero rows and is not an error.
func (r *emailRepository) UpdateDeliveryTracking(ctx context.Context, resendEmailID string, update DeliveryUpdate) (int64, error) {
	set := ""
	args := []interface{}{}
	argPos := 1

	appendSet := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	if update.DeliveredAt != nil {
		appendSet("delivered_at", *update.DeliveredAt)
	}
	if update.OpenedAt != nil {
		appendSet("opened_at", *update.OpenedAt)
	}
	if update.ClickedAt != nil {
		appendSet("clicked_at", *update.ClickedAt)
	}
	if update.BouncedAt != nil {
		appendSet("bounced_at", *update.BouncedAt)
	}
	if update.Status != nil {
		appendSet("status", *update.Status)
	}

	if set == "" {
		return 0, nil
	}

	query := fmt.Sprintf(
		"UPDATE email_communications SET %s WHERE resend_email_id = $%d",
		set, argPos,
	)
	args = append(args, resendEmailID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update delivery tracking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// CountPending counts unsent emails that have not exhausted retries
func (r *emailRepository) CountPending(ctx context.Context, maxRetries int) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE sent_at IS NULL AND retry_count < $1`, maxRetries)
}

// CountFailed counts dead-lettered emails
func (r *emailRepository) CountFailed(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE status = $1`, models.EmailStatusFailed)
}

// CountSent counts emails that have been sent
func (r *emailRepository) CountSent(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE sent_at IS NOT NULL`)
}

// CountSentSince counts emails sent at or after the given time
func (r *emailRepository) CountSentSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE sent_at >= $1`, since)
}

// CountDelivered counts emails with a recorded delivery
func (r *emailRepository) CountDelivered(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE delivered_at IS NOT NULL`)
}

// CountOpened counts emails the recipient opened
func (r *emailRepository) CountOpened(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_communications WHERE opened_at IS NOT NULL`)
}

func (r *emailRepository) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count email communications: %w", err)
	}
	return n, nil
}

func (r *emailRepository) execOnID(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update email communication: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("email communication %s not found", id))
	}

	return nil
}

func (r *emailRepository) queryEmails(ctx context.Context, query string, args ...interface{}) ([]*models.EmailCommunication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query email communications: %w", err)
	}
	defer rows.Close()

	emails := []*models.EmailCommunication{}
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email communication: %w", err)
		}
		emails = append(emails, email)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email communications: %w", err)
	}

	return emails, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEmail
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEmail(s scanner) (*models.EmailCommunication, error) {
	email := &models.EmailCommunication{}
	var templateData []byte

	err := s.Scan(
		&email.ID,
		&email.EmailType,
		&email.RecipientEmail,
		&email.RecipientName,
		&email.ReplyToEmail,
		&email.SubjectLine,
		&templateData,
		&email.Status,
		&email.SentAt,
		&email.DeliveredAt,
		&email.OpenedAt,
		&email.ClickedAt,
		&email.BouncedAt,
		&email.FailedAt,
		&email.RetryCount,
		&email.NextRetryAt,
		&email.ErrorMessage,
		&email.ResendEmailID,
		&email.CreatedAt,
		&email.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(templateData) > 0 {
		if err := json.Unmarshal(templateData, &email.TemplateData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template data: %w", err)
		}
	}

	return email, nil
}
