package models

import "time"

// Email communication status constants
const (
	EmailStatusPending        = "pending"
	EmailStatusRetryScheduled = "retry_scheduled"
	EmailStatusSent           = "sent"
	EmailStatusFailed         = "failed"
	EmailStatusBounced        = "bounced"
	EmailStatusComplained     = "complained"
)

// EmailType identifies which template an email communication uses.
// The set is closed: rendering dispatches on it exhaustively and an
// unknown value is a per-record rendering failure, not a crash.
type EmailType string

const (
	EmailTypeLeaderFormRequest        EmailType = "leader_form_request"
	EmailTypeJobDescriptionValidation EmailType = "job_description_validation"
	EmailTypeApplicantStatusUpdate    EmailType = "applicant_status_update"
	EmailTypeClientInvitation         EmailType = "client_invitation"
	EmailTypeTestEmail                EmailType = "test_email"
)

// EmailCommunication represents one outbox record: a single email to be
// sent, carrying its own retry state. Created with status "pending" by
// the lead/enrollment flows, mutated by the worker (send outcome, retry
// bookkeeping) and by the Resend webhook (delivery tracking fields).
type EmailCommunication struct {
	ID             string            `json:"id"`
	EmailType      EmailType         `json:"email_type"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	ReplyToEmail   *string           `json:"reply_to_email,omitempty"`
	SubjectLine    string            `json:"subject_line"`
	TemplateData   map[string]string `json:"template_data"`
	Status         string            `json:"status"`
	SentAt         *time.Time        `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time        `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time        `json:"opened_at,omitempty"`
	ClickedAt      *time.Time        `json:"clicked_at,omitempty"`
	BouncedAt      *time.Time        `json:"bounced_at,omitempty"`
	FailedAt       *time.Time        `json:"failed_at,omitempty"`
	RetryCount     int               `json:"retry_count"`
	NextRetryAt    *time.Time        `json:"next_retry_at,omitempty"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	ResendEmailID  *string           `json:"resend_email_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsValidEmailStatus checks if the email status is valid
func IsValidEmailStatus(status string) bool {
	switch status {
	case EmailStatusPending, EmailStatusRetryScheduled, EmailStatusSent,
		EmailStatusFailed, EmailStatusBounced, EmailStatusComplained:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the record can never be picked up again by
// normal polling (the manual retry reset can still revive "failed").
func (e *EmailCommunication) IsTerminal() bool {
	switch e.Status {
	case EmailStatusSent, EmailStatusFailed, EmailStatusBounced, EmailStatusComplained:
		return true
	default:
		return false
	}
}

// Eligible reports whether the record may be attempted now: never sent,
// retries not exhausted, and either no retry scheduled or the retry is due.
func (e *EmailCommunication) Eligible(maxRetries int, now time.Time) bool {
	if e.SentAt != nil || e.RetryCount >= maxRetries {
		return false
	}
	return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
}
