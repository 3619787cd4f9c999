package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendConfig holds Resend sender configuration
type ResendConfig struct {
	APIKey       string
	FromEmail    string
	FromName     string
	ReplyToEmail string
}

// resendSender sends email through the Resend API
type resendSender struct {
	client *resend.Client
	cfg    ResendConfig
}

// NewResendSender creates a new Resend-backed email sender
func NewResendSender(cfg ResendConfig) Sender {
	return &resendSender{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

// Send delivers one email via Resend and returns the provider message id
func (s *resendSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string, replyTo *string) (string, error) {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail),
		To:      []string{fmt.Sprintf("%s <%s>", toName, toEmail)},
		Subject: subject,
		Html:    htmlBody,
	}

	if replyTo != nil && *replyTo != "" {
		params.ReplyTo = *replyTo
	} else if s.cfg.ReplyToEmail != "" {
		params.ReplyTo = s.cfg.ReplyToEmail
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}

	return sent.Id, nil
}
