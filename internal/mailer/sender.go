package mailer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Sender defines the interface for the outbound mail transport. Send
// returns the provider-assigned message id on success.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string, replyTo *string) (string, error)
}

// mockSender simulates email sending with a configurable success rate.
// Used for local development when no Resend API key is configured.
type mockSender struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewMockSender creates a new mock email sender
// successRate: probability of success (0.0 to 1.0), default 0.92 (92%)
func NewMockSender(successRate float64) Sender {
	if successRate <= 0 || successRate > 1.0 {
		successRate = 0.92
	}

	return &mockSender{
		successRate: successRate,
		minDelay:    50 * time.Millisecond, // Simulate network latency
		maxDelay:    200 * time.Millisecond,
	}
}

// Send simulates sending an email
func (s *mockSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string, replyTo *string) (string, error) {
	delay := s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if rand.Float64() > s.successRate {
		return "", fmt.Errorf("mock sender failed: simulated network error")
	}

	return "mock-" + uuid.New().String(), nil
}
