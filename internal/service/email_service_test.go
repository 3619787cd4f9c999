package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/getprisma/email-outbox/internal/models"
	"github.com/getprisma/email-outbox/internal/repository"
)

// Mock repository for testing
type mockEmailRepo struct {
	created     []*models.EmailCommunication
	resetIDs    []string
	resetCount  int64
	tracking    []trackingUpdate
	trackingHit int64
	trackingErr error

	sent, pending, failed, delivered, opened int64
	countErr                                 error
}

type trackingUpdate struct {
	resendEmailID string
	update        repository.DeliveryUpdate
}

func (m *mockEmailRepo) Create(ctx context.Context, email *models.EmailCommunication) error {
	if email.ID == "" {
		email.ID = "generated-id"
	}
	email.CreatedAt = time.Now().UTC()
	m.created = append(m.created, email)
	return nil
}

func (m *mockEmailRepo) ResetForRetry(ctx context.Context, ids []string) (int64, error) {
	m.resetIDs = append(m.resetIDs, ids...)
	return m.resetCount, nil
}

func (m *mockEmailRepo) UpdateDeliveryTracking(ctx context.Context, resendEmailID string, update repository.DeliveryUpdate) (int64, error) {
	if m.trackingErr != nil {
		return 0, m.trackingErr
	}
	m.tracking = append(m.tracking, trackingUpdate{resendEmailID, update})
	return m.trackingHit, nil
}

func (m *mockEmailRepo) CountSent(ctx context.Context) (int64, error) {
	return m.sent, m.countErr
}
func (m *mockEmailRepo) CountPending(ctx context.Context, maxRetries int) (int64, error) {
	return m.pending, m.countErr
}
func (m *mockEmailRepo) CountFailed(ctx context.Context) (int64, error) {
	return m.failed, m.countErr
}
func (m *mockEmailRepo) CountDelivered(ctx context.Context) (int64, error) {
	return m.delivered, m.countErr
}
func (m *mockEmailRepo) CountOpened(ctx context.Context) (int64, error) {
	return m.opened, m.countErr
}

// Unused methods for interface compliance
func (m *mockEmailRepo) GetByID(ctx context.Context, id string) (*models.EmailCommunication, error) {
	return nil, models.ErrNotFoundWithMsg("not found")
}
func (m *mockEmailRepo) GetEligible(ctx context.Context, maxRetries, limit int) ([]*models.EmailCommunication, error) {
	return nil, nil
}
func (m *mockEmailRepo) ListPending(ctx context.Context, maxRetries, limit, offset int) ([]*models.EmailCommunication, error) {
	return nil, nil
}
func (m *mockEmailRepo) ListFailed(ctx context.Context, limit, offset int) ([]*models.EmailCommunication, error) {
	return nil, nil
}
func (m *mockEmailRepo) MarkSent(ctx context.Context, id, resendEmailID string, sentAt time.Time) error {
	return nil
}
func (m *mockEmailRepo) ScheduleRetry(ctx context.Context, id string, retryCount int, errorMessage string, nextRetryAt time.Time) error {
	return nil
}
func (m *mockEmailRepo) MarkFailed(ctx context.Context, id string, retryCount int, errorMessage string, failedAt time.Time) error {
	return nil
}
func (m *mockEmailRepo) CountSentSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

type mockNotifier struct {
	notified int
}

func (m *mockNotifier) Notify(ctx context.Context) error {
	m.notified++
	return nil
}

type stubSender struct {
	id  string
	err error
}

func (s *stubSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string, replyTo *string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func newTestEmailService(repo *mockEmailRepo, notifier Notifier, sender *stubSender) EmailService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if sender == nil {
		sender = &stubSender{id: "re_test"}
	}
	return NewEmailService(repo, NewTemplateService(), sender, notifier, 3, logger)
}

func TestEmailService_Enqueue(t *testing.T) {
	repo := &mockEmailRepo{}
	notifier := &mockNotifier{}
	svc := newTestEmailService(repo, notifier, nil)

	email, err := svc.Enqueue(context.Background(), EnqueueEmailInput{
		EmailType:      models.EmailTypeClientInvitation,
		RecipientEmail: "ana@acme.pe",
		RecipientName:  "Ana",
		SubjectLine:    "Bienvenida a Prisma Talent",
		TemplateData:   map[string]string{"client_name": "Ana", "company_name": "Acme"},
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v, want nil", err)
	}

	if email.Status != models.EmailStatusPending {
		t.Errorf("Status = %s, want pending", email.Status)
	}
	if len(repo.created) != 1 {
		t.Fatalf("Expected 1 create, got %d", len(repo.created))
	}
	if notifier.notified != 1 {
		t.Errorf("Notifier called %d times, want 1", notifier.notified)
	}
}

func TestEmailService_Enqueue_Validation(t *testing.T) {
	svc := newTestEmailService(&mockEmailRepo{}, nil, nil)

	tests := []struct {
		name  string
		input EnqueueEmailInput
	}{
		{
			name: "missing recipient",
			input: EnqueueEmailInput{
				EmailType:   models.EmailTypeTestEmail,
				SubjectLine: "Test",
			},
		},
		{
			name: "missing subject",
			input: EnqueueEmailInput{
				EmailType:      models.EmailTypeTestEmail,
				RecipientEmail: "dev@example.com",
			},
		},
		{
			name: "unknown email type",
			input: EnqueueEmailInput{
				EmailType:      "newsletter",
				RecipientEmail: "dev@example.com",
				SubjectLine:    "Test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enqueue(context.Background(), tt.input)

			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != "INVALID_INPUT" {
				t.Errorf("Enqueue() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestEmailService_RetryReset(t *testing.T) {
	repo := &mockEmailRepo{resetCount: 2}
	notifier := &mockNotifier{}
	svc := newTestEmailService(repo, notifier, nil)

	count, err := svc.RetryReset(context.Background(), []string{"id-1", "id-2"})
	if err != nil {
		t.Fatalf("RetryReset() error = %v, want nil", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(repo.resetIDs) != 2 {
		t.Errorf("Reset ids = %v, want 2 entries", repo.resetIDs)
	}
	if notifier.notified != 1 {
		t.Errorf("Notifier called %d times, want 1", notifier.notified)
	}
}

func TestEmailService_RetryReset_EmptyIDs(t *testing.T) {
	svc := newTestEmailService(&mockEmailRepo{}, nil, nil)

	if _, err := svc.RetryReset(context.Background(), nil); err == nil {
		t.Error("RetryReset() error = nil, want INVALID_INPUT")
	}
}

func TestEmailService_ApplyDeliveryEvent(t *testing.T) {
	tests := []struct {
		name          string
		eventType     string
		resendEmailID string
		trackingHit   int64
		wantProcessed bool
		check         func(t *testing.T, u repository.DeliveryUpdate)
	}{
		{
			name:          "delivered sets delivered_at",
			eventType:     "email.delivered",
			resendEmailID: "re_1",
			trackingHit:   1,
			wantProcessed: true,
			check: func(t *testing.T, u repository.DeliveryUpdate) {
				if u.DeliveredAt == nil {
					t.Error("DeliveredAt not set")
				}
				if u.Status != nil {
					t.Error("Status should not change on delivery")
				}
			},
		},
		{
			name:          "opened sets opened_at",
			eventType:     "email.opened",
			resendEmailID: "re_1",
			trackingHit:   1,
			wantProcessed: true,
			check: func(t *testing.T, u repository.DeliveryUpdate) {
				if u.OpenedAt == nil {
					t.Error("OpenedAt not set")
				}
			},
		},
		{
			name:          "clicked sets clicked_at",
			eventType:     "email.clicked",
			resendEmailID: "re_1",
			trackingHit:   1,
			wantProcessed: true,
			check: func(t *testing.T, u repository.DeliveryUpdate) {
				if u.ClickedAt == nil {
					t.Error("ClickedAt not set")
				}
			},
		},
		{
			name:          "bounced sets bounced_at and status",
			eventType:     "email.bounced",
			resendEmailID: "re_1",
			trackingHit:   1,
			wantProcessed: true,
			check: func(t *testing.T, u repository.DeliveryUpdate) {
				if u.BouncedAt == nil {
					t.Error("BouncedAt not set")
				}
				if u.Status == nil || *u.Status != models.EmailStatusBounced {
					t.Errorf("Status = %v, want bounced", u.Status)
				}
			},
		},
		{
			name:          "complained sets status only",
			eventType:     "email.complained",
			resendEmailID: "re_1",
			trackingHit:   1,
			wantProcessed: true,
			check: func(t *testing.T, u repository.DeliveryUpdate) {
				if u.Status == nil || *u.Status != models.EmailStatusComplained {
					t.Errorf("Status = %v, want complained", u.Status)
				}
			},
		},
		{
			name:          "unknown event type is ignored",
			eventType:     "email.scheduled",
			resendEmailID: "re_1",
			wantProcessed: false,
		},
		{
			name:          "missing email id is ignored",
			eventType:     "email.delivered",
			resendEmailID: "",
			wantProcessed: false,
		},
		{
			name:          "unmatched email id is ignored",
			eventType:     "email.delivered",
			resendEmailID: "re_unknown",
			trackingHit:   0,
			wantProcessed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEmailRepo{trackingHit: tt.trackingHit}
			svc := newTestEmailService(repo, nil, nil)

			processed, reason := svc.ApplyDeliveryEvent(context.Background(), tt.eventType, tt.resendEmailID)
			if processed != tt.wantProcessed {
				t.Fatalf("processed = %v (reason %q), want %v", processed, reason, tt.wantProcessed)
			}

			if tt.check != nil {
				if len(repo.tracking) != 1 {
					t.Fatalf("Expected 1 tracking update, got %d", len(repo.tracking))
				}
				tt.check(t, repo.tracking[0].update)
			}
		})
	}
}

func TestEmailService_ApplyDeliveryEvent_StoreFailureIsSwallowed(t *testing.T) {
	repo := &mockEmailRepo{trackingErr: errors.New("connection refused")}
	svc := newTestEmailService(repo, nil, nil)

	processed, reason := svc.ApplyDeliveryEvent(context.Background(), "email.delivered", "re_1")
	if processed {
		t.Error("processed = true, want false")
	}
	if reason == "" {
		t.Error("reason is empty, want failure text")
	}
}

func TestEmailService_Stats_OpenRate(t *testing.T) {
	tests := []struct {
		name         string
		delivered    int64
		opened       int64
		wantOpenRate float64
	}{
		{"typical rate", 200, 50, 25},
		{"rounded to two decimals", 3, 1, 33.33},
		{"zero delivered avoids division by zero", 0, 5, 0},
		{"nothing delivered or opened", 0, 0, 0},
		{"everything opened", 10, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEmailRepo{
				sent:      100,
				pending:   4,
				failed:    1,
				delivered: tt.delivered,
				opened:    tt.opened,
			}
			svc := newTestEmailService(repo, nil, nil)

			stats, err := svc.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats() error = %v, want nil", err)
			}

			if stats.OpenRate != tt.wantOpenRate {
				t.Errorf("OpenRate = %v, want %v", stats.OpenRate, tt.wantOpenRate)
			}
			if stats.TotalSent != 100 {
				t.Errorf("TotalSent = %d, want 100", stats.TotalSent)
			}
		})
	}
}

func TestEmailService_SendTest(t *testing.T) {
	repo := &mockEmailRepo{}
	sender := &stubSender{id: "re_test_123"}
	svc := newTestEmailService(repo, nil, sender)

	id, err := svc.SendTest(context.Background(), "dev@example.com", "Dev")
	if err != nil {
		t.Fatalf("SendTest() error = %v, want nil", err)
	}
	if id != "re_test_123" {
		t.Errorf("id = %s, want re_test_123", id)
	}

	// Test sends bypass the outbox; nothing is persisted.
	if len(repo.created) != 0 {
		t.Errorf("Expected no created records, got %d", len(repo.created))
	}
}

func TestEmailService_SendTest_TransportFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("provider down")}
	svc := newTestEmailService(&mockEmailRepo{}, nil, sender)

	if _, err := svc.SendTest(context.Background(), "dev@example.com", "Dev"); err == nil {
		t.Error("SendTest() error = nil, want transport error")
	}
}
