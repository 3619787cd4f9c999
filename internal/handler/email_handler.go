package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/getprisma/email-outbox/internal/service"
	"github.com/getprisma/email-outbox/internal/worker"
)

// WorkerHealthProvider exposes the outbox worker health snapshot
type WorkerHealthProvider interface {
	Health(ctx context.Context) worker.HealthStatus
}

// EmailHandler handles email management HTTP requests
type EmailHandler struct {
	emailSvc service.EmailService
	worker   WorkerHealthProvider
	logger   *slog.Logger
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(emailSvc service.EmailService, workerHealth WorkerHealthProvider, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		emailSvc: emailSvc,
		worker:   workerHealth,
		logger:   logger,
	}
}

// RegisterRoutes mounts the email routes on the router
func (h *EmailHandler) RegisterRoutes(r chi.Router) {
	r.Route("/emails", func(r chi.Router) {
		r.Get("/health", h.WorkerHealth)
		r.Get("/pending", h.ListPending)
		r.Get("/failed", h.ListFailed)
		r.Get("/stats/summary", h.Stats)
		r.Get("/{id}", h.GetEmail)
		r.Post("/", h.EnqueueEmail)
		r.Post("/retry", h.RetryEmails)
		r.Post("/test", h.SendTestEmail)
		r.Post("/webhooks/resend", h.ResendWebhook)
	})
}

// WorkerHealth handles GET /emails/health
func (h *EmailHandler) WorkerHealth(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.worker.Health(r.Context()))
}

// ListPending handles GET /emails/pending
func (h *EmailHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	emails, err := h.emailSvc.ListPending(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, emails)
}

// ListFailed handles GET /emails/failed (the dead letter queue)
func (h *EmailHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	emails, err := h.emailSvc.ListFailed(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, emails)
}

// GetEmail handles GET /emails/{id}
func (h *EmailHandler) GetEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.emailSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, email)
}

// EnqueueEmail handles POST /emails
func (h *EmailHandler) EnqueueEmail(w http.ResponseWriter, r *http.Request) {
	var input service.EnqueueEmailInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	email, err := h.emailSvc.Enqueue(r.Context(), input)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, email)
}

// RetryEmailsRequest is the manual retry reset payload
type RetryEmailsRequest struct {
	EmailIDs []string `json:"email_ids"`
}

// RetryEmails handles POST /emails/retry
func (h *EmailHandler) RetryEmails(w http.ResponseWriter, r *http.Request) {
	var req RetryEmailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	count, err := h.emailSvc.RetryReset(r.Context(), req.EmailIDs)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"message":         fmt.Sprintf("Scheduled %d emails for retry", count),
		"scheduled_count": count,
		"email_ids":       req.EmailIDs,
	})
}

// TestEmailRequest is the test email payload
type TestEmailRequest struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
}

// SendTestEmail handles POST /emails/test
func (h *EmailHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req TestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	resendEmailID, err := h.emailSvc.SendTest(r.Context(), req.RecipientEmail, req.RecipientName)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, map[string]string{
		"message":   "Test email sent successfully",
		"email_id":  resendEmailID,
		"recipient": req.RecipientEmail,
	})
}

// resendWebhookPayload is the Resend delivery event shape
type resendWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

// ResendWebhook handles POST /emails/webhooks/resend. It always answers
// 200 with a status body: a non-2xx here would trigger Resend's own
// retry storm, so failures are only logged.
func (h *EmailHandler) ResendWebhook(w http.ResponseWriter, r *http.Request) {
	var payload resendWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("unreadable resend webhook payload", slog.String("error", err.Error()))
		respondSuccess(w, map[string]string{"status": "ignored", "reason": "invalid payload"})
		return
	}

	processed, reason := h.emailSvc.ApplyDeliveryEvent(r.Context(), payload.Type, payload.Data.EmailID)
	if !processed {
		respondSuccess(w, map[string]string{"status": "ignored", "reason": reason})
		return
	}

	respondSuccess(w, map[string]string{
		"status":     "processed",
		"event_type": payload.Type,
		"email_id":   payload.Data.EmailID,
	})
}

// Stats handles GET /emails/stats/summary
func (h *EmailHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.emailSvc.Stats(r.Context())
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, stats)
}

func parseLimitOffset(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
