package worker

import (
	"context"
	"log/slog"
	"time"
)

// HealthMetrics holds the aggregate email counts exposed for observability
type HealthMetrics struct {
	PendingEmails int64 `json:"pending_emails"`
	FailedEmails  int64 `json:"failed_emails"`
	SentToday     int64 `json:"sent_today"`
}

// RetryConfig describes the retry policy for the health endpoint
type RetryConfig struct {
	MaxRetries         int   `json:"max_retries"`
	RetryDelaysSeconds []int `json:"retry_delays_seconds"`
}

// HealthStatus is the worker health snapshot
type HealthStatus struct {
	Status              string         `json:"status"`
	Running             bool           `json:"running"`
	PollIntervalSeconds int            `json:"poll_interval_seconds"`
	Metrics             *HealthMetrics `json:"metrics,omitempty"`
	RetryConfig         *RetryConfig   `json:"retry_config,omitempty"`
	Error               string         `json:"error,omitempty"`
}

// Health reports the worker state and queue depth counts. Store query
// failures degrade the snapshot to "unhealthy" with the error text
// instead of propagating: the health surface itself must not fail.
func (w *Worker) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:              "stopped",
		Running:             w.running.Load(),
		PollIntervalSeconds: int(w.cfg.PollInterval / time.Second),
	}
	if status.Running {
		status.Status = "healthy"
	}

	pending, err := w.repo.CountPending(ctx, w.cfg.MaxRetries)
	if err != nil {
		return w.unhealthy(status, err)
	}

	failed, err := w.repo.CountFailed(ctx)
	if err != nil {
		return w.unhealthy(status, err)
	}

	midnight := w.now().UTC().Truncate(24 * time.Hour)
	sentToday, err := w.repo.CountSentSince(ctx, midnight)
	if err != nil {
		return w.unhealthy(status, err)
	}

	status.Metrics = &HealthMetrics{
		PendingEmails: pending,
		FailedEmails:  failed,
		SentToday:     sentToday,
	}
	status.RetryConfig = &RetryConfig{
		MaxRetries:         w.cfg.MaxRetries,
		RetryDelaysSeconds: RetryDelaysSeconds(),
	}

	return status
}

func (w *Worker) unhealthy(status HealthStatus, err error) HealthStatus {
	w.logger.Error("failed to collect worker health metrics", slog.String("error", err.Error()))
	status.Status = "unhealthy"
	status.Error = err.Error()
	status.Metrics = nil
	status.RetryConfig = nil
	return status
}
