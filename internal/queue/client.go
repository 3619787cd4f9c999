package queue

import "context"

// Client is the worker wake channel. The database is the source of
// truth for outbox records; the queue only carries nudges so the worker
// can poll immediately after new work is enqueued instead of waiting
// out the full interval.
type Client interface {
	// Notify signals the worker that new records may be eligible
	Notify(ctx context.Context) error

	// Listen returns a channel that receives a signal per nudge. The
	// channel closes when ctx is cancelled.
	Listen(ctx context.Context) <-chan struct{}

	// Close closes the queue connection
	Close() error

	// Health checks if the queue is healthy
	Health(ctx context.Context) error
}
