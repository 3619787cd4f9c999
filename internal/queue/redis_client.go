package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient implements Client using a Redis list as the nudge channel
type redisClient struct {
	client    *redis.Client
	queueName string
	logger    *slog.Logger
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL       string
	QueueName string
}

// NewRedisClient creates a new Redis nudge client
func NewRedisClient(cfg RedisConfig, logger *slog.Logger) (Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis",
		slog.String("addr", opts.Addr),
		slog.String("queue", cfg.QueueName),
	)

	return &redisClient{
		client:    client,
		queueName: cfg.QueueName,
		logger:    logger,
	}, nil
}

// Notify pushes a nudge token. The list is trimmed so a burst of
// enqueues while the worker is mid-batch collapses into a bounded
// backlog instead of growing without limit.
func (c *redisClient) Notify(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, c.queueName, time.Now().UTC().Format(time.RFC3339Nano))
	pipe.LTrim(ctx, c.queueName, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push nudge: %w", err)
	}

	c.logger.Debug("worker nudge published", slog.String("queue", c.queueName))
	return nil
}

// Listen pops nudges in a background goroutine and forwards them as
// signals. The returned channel has capacity 1: coalescing nudges is
// fine since one poll drains all eligible records anyway.
func (c *redisClient) Listen(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)

		for {
			if ctx.Err() != nil {
				return
			}

			result, err := c.client.BRPop(ctx, 1*time.Second, c.queueName).Result()
			if err != nil {
				if err == redis.Nil {
					// Timeout, no nudges - keep waiting
					continue
				}
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("failed to pop nudge from queue", slog.String("error", err.Error()))
				// Sleep briefly to avoid a tight loop on persistent errors
				time.Sleep(1 * time.Second)
				continue
			}

			if len(result) < 2 {
				c.logger.Error("unexpected BRPOP result format")
				continue
			}

			select {
			case ch <- struct{}{}:
			default:
				// A signal is already pending; this nudge coalesces into it.
			}
		}
	}()

	return ch
}

// Close closes the Redis connection
func (c *redisClient) Close() error {
	c.logger.Info("closing Redis connection")
	return c.client.Close()
}

// Health checks if Redis is healthy
func (c *redisClient) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}
	return nil
}
