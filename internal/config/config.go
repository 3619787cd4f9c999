package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Queue    QueueConfig
	API      APIConfig
	Worker   WorkerConfig
	Resend   ResendConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// QueueConfig holds the worker nudge queue configuration (Redis).
// An empty URL disables the nudge fast path; the worker then polls on
// its interval only.
type QueueConfig struct {
	RedisURL  string
	QueueName string
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port int
}

// WorkerConfig holds outbox worker configuration
type WorkerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	SendTimeout  time.Duration
}

// ResendConfig holds Resend email provider configuration. An empty API
// key switches the sender to the mock transport for local development.
type ResendConfig struct {
	APIKey       string
	FromEmail    string
	FromName     string
	ReplyToEmail string
}

// Load reads configuration from the environment, with an optional .env file
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	apiPort, err := getEnvInt("API_PORT", 8080)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	batchSize, err := getEnvInt("WORKER_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	maxRetries, err := getEnvInt("MAX_RETRY_COUNT", 3)
	if err != nil {
		return nil, err
	}

	sendTimeout, err := getEnvInt("SEND_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "prisma"),
			Password: getEnv("DB_PASSWORD", "prisma"),
			DBName:   getEnv("DB_NAME", "prisma_talent"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Queue: QueueConfig{
			RedisURL:  getEnv("REDIS_URL", ""),
			QueueName: getEnv("QUEUE_NAME", "email_nudges"),
		},
		API: APIConfig{
			Port: apiPort,
		},
		Worker: WorkerConfig{
			Enabled:      getEnv("WORKER_ENABLED", "true") == "true",
			PollInterval: time.Duration(pollInterval) * time.Second,
			BatchSize:    batchSize,
			MaxRetries:   maxRetries,
			SendTimeout:  time.Duration(sendTimeout) * time.Second,
		},
		Resend: ResendConfig{
			APIKey:       getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("FROM_EMAIL", "talent@getprisma.io"),
			FromName:     getEnv("FROM_NAME", "Prisma Talent"),
			ReplyToEmail: getEnv("REPLY_TO_EMAIL", "hello@getprisma.io"),
		},
	}, nil
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
