// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserID owns commitments created through the CLI when BACKY_USER_ID
// is unset.
const DefaultUserID = "00000000-0000-0000-0000-000000000001"

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string

	// Storage
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	MaxDBConns     int

	// Optional infrastructure; empty disables it.
	RedisURL    string
	RabbitMQURL string

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxRetentionDays    int
	OutboxProcessorEnabled bool

	// Lifecycle jobs
	GraceWindow              time.Duration
	FinalWarningLead         time.Duration
	HorizonDays              int
	HorizonMaxPerCommitment  int
	DispatchBatchSize        int
	MaxDeferrals             int
	QuietHoursDefaultStart   int
	QuietHoursDefaultEnd     int
	ScannerSchedule          string
	HorizonSchedule          string
	DispatchSchedule         string
	WorkerTimezone           string
	JobLockTTL               time.Duration
	NotifyChannel            string
	NotifyBreakerMaxFailures int

	// Worker
	HealthAddr string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("BACKY_USER_ID", DefaultUserID),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "~/.backy/data.db"),
		MaxDBConns:     getIntEnv("DATABASE_MAX_CONNS", 10),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		GraceWindow:              getDurationEnv("GRACE_WINDOW", 60*time.Minute),
		FinalWarningLead:         getDurationEnv("FINAL_WARNING_LEAD", 15*time.Minute),
		HorizonDays:              getIntEnv("HORIZON_DAYS", 7),
		HorizonMaxPerCommitment:  getIntEnv("HORIZON_MAX_PER_COMMITMENT", 100),
		DispatchBatchSize:        getIntEnv("DISPATCH_BATCH_SIZE", 200),
		MaxDeferrals:             getIntEnv("MAX_DEFERRALS", 3),
		QuietHoursDefaultStart:   getIntEnv("QUIET_HOURS_DEFAULT_START", 22),
		QuietHoursDefaultEnd:     getIntEnv("QUIET_HOURS_DEFAULT_END", 7),
		ScannerSchedule:          getEnv("SCANNER_SCHEDULE", "@every 5m"),
		HorizonSchedule:          getEnv("HORIZON_SCHEDULE", "@every 15m"),
		DispatchSchedule:         getEnv("DISPATCH_SCHEDULE", "@every 10m"),
		WorkerTimezone:           getEnv("WORKER_TIMEZONE", "UTC"),
		JobLockTTL:               getDurationEnv("JOB_LOCK_TTL", 5*time.Minute),
		NotifyChannel:            getEnv("NOTIFY_CHANNEL", "log"),
		NotifyBreakerMaxFailures: getIntEnv("NOTIFY_BREAKER_MAX_FAILURES", 5),

		HealthAddr: getEnv("HEALTH_ADDR", ":8081"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite", "auto":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	for name, hour := range map[string]int{
		"QUIET_HOURS_DEFAULT_START": c.QuietHoursDefaultStart,
		"QUIET_HOURS_DEFAULT_END":   c.QuietHoursDefaultEnd,
	} {
		if hour < 0 || hour > 23 {
			errs = append(errs, fmt.Errorf("%s must be within 0..23, got %d", name, hour))
		}
	}

	for name, n := range map[string]int{
		"OUTBOX_BATCH_SIZE":          c.OutboxBatchSize,
		"HORIZON_DAYS":               c.HorizonDays,
		"HORIZON_MAX_PER_COMMITMENT": c.HorizonMaxPerCommitment,
		"DISPATCH_BATCH_SIZE":        c.DispatchBatchSize,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, n))
		}
	}
	if c.MaxDeferrals < 0 {
		errs = append(errs, fmt.Errorf("MAX_DEFERRALS must not be negative, got %d", c.MaxDeferrals))
	}
	if c.GraceWindow <= 0 {
		errs = append(errs, errors.New("GRACE_WINDOW must be positive"))
	}
	if _, err := time.LoadLocation(c.WorkerTimezone); err != nil {
		errs = append(errs, fmt.Errorf("WORKER_TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// HorizonWindow is the reminder look-ahead.
func (c *Config) HorizonWindow() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }
func (c *Config) IsProduction() bool  { return c.AppEnv == "production" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
