package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "BACKY_USER_ID", "DATABASE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"REDIS_URL", "RABBITMQ_URL", "GRACE_WINDOW", "HORIZON_DAYS", "MAX_DEFERRALS",
		"QUIET_HOURS_DEFAULT_START", "QUIET_HOURS_DEFAULT_END", "DISPATCH_BATCH_SIZE",
		"WORKER_TIMEZONE", "OUTBOX_PROCESSOR_ENABLED", "SCANNER_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, DefaultUserID, cfg.UserID)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "~/.backy/data.db", cfg.SQLitePath)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.True(t, cfg.OutboxProcessorEnabled)
	assert.Equal(t, 60*time.Minute, cfg.GraceWindow)
	assert.Equal(t, 15*time.Minute, cfg.FinalWarningLead)
	assert.Equal(t, 7, cfg.HorizonDays)
	assert.Equal(t, 7*24*time.Hour, cfg.HorizonWindow())
	assert.Equal(t, 100, cfg.HorizonMaxPerCommitment)
	assert.Equal(t, 200, cfg.DispatchBatchSize)
	assert.Equal(t, 3, cfg.MaxDeferrals)
	assert.Equal(t, 22, cfg.QuietHoursDefaultStart)
	assert.Equal(t, 7, cfg.QuietHoursDefaultEnd)
	assert.Equal(t, "@every 5m", cfg.ScannerSchedule)
	assert.Equal(t, "@every 15m", cfg.HorizonSchedule)
	assert.Equal(t, "@every 10m", cfg.DispatchSchedule)
	assert.Equal(t, "UTC", cfg.WorkerTimezone)
	assert.Equal(t, 5*time.Minute, cfg.JobLockTTL)
	assert.Equal(t, "log", cfg.NotifyChannel)
	assert.Equal(t, ":8081", cfg.HealthAddr)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Zurich"); err != nil {
		t.Skip("zoneinfo unavailable")
	}
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://backy@localhost:5432/backy")
	t.Setenv("GRACE_WINDOW", "90m")
	t.Setenv("MAX_DEFERRALS", "5")
	t.Setenv("OUTBOX_PROCESSOR_ENABLED", "false")
	t.Setenv("WORKER_TIMEZONE", "Europe/Zurich")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 90*time.Minute, cfg.GraceWindow)
	assert.Equal(t, 5, cfg.MaxDeferrals)
	assert.False(t, cfg.OutboxProcessorEnabled)
	assert.Equal(t, "Europe/Zurich", cfg.WorkerTimezone)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("HORIZON_DAYS", "soon")
	t.Setenv("GRACE_WINDOW", "an hour")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.HorizonDays)
	assert.Equal(t, time.Hour, cfg.GraceWindow)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseDriver:          "sqlite",
			OutboxBatchSize:         100,
			HorizonDays:             7,
			HorizonMaxPerCommitment: 100,
			DispatchBatchSize:       200,
			MaxDeferrals:            3,
			QuietHoursDefaultStart:  22,
			QuietHoursDefaultEnd:    7,
			GraceWindow:             time.Hour,
			WorkerTimezone:          "UTC",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"auto driver", func(c *Config) { c.DatabaseDriver = "auto" }, ""},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, `unknown DATABASE_DRIVER "mysql"`},
		{"postgres without url", func(c *Config) { c.DatabaseDriver = "postgres" }, "DATABASE_URL is required"},
		{"start hour out of range", func(c *Config) { c.QuietHoursDefaultStart = 24 }, "QUIET_HOURS_DEFAULT_START must be within 0..23"},
		{"negative end hour", func(c *Config) { c.QuietHoursDefaultEnd = -1 }, "QUIET_HOURS_DEFAULT_END must be within 0..23"},
		{"zero batch size", func(c *Config) { c.DispatchBatchSize = 0 }, "DISPATCH_BATCH_SIZE must be positive"},
		{"zero horizon", func(c *Config) { c.HorizonDays = 0 }, "HORIZON_DAYS must be positive"},
		{"negative deferrals", func(c *Config) { c.MaxDeferrals = -1 }, "MAX_DEFERRALS must not be negative"},
		{"zero grace", func(c *Config) { c.GraceWindow = 0 }, "GRACE_WINDOW must be positive"},
		{"bad timezone", func(c *Config) { c.WorkerTimezone = "Mars/Olympus" }, "WORKER_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("BACKY_TEST_INT", "42")
	t.Setenv("BACKY_TEST_BOOL", "true")
	t.Setenv("BACKY_TEST_DURATION", "2s")

	assert.Equal(t, "fallback", getEnv("BACKY_TEST_MISSING", "fallback"))
	assert.Equal(t, 42, getIntEnv("BACKY_TEST_INT", 1))
	assert.True(t, getBoolEnv("BACKY_TEST_BOOL", false))
	assert.Equal(t, 2*time.Second, getDurationEnv("BACKY_TEST_DURATION", time.Second))
}
