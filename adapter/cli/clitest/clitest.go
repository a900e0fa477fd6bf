// Package clitest runs CLI subcommands against a container on in-memory
// SQLite.
package clitest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jurzon/backy/adapter/cli"
	internalApp "github.com/jurzon/backy/internal/app"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/database/sqlite"
	"github.com/jurzon/backy/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// Config returns a local configuration backed by an in-memory database.
func Config() *config.Config {
	return &config.Config{
		AppEnv:                   "test",
		UserID:                   config.DefaultUserID,
		DatabaseDriver:           "sqlite",
		SQLitePath:               sqlite.MemoryPath,
		OutboxPollInterval:       time.Second,
		OutboxBatchSize:          100,
		OutboxMaxRetries:         5,
		OutboxRetentionDays:      14,
		GraceWindow:              time.Hour,
		FinalWarningLead:         15 * time.Minute,
		HorizonDays:              7,
		HorizonMaxPerCommitment:  100,
		DispatchBatchSize:        200,
		MaxDeferrals:             3,
		QuietHoursDefaultStart:   22,
		QuietHoursDefaultEnd:     7,
		ScannerSchedule:          "@every 5m",
		HorizonSchedule:          "@every 15m",
		DispatchSchedule:         "@every 10m",
		WorkerTimezone:           "UTC",
		JobLockTTL:               time.Minute,
		NotifyChannel:            internalApp.ChannelLog,
		NotifyBreakerMaxFailures: 5,
	}
}

// Env is a wired test application.
type Env struct {
	App       *cli.App
	Clock     *sharedDomain.FixedClock
	Container *internalApp.Container
}

// Setup wires a container at the fixed time now and installs it as the
// global CLI app until the test ends.
func Setup(t testing.TB, now time.Time, opts ...internalApp.Option) *Env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := sharedDomain.NewFixedClock(now)
	opts = append([]internalApp.Option{internalApp.WithClock(clock)}, opts...)

	container, err := internalApp.NewContainer(context.Background(), Config(), logger, opts...)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(container)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	return &Env{App: app, Clock: clock, Container: container}
}

// Run sets flags and calls the command's RunE, returning what it printed.
func Run(t testing.TB, cmd *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})

	err := cmd.RunE(cmd, args)
	return out.String(), err
}
