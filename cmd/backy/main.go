package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/adapter/cli/commitment"
	"github.com/jurzon/backy/adapter/cli/jobs"
	"github.com/jurzon/backy/adapter/cli/payment"
	"github.com/jurzon/backy/adapter/cli/quiethours"
	"github.com/jurzon/backy/internal/app"
	"github.com/jurzon/backy/pkg/config"
	"github.com/jurzon/backy/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv("backy")
	cli.SetLogger(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	switch {
	case err == nil:
		defer container.Close()
		cli.SetApp(cli.NewApp(container))
	case cfg.IsDevelopment():
		// version and help still work without a database.
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	default:
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	cli.AddCommand(commitment.Cmd)
	cli.AddCommand(quiethours.Cmd)
	cli.AddCommand(jobs.Cmd)
	cli.AddCommand(payment.Cmd)

	cli.Execute(ctx)
}
