package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/loanbook/internal/app"
	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/jobs"
	"github.com/segyhp/loanbook/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging).With("component", "scheduler")
	logger.Info("starting loanbook scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	// Initialize cron scheduler
	c, err := jobs.NewCron(cfg.Scheduler, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return
	}

	runner := jobs.NewRunner(application.Service, logger, cfg.Scheduler.JobTimeout)
	if err := runner.Register(c, cfg.Scheduler); err != nil {
		logger.Error("failed to schedule jobs", "error", err)
		return
	}

	c.Start()
	logger.Info("scheduler started")

	<-ctx.Done()

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
