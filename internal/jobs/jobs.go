// Package jobs holds the periodic work run by cmd/scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/domain"
)

// LedgerService is the part of the loan service the jobs read from.
type LedgerService interface {
	AuditLedger(ctx context.Context) ([]domain.LedgerDiscrepancy, error)
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
}

type Runner struct {
	service LedgerService
	logger  *slog.Logger
	timeout time.Duration
}

func NewRunner(service LedgerService, logger *slog.Logger, timeout time.Duration) *Runner {
	return &Runner{service: service, logger: logger, timeout: timeout}
}

// NewCron returns a scheduler with second-level specs in the configured zone.
// A job still running when its next tick fires is skipped.
func NewCron(cfg config.SchedulerConfig, logger *slog.Logger) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	), nil
}

// Register schedules the audit and snapshot jobs on c.
func (r *Runner) Register(c *cron.Cron, cfg config.SchedulerConfig) error {
	if _, err := c.AddFunc(cfg.AuditSpec, func() { r.AuditLedger(context.Background()) }); err != nil {
		return fmt.Errorf("schedule ledger audit: %w", err)
	}
	if _, err := c.AddFunc(cfg.SnapshotSpec, func() { r.DashboardSnapshot(context.Background()) }); err != nil {
		return fmt.Errorf("schedule dashboard snapshot: %w", err)
	}

	r.logger.Info("cron jobs scheduled",
		"audit_spec", cfg.AuditSpec,
		"snapshot_spec", cfg.SnapshotSpec,
		"timezone", cfg.Timezone,
	)
	return nil
}

// AuditLedger logs every loan whose stored state disagrees with the ledger
// rules and returns how many discrepancies it found.
func (r *Runner) AuditLedger(ctx context.Context) int {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	discrepancies, err := r.service.AuditLedger(ctx)
	if err != nil {
		r.logger.Error("ledger audit failed", "error", err, "found", len(discrepancies))
		return len(discrepancies)
	}

	for _, d := range discrepancies {
		r.logger.Error("ledger discrepancy", "loan_id", d.LoanID, "reason", d.Reason)
	}
	r.logger.Info("ledger audit finished",
		"discrepancies", len(discrepancies),
		"duration", time.Since(started),
	)
	return len(discrepancies)
}

// DashboardSnapshot logs the current book totals.
func (r *Runner) DashboardSnapshot(ctx context.Context) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stats, err := r.service.Dashboard(ctx)
	if err != nil {
		r.logger.Error("dashboard snapshot failed", "error", err)
		return
	}

	r.logger.Info("dashboard snapshot",
		"customers", stats.TotalCustomers,
		"loans", stats.TotalLoans,
		"active", stats.ActiveLoans,
		"paid_off", stats.PaidOffLoans,
		"principal", stats.TotalPrincipal.StringFixed(2),
		"outstanding", stats.TotalOutstanding.StringFixed(2),
		"collected", stats.TotalCollected.StringFixed(2),
	)
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
