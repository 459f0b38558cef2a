// Package worker runs scheduled maintenance: quota resets and stale
// forecast cleanup.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"budgetme/internal/log"
)

// MaintenanceStore is the storage surface the jobs run against.
type MaintenanceStore interface {
	ResetDueQuotas(ctx context.Context, now time.Time) (int64, error)
	PurgeExpiredPredictions(ctx context.Context, now time.Time) (int64, error)
}

// Maintenance owns the cron scheduler. Quota resets also happen lazily
// on read, so these jobs are cleanup, not correctness.
type Maintenance struct {
	store MaintenanceStore
	cron  *cron.Cron
	log   *log.Logger
	now   func() time.Time

	quotaSchedule string
	purgeSchedule string
}

func NewMaintenance(store MaintenanceStore, quotaSchedule, purgeSchedule string, logger *log.Logger) *Maintenance {
	return &Maintenance{
		store:         store,
		cron:          cron.New(cron.WithLocation(time.UTC)),
		log:           logger.WithComponent(log.ComponentWorker),
		now:           time.Now,
		quotaSchedule: quotaSchedule,
		purgeSchedule: purgeSchedule,
	}
}

// Start registers the jobs and launches the scheduler.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(m.quotaSchedule, m.resetQuotas); err != nil {
		return fmt.Errorf("schedule quota reset: %w", err)
	}
	if _, err := m.cron.AddFunc(m.purgeSchedule, m.purgePredictions); err != nil {
		return fmt.Errorf("schedule prediction purge: %w", err)
	}

	m.cron.Start()
	m.log.Info("maintenance scheduler started",
		"quota_schedule", m.quotaSchedule,
		"purge_schedule", m.purgeSchedule,
	)
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("maintenance scheduler stopped",
		log.FieldOperation, log.OpShutdown,
	)
}

func (m *Maintenance) resetQuotas() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := m.store.ResetDueQuotas(ctx, m.now())
	if err != nil {
		m.log.ErrorContext(ctx, "quota reset failed",
			log.FieldError, err.Error(),
		)
		return
	}
	m.log.InfoContext(ctx, "quotas reset", "rows", n)
}

func (m *Maintenance) purgePredictions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := m.store.PurgeExpiredPredictions(ctx, m.now())
	if err != nil {
		m.log.ErrorContext(ctx, "prediction purge failed",
			log.FieldError, err.Error(),
		)
		return
	}
	if n > 0 {
		m.log.InfoContext(ctx, "expired predictions purged", "rows", n)
	}
}

// RunOnce executes both jobs immediately, for the worker binary's
// --once mode.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	now := m.now()
	if _, err := m.store.ResetDueQuotas(ctx, now); err != nil {
		return fmt.Errorf("reset quotas: %w", err)
	}
	if _, err := m.store.PurgeExpiredPredictions(ctx, now); err != nil {
		return fmt.Errorf("purge predictions: %w", err)
	}
	return nil
}
