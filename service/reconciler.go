package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/status"
)

// ProjectStatusStore is what reconciliation reads and writes
type ProjectStatusStore interface {
	AllProjects(ctx context.Context) ([]model.Project, error)
	UpdateProjectStatus(ctx context.Context, id int64, status string, delayDays int, note string) error
}

// Reconciler recomputes every project's status and delay from its dates.
// Rows marked stalled, and rows whose dates yield no status, are left alone.
type Reconciler struct {
	store   ProjectStatusStore
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.Mutex // one pass at a time
	cron *cron.Cron
}

func NewReconciler(store ProjectStatusStore, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, metrics: m, now: time.Now}
}

// RunOnce performs one pass and returns how many rows were scanned and
// how many were changed
func (r *Reconciler) RunOnce(ctx context.Context) (scanned, updated int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.store.AllProjects(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	today := r.now()
	for i := range projects {
		p := &projects[i]
		scanned++
		if p.Status == model.ProjectStalled {
			continue
		}
		res := status.ForProject(p, today)
		if res.Status == model.ProjectUnknown && p.Status != "" {
			continue
		}
		if res.Status == p.Status && res.DelayDays == p.DelayDays && res.Note == p.StatusNote {
			continue
		}
		if err := r.store.UpdateProjectStatus(ctx, p.ID, res.Status, res.DelayDays, res.Note); err != nil {
			return scanned, updated, fmt.Errorf("failed to update project %d: %w", p.ID, err)
		}
		slog.Debug("project status changed", "project_id", p.ID,
			"from", p.Status, "to", res.Status, "delay_days", res.DelayDays)
		updated++
	}

	if r.metrics != nil {
		r.metrics.ReconcileUpdates.Add(float64(updated))
	}
	return scanned, updated, nil
}

// Start schedules RunOnce on a standard cron spec such as "@daily"
func (r *Reconciler) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		scanned, updated, err := r.RunOnce(context.Background())
		if err != nil {
			slog.Error("reconciliation failed", "error", err)
			return
		}
		slog.Info("reconciliation finished", "scanned", scanned, "updated", updated,
			"duration", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	slog.Info("reconciler scheduled", "schedule", spec)
	return nil
}

// Stop stops the schedule and waits for a running pass
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	slog.Info("reconciler stopped")
}
