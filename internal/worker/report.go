package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
)

// SnapshotGenerator defines the interface for generating snapshots.
type SnapshotGenerator interface {
	Generate(ctx context.Context, now time.Time) (domain.Portfolio, error)
}

// AfterSnapshotHook is called after each successful snapshot generation.
type AfterSnapshotHook interface {
	Export(ctx context.Context, p domain.Portfolio) error
}

// ReportWorker periodically generates the daily portfolio snapshot.
type ReportWorker struct {
	generator SnapshotGenerator
	interval  time.Duration
	hook      AfterSnapshotHook // optional
	now       func() time.Time
}

// NewReportWorker creates a new ReportWorker with an optional post-generation hook.
func NewReportWorker(generator SnapshotGenerator, interval time.Duration, hook AfterSnapshotHook) *ReportWorker {
	return &ReportWorker{
		generator: generator,
		interval:  interval,
		hook:      hook,
		now:       time.Now,
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, p domain.Portfolio) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, p); err != nil {
		slog.Error("ReportWorker: export hook failed", "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed")
	}
}

func (w *ReportWorker) generate(ctx context.Context) {
	p, err := w.generator.Generate(ctx, w.now())
	if err != nil {
		slog.Error("ReportWorker: generation failed", "error", err)
		return
	}
	slog.Info("ReportWorker: generation completed", "holdings", len(p.Holdings), "warnings", len(p.Warnings))
	w.runHook(ctx, p)
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "interval", w.interval)

	// Generate immediately on startup
	w.generate(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.generate(ctx)
		}
	}
}
