package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mtlprog/cartera/internal/tracker"
)

// DefaultAccrualSchedule runs the accrual job five minutes after local midnight.
const DefaultAccrualSchedule = "5 0 * * *"

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules evaluated in a fixed timezone.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler creates a Scheduler. Jobs receive ctx and stop being started once it is done.
func NewScheduler(ctx context.Context, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:  ctx,
	}
}

// AddJob registers a job under a standard five-field cron spec or a descriptor such as "@daily".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.RunNow(job)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name(), err)
	}
	slog.Info("Scheduler: job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) {
	slog.Debug("Scheduler: running job", "job", job.Name())
	if err := job.Run(s.ctx); err != nil {
		slog.Error("Scheduler: job failed", "job", job.Name(), "error", err)
		return
	}
	slog.Debug("Scheduler: job completed", "job", job.Name())
}

// Run starts the scheduler and blocks until the context is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run() {
	slog.Info("Scheduler: starting")
	s.cron.Start()
	<-s.ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("Scheduler: shutting down")
}

// Accruer runs the daily yield and fixed-term accrual.
type Accruer interface {
	Accrue(ctx context.Context, now time.Time) (tracker.AccrualReport, error)
}

// AccrualJob catches up interest and settles matured deposits.
type AccrualJob struct {
	accruer Accruer
	now     func() time.Time
}

// NewAccrualJob creates the accrual job.
func NewAccrualJob(accruer Accruer) *AccrualJob {
	return &AccrualJob{accruer: accruer, now: time.Now}
}

func (j *AccrualJob) Name() string { return "accrual" }

func (j *AccrualJob) Run(ctx context.Context) error {
	report, err := j.accruer.Accrue(ctx, j.now())
	if err != nil {
		return fmt.Errorf("accruing: %w", err)
	}
	slog.Info("AccrualJob: done", "day", report.Day, "interest", len(report.Interest), "settlements", len(report.Settlements))
	return nil
}
