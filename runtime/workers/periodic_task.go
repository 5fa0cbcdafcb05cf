package workers

import (
	"context"
	"ephemeral-chat/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// retryAfterScheduleError is how long a task waits when its schedule cannot
// compute the next tick.
const retryAfterScheduleError = 30 * time.Second

// Schedule computes the next run strictly after a given instant.
type Schedule interface {
	Next(after time.Time) (time.Time, error)
}

// IntervalSchedule fires at a fixed period.
type IntervalSchedule struct {
	Every time.Duration
}

func (s IntervalSchedule) Next(after time.Time) (time.Time, error) {
	if s.Every <= 0 {
		return time.Time{}, fmt.Errorf("%w: interval must be positive, got %s", errors.ErrValidation, s.Every)
	}
	return after.Add(s.Every), nil
}

// CronSchedule fires on a standard five-field cron expression, evaluated in UTC.
type CronSchedule struct {
	expr string
}

func NewCronSchedule(expr string) (CronSchedule, error) {
	if !gronx.IsValid(expr) {
		return CronSchedule{}, fmt.Errorf("%w: invalid cron expression %q", errors.ErrValidation, expr)
	}
	return CronSchedule{expr: expr}, nil
}

func (s CronSchedule) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, after.UTC(), false)
}

// Job is one unit of periodic work. now is the snapshot taken when the run started.
type Job func(ctx context.Context, now time.Time) error

// PeriodicTask runs a job on a schedule until stopped.
// A failing or panicking run is logged and the next one is still scheduled.
// Stopping never interrupts a run in progress: the job receives a context that
// is not cancelled by Stop, and Stop waits for it to return.
type PeriodicTask struct {
	name     string
	log      *slog.Logger
	schedule Schedule
	job      Job
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodicTask(name string, log *slog.Logger, schedule Schedule, job Job) *PeriodicTask {
	return &PeriodicTask{name: name, log: log, schedule: schedule, job: job, now: time.Now}
}

func (p *PeriodicTask) Name() string { return p.name }

// Run blocks until ctx is cancelled. It satisfies contract.Worker so the task
// can also live under a Supervisor.
func (p *PeriodicTask) Run(ctx context.Context) error {
	for {
		next, err := p.schedule.Next(p.now())
		wait := time.Until(next)
		if err != nil {
			p.log.Error("Unable to compute next run", "task", p.name, "error", err)
			wait = retryAfterScheduleError
		}

		timer := time.NewTimer(max(wait, 0))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Debug("Periodic task stopped", "task", p.name)
			return nil
		case <-timer.C:
		}
		if err != nil {
			continue
		}
		p.RunOnce(context.WithoutCancel(ctx))
	}
}

// RunOnce executes the job immediately and swallows its failure.
func (p *PeriodicTask) RunOnce(ctx context.Context) {
	startedAt := p.now()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Periodic task panicked", "task", p.name, "error", fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r))
		}
	}()
	if err := p.job(ctx, startedAt); err != nil {
		p.log.Error("Periodic task failed", "task", p.name, "error", err)
		return
	}
	p.log.Debug("Periodic task done", "task", p.name, "duration", time.Since(startedAt))
}

// Start runs the task in its own goroutine. Calling Start twice is a no-op.
func (p *PeriodicTask) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = p.Run(taskCtx)
	}(p.done)
}

// Stop prevents new runs and waits for the current one to finish.
func (p *PeriodicTask) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
