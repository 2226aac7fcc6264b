package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeriodicJob submits kind every interval. RunOnStart fires one run immediately.
type PeriodicJob struct {
	Kind       JobKind
	Interval   time.Duration
	RunOnStart bool
}

// PeriodicTrigger feeds the scheduler on fixed intervals
type PeriodicTrigger struct {
	scheduler *Scheduler
	jobs      []PeriodicJob
	logger    *zap.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPeriodicTrigger creates a trigger. Jobs with a non-positive interval are ignored.
func NewPeriodicTrigger(scheduler *Scheduler, logger *zap.Logger, jobs ...PeriodicJob) *PeriodicTrigger {
	active := make([]PeriodicJob, 0, len(jobs))
	for _, j := range jobs {
		if j.Interval > 0 && j.Kind.IsValid() {
			active = append(active, j)
		}
	}
	return &PeriodicTrigger{
		scheduler: scheduler,
		jobs:      active,
		logger:    logger,
	}
}

// Start launches one ticker goroutine per job
func (t *PeriodicTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	for _, j := range t.jobs {
		t.wg.Add(1)
		go t.run(ctx, j)
		t.logger.Info("periodic job registered",
			zap.String("kind", string(j.Kind)),
			zap.Duration("interval", j.Interval),
		)
	}
	return nil
}

// Stop halts the tickers and waits for them to exit
func (t *PeriodicTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.logger.Warn("periodic trigger stop timed out")
		return ctx.Err()
	}
}

func (t *PeriodicTrigger) run(ctx context.Context, j PeriodicJob) {
	defer t.wg.Done()

	if j.RunOnStart {
		t.submit(j.Kind)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.submit(j.Kind)
		}
	}
}

func (t *PeriodicTrigger) submit(kind JobKind) {
	err := t.scheduler.Schedule(kind)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyQueued):
		t.logger.Debug("previous run still queued", zap.String("kind", string(kind)))
	case errors.Is(err, ErrSchedulerNotRunning):
		t.logger.Debug("scheduler not running, skipping job", zap.String("kind", string(kind)))
	default:
		t.logger.Warn("failed to submit periodic job", zap.String("kind", string(kind)), zap.Error(err))
	}
}
