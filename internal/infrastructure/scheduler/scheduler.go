// Package scheduler runs the back-office maintenance jobs (driver license
// scans and outbox cleanup) on a small worker pool.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	ErrInvalidJobKind      = errors.New("invalid job kind")

	// ErrJobAlreadyQueued means a run of the same kind is already waiting
	ErrJobAlreadyQueued = errors.New("job already queued")
)

// JobKind identifies a maintenance task
type JobKind string

const (
	JobKindLicenseScan   JobKind = "LICENSE_SCAN"
	JobKindOutboxCleanup JobKind = "OUTBOX_CLEANUP"
)

// AllJobKinds returns every known job kind
func AllJobKinds() []JobKind {
	return []JobKind{JobKindLicenseScan, JobKindOutboxCleanup}
}

// IsValid checks if the kind is known
func (k JobKind) IsValid() bool {
	return k == JobKindLicenseScan || k == JobKindOutboxCleanup
}

// JobExecutor runs one maintenance job
type JobExecutor interface {
	Execute(ctx context.Context, kind JobKind) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	// RetryAttempts is the number of reruns after a failure. The n-th rerun
	// waits n*RetryDelay.
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 2,
		JobTimeout:        5 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

// RunStats summarizes the runs of one job kind since start
type RunStats struct {
	Kind         JobKind
	Runs         int
	Failures     int
	Queued       bool
	LastStarted  time.Time
	LastFinished time.Time
	LastError    string
}

type request struct {
	kind      JobKind
	attempt   int
	notBefore time.Time
}

// Scheduler runs maintenance jobs with retries. At most one run per kind
// waits in the queue; extra submissions are coalesced into it.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	queue  chan request
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	stats   map[JobKind]*RunStats
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	stats := make(map[JobKind]*RunStats)
	for _, k := range AllJobKinds() {
		stats[k] = &RunStats{Kind: k}
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		queue:    make(chan request, len(stats)),
		stats:    stats,
	}
}

// Start launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.logger.Info("scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Schedule queues a run of kind
func (s *Scheduler) Schedule(kind JobKind) error {
	if !kind.IsValid() {
		return ErrInvalidJobKind
	}
	return s.enqueue(request{kind: kind})
}

// Stats returns a snapshot of the run history of kind
func (s *Scheduler) Stats(kind JobKind) (RunStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[kind]
	if !ok {
		return RunStats{}, false
	}
	return *st, true
}

func (s *Scheduler) enqueue(req request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	st := s.stats[req.kind]
	if st.Queued {
		return ErrJobAlreadyQueued
	}
	select {
	case s.queue <- req:
		st.Queued = true
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.run(ctx, req, workerID)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, req request, workerID int) {
	if wait := time.Until(req.notBefore); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	s.mu.Lock()
	st := s.stats[req.kind]
	st.Queued = false
	st.Runs++
	st.LastStarted = time.Now()
	s.mu.Unlock()

	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("kind", string(req.kind)),
		zap.Int("attempt", req.attempt+1),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.executor.Execute(jobCtx, req.kind)
	cancel()

	s.mu.Lock()
	st.LastFinished = time.Now()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err == nil {
		log.Debug("job completed")
		return
	}
	log.Error("job failed", zap.Error(err))
	if req.attempt >= s.config.RetryAttempts || ctx.Err() != nil {
		return
	}

	retry := request{
		kind:      req.kind,
		attempt:   req.attempt + 1,
		notBefore: time.Now().Add(time.Duration(req.attempt+1) * s.config.RetryDelay),
	}
	switch err := s.enqueue(retry); {
	case err == nil:
		log.Info("job scheduled for retry", zap.Time("not_before", retry.notBefore))
	case errors.Is(err, ErrJobAlreadyQueued):
		log.Debug("newer run already queued, retry dropped")
	default:
		log.Warn("failed to re-queue job for retry", zap.Error(err))
	}
}
