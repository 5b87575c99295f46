// Package scheduler runs the engine's control loop: each tick it
// evaluates every registered job against one captured instant, attempts
// the advisory lock for due jobs, executes winners concurrently and
// records their outcomes. Lock contention is the expected steady state
// with redundant replicas and is skipped silently, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"jobengine/internal/domain"
	"jobengine/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTickInterval = time.Second
	defaultGracePeriod  = 30 * time.Second
)

// Scheduler owns the single control loop of a process. It is an
// explicitly constructed, start/stop-managed object, not a singleton.
type Scheduler struct {
	registry   *domain.Registry
	locker     domain.Locker
	executions domain.ExecutionRepository
	db         *pgxpool.Pool

	clock    Clock
	interval time.Duration
	grace    time.Duration

	logger *slog.Logger
	tracer trace.Tracer

	// lastFired guards against double firing when the loop wakes more
	// than once within the same second. Touched only by the loop goroutine.
	lastFired map[string]time.Time

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock substitutes the time source; used by tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTickInterval sets how often the loop wakes. The interval should be
// no coarser than one second or second-granular schedules can be missed.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithGracePeriod bounds how long Stop waits for in-flight executions.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Scheduler) { s.grace = d }
}

// WithDB sets the storage pool handed to job contexts.
func WithDB(pool *pgxpool.Pool) Option {
	return func(s *Scheduler) { s.db = pool }
}

// New builds a scheduler over a populated registry. Collaborator wiring
// errors surface here, before Start; per-tick errors never do.
func New(registry *domain.Registry, locker domain.Locker, executions domain.ExecutionRepository, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if registry == nil {
		return nil, errors.New("scheduler: registry cannot be nil")
	}
	if locker == nil {
		return nil, errors.New("scheduler: locker cannot be nil")
	}
	if executions == nil {
		return nil, errors.New("scheduler: execution repository cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("scheduler: logger cannot be nil")
	}

	s := &Scheduler{
		registry:   registry,
		locker:     locker,
		executions: executions,
		clock:      systemClock{},
		interval:   defaultTickInterval,
		grace:      defaultGracePeriod,
		logger:     logger.With("component", "scheduler"),
		tracer:     otel.Tracer("jobengine-scheduler"),
		lastFired:  make(map[string]time.Time),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		return nil, fmt.Errorf("scheduler: tick interval must be positive, got %s", s.interval)
	}
	return s, nil
}

// Start runs the control loop until ctx is cancelled or Stop is called,
// then drains in-flight executions for the configured grace period.
// It returns ctx.Err() on cancellation and nil after Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler: already started")
	}
	s.logger.Info("scheduler started",
		"jobs", s.registry.Len(),
		"tick_interval", s.interval.String(),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", "context cancelled")
			s.drain()
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Info("scheduler stopping", "reason", "stop requested")
			s.drain()
			return nil
		case <-ticker.C:
			s.runTick(ctx, s.clock.Now())
		}
	}
}

// Stop asks the loop to quit scheduling new ticks. Idempotent. In-flight
// executions keep running until they finish or the grace period expires.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Scheduler) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(s.grace):
		s.logger.Warn("grace period expired with executions still in flight",
			"grace_period", s.grace.String())
	}
}

// runTick evaluates every registered job against a single captured
// instant, in registry order. A failing or contended job never affects
// the evaluation of the others.
func (s *Scheduler) runTick(ctx context.Context, now time.Time) {
	tick := now.Truncate(time.Second)
	metrics.SchedulerTicksTotal.Inc()

	for _, entry := range s.registry.All() {
		job := entry.Job
		if !entry.Schedule.Matches(tick) {
			continue
		}
		if last, ok := s.lastFired[job.Name]; ok && !tick.After(last) {
			// The loop woke twice within the same second.
			continue
		}
		s.lastFired[job.Name] = tick
		metrics.JobsDueTotal.WithLabelValues(job.Name).Inc()
		s.logger.Debug("job due", "job_name", job.Name, "tick", tick)

		acquired, err := s.locker.TryAcquire(ctx, job.Name)
		if err != nil {
			metrics.StorageErrorsTotal.WithLabelValues("lock").Inc()
			s.logger.Error("lock storage unreachable, job skipped this tick",
				"job_name", job.Name, "error", err)
			continue
		}
		if !acquired {
			metrics.LockDeniedTotal.WithLabelValues(job.Name).Inc()
			s.logger.Debug("lock held elsewhere, skipping", "job_name", job.Name)
			continue
		}

		s.wg.Add(1)
		go s.execute(entry, tick)
	}
}

// execute runs one attempt, records its outcome and releases the lock on
// both paths. It runs on a context detached from the loop's so shutdown
// does not cancel work already in flight.
func (s *Scheduler) execute(entry *domain.Entry, firedAt time.Time) {
	defer s.wg.Done()

	job := entry.Job
	executionID := uuid.NewString()

	ctx, span := s.tracer.Start(context.Background(), "scheduler.Execute",
		trace.WithAttributes(
			attribute.String("job.name", job.Name),
			attribute.String("execution.id", executionID),
		))
	defer span.End()

	defer func() {
		if err := s.locker.Release(ctx, job.Name); err != nil {
			metrics.StorageErrorsTotal.WithLabelValues("unlock").Inc()
			s.logger.Error("failed to release advisory lock",
				"job_name", job.Name, "execution_id", executionID, "error", err)
		}
	}()

	jc := &domain.JobContext{
		ExecutionID: executionID,
		JobName:     job.Name,
		FiredAt:     firedAt,
		DB:          s.db,
		Executions:  s.executions,
	}

	s.logger.Info("execution started", "job_name", job.Name, "execution_id", executionID)

	record := &domain.ExecutionRecord{
		ID:        executionID,
		JobName:   job.Name,
		StartTime: s.clock.Now(),
	}
	err := runGuarded(ctx, job.Runner, jc)
	record.EndTime = s.clock.Now()
	record.Output = jc.Output

	if err != nil {
		record.Status = domain.ExecutionStatusFailed
		record.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		s.logger.Error("execution failed",
			"job_name", job.Name,
			"execution_id", executionID,
			"duration", record.Duration().String(),
			"error", err,
		)
	} else {
		record.Status = domain.ExecutionStatusSuccess
		s.logger.Info("execution finished",
			"job_name", job.Name,
			"execution_id", executionID,
			"duration", record.Duration().String(),
		)
	}
	metrics.JobExecutionsTotal.WithLabelValues(job.Name, string(record.Status)).Inc()
	metrics.JobExecutionDuration.WithLabelValues(job.Name).Observe(record.Duration().Seconds())

	if saveErr := s.executions.Save(ctx, record); saveErr != nil {
		metrics.StorageErrorsTotal.WithLabelValues("history").Inc()
		s.logger.Error("failed to record execution outcome",
			"job_name", job.Name, "execution_id", executionID, "error", saveErr)
	}
}

// runGuarded invokes the runner and converts a panic into an ordinary
// execution error so a faulty job cannot kill the loop.
func runGuarded(ctx context.Context, r domain.Runner, jc *domain.JobContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("runner panicked: %v", p)
		}
	}()
	return r.Run(ctx, jc)
}
