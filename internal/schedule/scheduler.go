// Package schedule runs named jobs on time-of-day and interval triggers.
// Jobs never overlap: due jobs run one after another on the caller's
// goroutine.
package schedule

import (
	"context"
	"time"

	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/metrics"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	fn   func(context.Context) error
}

func (f funcJob) Name() string                  { return f.name }
func (f funcJob) Run(ctx context.Context) error { return f.fn(ctx) }

// Func adapts a function to a Job.
func Func(name string, fn func(context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}

type entry struct {
	job     Job
	trigger Trigger
	next    time.Time
}

// Scheduler holds jobs and fires them when due.
type Scheduler struct {
	entries []*entry
	tick    time.Duration
	now     func() time.Time
	loc     *time.Location
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets how often Run checks for due jobs.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLocation sets the zone that time-of-day triggers are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMetrics records job runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates an empty Scheduler that checks once a second.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tick: time.Second,
		now:  time.Now,
		loc:  time.Local,
		log:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("scheduler")
	return s
}

// Add registers job under trigger. Jobs added earlier run first when
// several are due at once.
func (s *Scheduler) Add(job Job, trigger Trigger) {
	s.entries = append(s.entries, &entry{job: job, trigger: trigger})
}

// Run checks for due jobs every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now().In(s.loc)
	for _, e := range s.entries {
		e.next = e.trigger.Next(start)
		s.log.Infow("Scheduled job", "job", e.job.Name(), "trigger", e.trigger.String(), "next", e.next)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infow("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunPending(ctx, s.now())
		}
	}
}

// RunPending runs every job due at now and returns how many ran. A job
// seen for the first time is scheduled from now rather than run.
// Job errors are logged and do not affect other jobs.
func (s *Scheduler) RunPending(ctx context.Context, now time.Time) int {
	now = now.In(s.loc)
	ran := 0
	for _, e := range s.entries {
		if ctx.Err() != nil {
			return ran
		}
		if e.next.IsZero() {
			e.next = e.trigger.Next(now)
			continue
		}
		if now.Before(e.next) {
			continue
		}

		s.runJob(ctx, e.job)
		ran++
		e.next = e.trigger.Next(now)
	}
	return ran
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	log := s.log.WithFields("job", job.Name())
	log.Infow("Job started")

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)
	s.metrics.JobRun(job.Name(), elapsed, err)

	if err != nil {
		log.WithError(err).Errorw("Job failed", "duration", elapsed)
		return
	}
	log.Infow("Job finished", "duration", elapsed)
}
