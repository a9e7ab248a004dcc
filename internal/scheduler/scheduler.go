// Package scheduler runs pipeline jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"councilreader/internal/logger"
)

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs in one time zone. A job whose previous
// run is still going is skipped rather than started twice.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	loc     *time.Location
	log     *logger.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. timeout bounds each job run; zero means no bound.
func New(timezone string, log *logger.Logger, timeout time.Duration) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	if log == nil {
		log = logger.Discard()
	}

	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    make(map[string]cron.EntryID),
		loc:     loc,
		log:     log,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// AddJob schedules job under a standard five-field cron spec. Scheduled runs
// are canceled by Stop.
func (s *Scheduler) AddJob(name, spec string, job Job) error {
	entryID, err := s.cron.AddFunc(spec, func() {
		if err := s.RunNow(s.ctx, name, job); err != nil {
			s.log.Error("❌ Scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info("📅 Job scheduled", "job", name, "spec", spec)

	return nil
}

// RunNow runs job immediately under the scheduler's timeout.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info("▶️  Job starting", "job", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		return err
	}

	s.log.Info("✅ Job finished", "job", name, "duration", time.Since(start).Round(time.Second))

	return nil
}

// Next returns the next run time of a job, or the zero time if unknown.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}
	}

	return s.cron.Entry(id).Next
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and cancels running jobs. The returned context is
// done once they have returned.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.cancel()

	return done
}

// cronLogger adapts the pipeline logger to cron's logger.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
