// Package scheduler runs the periodic sync jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	spec string
	run  Job
	// wrapped is the cron entry's job, carrying the Recover and
	// SkipIfStillRunning chain.
	wrapped cron.Job
}

// Scheduler wraps robfig/cron. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	jobs []namedJob

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

// New creates an empty Scheduler.
func New(log *slog.Logger) *Scheduler {
	logger := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
		ctx: context.Background(),
	}
}

// Add registers job under name. spec is a standard five-field cron
// expression or a descriptor such as "@every 6h".
func (s *Scheduler) Add(name, spec string, job Job) error {
	nj := namedJob{name: name, spec: spec, run: job}
	id, err := s.cron.AddFunc(spec, func() { s.runJob(nj) })
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}
	nj.wrapped = s.cron.Entry(id).WrappedJob
	s.jobs = append(s.jobs, nj)
	return nil
}

// Start starts the cron loop and runs every job once immediately, so data is
// populated without waiting for the first tick. The first run goes through the
// same chain as ticks, so a tick during it is skipped. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.jobs))

	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j namedJob) {
			defer s.wg.Done()
			j.wrapped.Run()
		}(j)
	}
}

// Stop stops scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runJob(j namedJob) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.log.Error("scheduled job failed", "job", j.name, "duration", time.Since(start), "err", err)
		return
	}
	s.log.Info("scheduled job finished", "job", j.name, "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
