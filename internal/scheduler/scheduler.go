package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"MarketPrompt/internal/config"
	"MarketPrompt/internal/pipeline"
)

// Runner executes one job run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Scheduler runs jobs on their cron schedules.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context

	log     logrus.FieldLogger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates a new Scheduler. A run still in progress when its
// next tick arrives makes that tick a no-op.
func NewScheduler(ctx context.Context, runner Runner, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner:  runner,
		Ctx:     ctx,
		log:     log,
		entries: map[string]cron.EntryID{},
	}
}

// RegisterAll registers every job that has a cron spec.
func (s *Scheduler) RegisterAll(jobs []config.Job) error {
	for _, job := range jobs {
		if job.Cron == "" {
			continue
		}
		if err := s.Register(job.Name, job.Cron); err != nil {
			return err
		}
	}
	return nil
}

// Register schedules the job called name.
func (s *Scheduler) Register(name, spec string) error {
	id, err := s.Cron.AddFunc(spec, func() { s.run(name) })
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.mu.Lock()
	s.entries[name] = id
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"job": name, "cron": spec}).Info("job scheduled")
	return nil
}

// Next returns the next scheduled run of the job called name.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.Cron.Entry(id).Next
	return next, !next.IsZero()
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(name string) {
	s.log.WithField("job", name).Info("running scheduled job")
	if _, err := s.Runner.Run(s.Ctx, pipeline.Request{Job: name, Trigger: pipeline.TriggerCron}); err != nil {
		s.log.WithError(err).WithField("job", name).Error("scheduled job failed")
	}
}

// cronLogger adapts logrus to the cron.Logger interface.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
