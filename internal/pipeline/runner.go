package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"MarketPrompt/internal/components"
	"MarketPrompt/internal/config"
	"MarketPrompt/internal/prompt"
	"MarketPrompt/internal/recorder"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCron     Trigger = "CRON"
	TriggerCLI      Trigger = "CLI"
	TriggerHTTP     Trigger = "HTTP"
	TriggerTelegram Trigger = "TELEGRAM"
)

// ErrUnknownJob is returned for a job name that is not configured.
var ErrUnknownJob = errors.New("unknown job")

// ErrNoChat is returned when a run needs the chat model and none is set.
var ErrNoChat = errors.New("chat model not configured")

// Chatter is the chat model as seen by a run.
type Chatter interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	StreamTo(ctx context.Context, w io.Writer, prompt string) (string, error)
}

// Notifier delivers run output.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// RunObserver receives one call per finished run.
type RunObserver interface {
	ObserveRun(job, trigger string, err error)
}

// Request describes one run.
type Request struct {
	Job     string
	Trigger Trigger
	DryRun  bool
	// Stream receives the answer as it is generated for jobs with stream
	// enabled. Nil means no streaming.
	Stream io.Writer
	Extra  []prompt.Component
}

// Result is the outcome of a run.
type Result struct {
	Job         string        `json:"job"`
	Prompt      string        `json:"prompt"`
	Response    string        `json:"response,omitempty"`
	PromptWords int           `json:"prompt_words"`
	PromptChars int           `json:"prompt_characters"`
	Duration    time.Duration `json:"duration_ns"`
}

// Runner executes configured jobs.
type Runner struct {
	Builder    *Builder
	Chat       Chatter
	Recorder   recorder.Recorder
	Notifier   Notifier
	Observer   RunObserver
	Log        logrus.FieldLogger
	MaxRetries int

	mu   sync.RWMutex
	jobs []config.Job
}

// NewRunner creates a runner for jobs.
func NewRunner(jobs []config.Job, b *Builder) *Runner {
	return &Runner{Builder: b, jobs: jobs, MaxRetries: 3}
}

// Jobs returns the configured jobs.
func (r *Runner) Jobs() []config.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]config.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// SetJobs replaces the configured jobs.
func (r *Runner) SetJobs(jobs []config.Job) {
	r.mu.Lock()
	r.jobs = jobs
	r.mu.Unlock()
}

// Job returns the job called name.
func (r *Runner) Job(name string) (config.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return config.Job{}, false
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// Run composes the job's prompt and, unless this is a dry run or the job
// skips chat, sends it to the chat model. Every run is journaled.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	began := time.Now()
	log := r.logger().WithFields(logrus.Fields{"job": req.Job, "trigger": req.Trigger})

	res, err := r.run(ctx, req, log)
	if res == nil {
		res = &Result{Job: req.Job}
	}
	res.Duration = time.Since(began)

	r.record(req, res, began, err, log)
	if r.Observer != nil {
		r.Observer.ObserveRun(req.Job, string(req.Trigger), err)
	}
	if err != nil {
		log.WithError(err).Error("run failed")
		return nil, err
	}
	log.WithField("duration", res.Duration).Info("run finished")
	return res, nil
}

func (r *Runner) run(ctx context.Context, req Request, log logrus.FieldLogger) (*Result, error) {
	job, ok := r.Job(req.Job)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, req.Job)
	}

	comp, err := r.Builder.Build(job, req.Extra...)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", job.Name, err)
	}
	text, err := comp.Compose(ctx)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", job.Name, err)
	}

	res := &Result{Job: job.Name, Prompt: text}
	res.PromptWords, res.PromptChars = prompt.Stats(text)
	if req.DryRun {
		return res, nil
	}

	output := text
	if !job.SkipChat {
		if r.Chat == nil {
			return res, ErrNoChat
		}
		if job.Stream && req.Stream != nil {
			res.Response, err = r.Chat.StreamTo(ctx, req.Stream, text)
		} else {
			res.Response, err = r.Chat.Invoke(ctx, text)
		}
		if err != nil {
			return res, fmt.Errorf("chat %s: %w", job.Name, err)
		}
		output = res.Response
	}

	// Telegram-triggered runs are answered by the command reply.
	if job.Notify && r.Notifier != nil && req.Trigger != TriggerTelegram {
		if err := r.Notifier.SendWithRetry(ctx, output, r.MaxRetries); err != nil {
			log.WithError(err).Error("notify")
		}
	}
	return res, nil
}

func (r *Runner) record(req Request, res *Result, began time.Time, runErr error, log logrus.FieldLogger) {
	if r.Recorder == nil {
		return
	}
	run := &recorder.Run{
		Job:           req.Job,
		Trigger:       string(req.Trigger),
		StartedAt:     began,
		Duration:      res.Duration,
		PromptWords:   res.PromptWords,
		PromptChars:   res.PromptChars,
		ResponseChars: utf8.RuneCountInString(res.Response),
		DryRun:        req.DryRun,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := r.Recorder.RecordRun(run); err != nil {
		log.WithError(err).Error("record run")
	}
}

// RunFreqtrade appends the candles of a freqtrade webhook body to the named
// job and runs it.
func (r *Runner) RunFreqtrade(ctx context.Context, req Request, body []byte) (*Result, error) {
	ft, err := components.NewFreqtrade(body)
	if err != nil {
		return nil, err
	}
	req.Extra = append(req.Extra, ft)
	return r.Run(ctx, req)
}
