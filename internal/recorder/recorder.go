package recorder

import "time"

// Run is one execution of a job.
type Run struct {
	ID            int64
	Job           string
	Trigger       string // "CRON", "CLI", "HTTP" or "TELEGRAM"
	StartedAt     time.Time
	Duration      time.Duration
	PromptWords   int
	PromptChars   int
	ResponseChars int
	DryRun        bool
	Error         string
}

// Recorder persists the run journal.
type Recorder interface {
	RecordRun(run *Run) error
	// Recent returns up to limit runs, newest first. An empty job matches all.
	Recent(job string, limit int) ([]Run, error)
	Close() error
}
