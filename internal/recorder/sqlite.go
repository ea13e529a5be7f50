package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log logrus.FieldLogger) (*SQLiteRecorder, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query the journal while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			job            TEXT NOT NULL,
			trigger_type   TEXT NOT NULL,
			duration_ms    INTEGER,
			prompt_words   INTEGER,
			prompt_chars   INTEGER,
			response_chars INTEGER,
			dry_run        INTEGER,
			error          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_job ON runs(job, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO runs
		(timestamp, job, trigger_type, duration_ms, prompt_words, prompt_chars, response_chars, dry_run, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		started.UnixMilli(), run.Job, run.Trigger, run.Duration.Milliseconds(),
		run.PromptWords, run.PromptChars, run.ResponseChars, run.DryRun, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

func (r *SQLiteRecorder) Recent(job string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, timestamp, job, trigger_type, duration_ms, prompt_words, prompt_chars, response_chars, dry_run, error
		FROM runs`
	args := []any{}
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			ts, durMs  int64
			errText    sql.NullString
			dryRunFlag bool
		)
		if err := rows.Scan(&run.ID, &ts, &run.Job, &run.Trigger, &durMs,
			&run.PromptWords, &run.PromptChars, &run.ResponseChars, &dryRunFlag, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(ts).UTC()
		run.Duration = time.Duration(durMs) * time.Millisecond
		run.DryRun = dryRunFlag
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
