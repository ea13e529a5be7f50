package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	log, _ := test.NewNullLogger()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "runs.db"), log)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordAndRecent(t *testing.T) {
	r := newTestRecorder(t)
	base := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)

	runs := []*Run{
		{Job: "btc", Trigger: "CRON", StartedAt: base, Duration: 1500 * time.Millisecond, PromptWords: 120, PromptChars: 800, ResponseChars: 300},
		{Job: "news", Trigger: "CLI", StartedAt: base.Add(time.Minute), DryRun: true, PromptWords: 50},
		{Job: "btc", Trigger: "HTTP", StartedAt: base.Add(2 * time.Minute), Error: "chat: timeout"},
	}
	for _, run := range runs {
		if err := r.RecordRun(run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
		if run.ID == 0 {
			t.Error("RecordRun did not set ID")
		}
	}

	all, err := r.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent returned %d runs, want 3", len(all))
	}
	if all[0].Trigger != "HTTP" || all[0].Error != "chat: timeout" {
		t.Errorf("newest run = %+v", all[0])
	}
	if !all[1].DryRun {
		t.Error("dry run flag lost")
	}
	if all[2].Duration != 1500*time.Millisecond || !all[2].StartedAt.Equal(base) {
		t.Errorf("oldest run = %+v", all[2])
	}

	btc, err := r.Recent("btc", 1)
	if err != nil {
		t.Fatalf("Recent(btc): %v", err)
	}
	if len(btc) != 1 || btc[0].Trigger != "HTTP" {
		t.Errorf("Recent(btc, 1) = %+v", btc)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&Run{Job: "x"}); err != nil {
		t.Errorf("RecordRun: %v", err)
	}
	runs, err := r.Recent("", 5)
	if err != nil || len(runs) != 0 {
		t.Errorf("Recent = %v, %v", runs, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
