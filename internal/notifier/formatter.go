package notifier

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the Telegram limit for one message, in characters.
const MaxMessageLength = 4096

// Split cuts text into chunks of at most limit characters, preferring to
// break after a newline.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// JobInfo is what the /jobs command shows per job.
type JobInfo struct {
	Name string
	Cron string
}

// FormatJobs lists jobs one per line.
func FormatJobs(jobs []JobInfo) string {
	if len(jobs) == 0 {
		return "No jobs configured."
	}
	var b strings.Builder
	b.WriteString("Jobs:\n")
	for _, j := range jobs {
		schedule := j.Cron
		if schedule == "" {
			schedule = "manual"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", j.Name, schedule)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n/jobs - list jobs\n/run <name> - run a job"
}
