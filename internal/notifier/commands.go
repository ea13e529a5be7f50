package notifier

import (
	"context"
	"fmt"
	"strings"
)

// Commands answers the bot commands /jobs, /run and /help.
type Commands struct {
	Jobs func() []JobInfo
	Run  func(ctx context.Context, name string) (string, error)
}

// Handle implements CommandHandler.
func (c Commands) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/jobs":
		return FormatJobs(c.Jobs())
	case "/run":
		if len(fields) < 2 {
			return "Usage: /run <name>"
		}
		answer, err := c.Run(ctx, fields[1])
		if err != nil {
			return fmt.Sprintf("Run %s failed: %v", fields[1], err)
		}
		if strings.TrimSpace(answer) == "" {
			return fmt.Sprintf("Run %s finished with an empty answer.", fields[1])
		}
		return answer
	case "/help", "/start":
		return FormatHelp()
	default:
		return "Unknown command.\n" + FormatHelp()
	}
}
