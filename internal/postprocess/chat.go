// Package postprocess holds the content transformations that can be attached
// to any prompt component.
package postprocess

import (
	"context"
	"fmt"
)

// Invoker sends a prompt to a chat model.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Chat replaces the content with a chat model's answer to Prompt followed by
// the content.
type Chat struct {
	Prompt string
	Model  Invoker
}

// NewChat creates a chat post-processor.
func NewChat(prompt string, model Invoker) *Chat {
	return &Chat{Prompt: prompt, Model: model}
}

func (c *Chat) Process(ctx context.Context, content string) (string, error) {
	answer, err := c.Model.Invoke(ctx, c.Prompt+"\n\n"+content)
	if err != nil {
		return "", fmt.Errorf("chat post-processor: %w", err)
	}
	return answer, nil
}
