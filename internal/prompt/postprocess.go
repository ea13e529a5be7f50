package prompt

import (
	"context"
	"errors"
)

// PostProcessor transforms the content of a component.
type PostProcessor interface {
	Process(ctx context.Context, content string) (string, error)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(ctx context.Context, content string) (string, error)

func (f PostProcessorFunc) Process(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

const postProcessFailed = `{"error": "Error post-processing content"}`

type postProcessed struct {
	Component
	proc PostProcessor
}

// WithPostProcessor decorates c so its content passes through p. Failed
// fetches skip p and keep their payload.
func WithPostProcessor(c Component, p PostProcessor) Component {
	return &postProcessed{Component: c, proc: p}
}

func (pp *postProcessed) Name() string { return NameOf(pp.Component) }

func (pp *postProcessed) Content(ctx context.Context) (string, error) {
	content, err := pp.Component.Content(ctx)
	if err != nil {
		return "", err
	}
	out, err := pp.proc.Process(ctx, content)
	if err != nil {
		var fe *FailureError
		if errors.As(err, &fe) {
			return "", err
		}
		return "", Fail(postProcessFailed, err)
	}
	return out, nil
}
