package postprocess

import (
	"context"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`{{\s*(\w+)\s*}}`)

// Placeholder replaces {{key}} with the matching value. Unknown keys are
// written back as {{key}}.
type Placeholder struct {
	Values map[string]any
}

// NewPlaceholder creates a placeholder post-processor.
func NewPlaceholder(values map[string]any) *Placeholder {
	return &Placeholder{Values: values}
}

func (p *Placeholder) Process(_ context.Context, content string) (string, error) {
	return placeholderRe.ReplaceAllStringFunc(content, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := p.Values[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return "{{" + key + "}}"
	}), nil
}
