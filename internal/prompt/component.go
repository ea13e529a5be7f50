// Package prompt assembles chat prompts out of independent components.
package prompt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Component is one piece of a prompt: a short description followed by the
// fetched content.
//
// Content returns a *FailureError when the fetch failed but the prompt can
// still be built with the failure payload in place of the content. Any other
// error aborts composition.
type Component interface {
	Description() string
	Content(ctx context.Context) (string, error)
}

// Namer is implemented by components that have a stable name for logs and
// metrics.
type Namer interface {
	Name() string
}

// NameOf returns the component name, falling back to its Go type.
func NameOf(c Component) string {
	if n, ok := c.(Namer); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", c), "*")
}

var descriptionVar = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Interpolate replaces every {{ key }} in tmpl with vars[key]. Missing or nil
// values become the empty string.
func Interpolate(tmpl string, vars map[string]any) string {
	return descriptionVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.TrimSpace(descriptionVar.FindStringSubmatch(m)[1])
		v, ok := vars[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// Base implements Description for components whose description is a
// template over their options.
type Base struct {
	Template string
	Vars     map[string]any
}

func (b Base) Description() string { return Interpolate(b.Template, b.Vars) }

// Text is a component with fixed description and content.
type Text struct {
	Desc string
	Body string
}

func (t Text) Name() string                            { return "text" }
func (t Text) Description() string                     { return t.Desc }
func (t Text) Content(context.Context) (string, error) { return t.Body, nil }
