package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Observer receives composition measurements.
type Observer interface {
	ObserveComponent(name string, elapsed time.Duration, failed bool)
	ObservePrompt(words, chars int)
}

// Composer joins a start text, components and an end text into one prompt.
type Composer struct {
	start      string
	end        string
	components []Component
	log        logrus.FieldLogger
	observer   Observer
}

// NewComposer creates an empty composer.
func NewComposer(log logrus.FieldLogger) *Composer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Composer{log: log}
}

// WithObserver sets the measurement sink.
func (c *Composer) WithObserver(o Observer) *Composer {
	c.observer = o
	return c
}

func (c *Composer) SetStart(text string) { c.start = text }
func (c *Composer) SetEnd(text string)   { c.end = text }
func (c *Composer) Add(comp Component)   { c.components = append(c.components, comp) }

// Len returns the number of components.
func (c *Composer) Len() int { return len(c.components) }

// Compose fetches all components concurrently and joins them in the order
// they were added.
func (c *Composer) Compose(ctx context.Context) (string, error) {
	parts := make([]string, len(c.components))
	g, gctx := errgroup.WithContext(ctx)
	for i, comp := range c.components {
		i, comp := i, comp
		g.Go(func() error {
			part, err := c.render(gctx, comp)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var sections []string
	if strings.TrimSpace(c.start) != "" {
		sections = append(sections, c.start)
	}
	if len(parts) > 0 {
		sections = append(sections, strings.Join(parts, "\n\n"))
	}
	if strings.TrimSpace(c.end) != "" {
		sections = append(sections, c.end)
	}
	full := strings.Join(sections, "\n\n")

	words, chars := Stats(full)
	c.log.WithFields(logrus.Fields{
		"words":      words,
		"characters": chars,
		"components": len(c.components),
	}).Infof("Generated prompt contains %d words and %d characters", words, chars)
	if c.observer != nil {
		c.observer.ObservePrompt(words, chars)
	}
	return full, nil
}

func (c *Composer) render(ctx context.Context, comp Component) (string, error) {
	name := NameOf(comp)
	began := time.Now()
	content, err := comp.Content(ctx)
	failed := err != nil
	if c.observer != nil {
		c.observer.ObserveComponent(name, time.Since(began), failed)
	}
	if err != nil {
		var fe *FailureError
		if !errors.As(err, &fe) {
			return "", fmt.Errorf("component %s: %w", name, err)
		}
		c.log.WithFields(logrus.Fields{"component": name}).WithError(fe.Cause).Error(fe.Payload)
		content = fe.Payload
	}

	desc := comp.Description()
	if strings.TrimSpace(desc) == "" {
		return content, nil
	}
	return desc + "\n\n" + content, nil
}

// Stats counts whitespace separated words and characters of a prompt.
func Stats(s string) (words, chars int) {
	return len(strings.Fields(s)), utf8.RuneCountInString(s)
}
