package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Job is one prompt to compose and send. Start and End frame the
// components; StartFile and EndFile are read from disk when set and take
// precedence.
type Job struct {
	Name       string            `yaml:"name"`
	Cron       string            `yaml:"cron"`
	Start      string            `yaml:"start"`
	End        string            `yaml:"end"`
	StartFile  string            `yaml:"start_file"`
	EndFile    string            `yaml:"end_file"`
	Stream     bool              `yaml:"stream"`
	Notify     bool              `yaml:"notify"`
	SkipChat   bool              `yaml:"skip_chat"`
	Components []ComponentConfig `yaml:"components"`
}

// ComponentConfig declares one component. Options are decoded by the
// component itself.
type ComponentConfig struct {
	Type           string                `yaml:"type"`
	Options        yaml.Node             `yaml:"options"`
	PostProcessors []PostProcessorConfig `yaml:"post_processors"`
}

// PostProcessorConfig declares one post-processor applied to a component.
type PostProcessorConfig struct {
	Type    string    `yaml:"type"`
	Options yaml.Node `yaml:"options"`
}

// PostProcessorTypes lists the supported post-processors.
var PostProcessorTypes = []string{"chat", "placeholder", "projection"}

// KnownPostProcessor reports whether typ is a supported post-processor.
func KnownPostProcessor(typ string) bool {
	for _, t := range PostProcessorTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// Validate checks the job's schedule and components.
func (j *Job) Validate() error {
	var errs []error
	if j.Cron != "" {
		if _, err := ParseCron(j.Cron); err != nil {
			errs = append(errs, fmt.Errorf("cron %q: %w", j.Cron, err))
		}
	}
	for i, cc := range j.Components {
		if err := validateComponent(cc); err != nil {
			errs = append(errs, fmt.Errorf("components[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
