// Package pipeline turns job configuration into composed prompts and runs
// them through the chat model.
package pipeline

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/components"
	"MarketPrompt/internal/config"
	"MarketPrompt/internal/postprocess"
	"MarketPrompt/internal/prompt"
)

// promptFileError replaces a start or end text whose file cannot be read.
const promptFileError = `{"error": "Error reading prompt file"}`

// Builder assembles composers from job configuration.
type Builder struct {
	Deps     components.Deps
	Chat     postprocess.Invoker // used by chat post-processors
	Observer prompt.Observer
	Log      logrus.FieldLogger
	ReadFile func(string) ([]byte, error)
}

// Build creates the composer for job. Extra components are appended after
// the configured ones.
func (b *Builder) Build(job config.Job, extra ...prompt.Component) (*prompt.Composer, error) {
	log := b.logger().WithField("job", job.Name)

	comp := prompt.NewComposer(log)
	if b.Observer != nil {
		comp.WithObserver(b.Observer)
	}
	comp.SetStart(b.text(log, job.Start, job.StartFile))
	comp.SetEnd(b.text(log, job.End, job.EndFile))

	deps := b.Deps
	deps.Log = log
	for i, cc := range job.Components {
		c, err := components.Build(cc.Type, &cc.Options, deps)
		if err != nil {
			return nil, fmt.Errorf("components[%d]: %w", i, err)
		}
		for j, ppc := range cc.PostProcessors {
			pp, err := b.postProcessor(ppc)
			if err != nil {
				return nil, fmt.Errorf("components[%d].post_processors[%d]: %w", i, j, err)
			}
			c = prompt.WithPostProcessor(c, pp)
		}
		comp.Add(c)
	}
	for _, c := range extra {
		comp.Add(c)
	}
	return comp, nil
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

// text returns the file contents when path is set, otherwise inline.
func (b *Builder) text(log logrus.FieldLogger, inline, path string) string {
	if path == "" {
		return inline
	}
	read := b.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Error("read prompt file")
		return promptFileError
	}
	return string(data)
}

type chatOptions struct {
	Prompt string `yaml:"prompt"`
}

type placeholderOptions struct {
	Values map[string]any `yaml:"values"`
}

type projectionOptions struct {
	Fields postprocess.Projection `yaml:"fields"`
	Limit  *int                   `yaml:"limit"`
}

func (b *Builder) postProcessor(pc config.PostProcessorConfig) (prompt.PostProcessor, error) {
	switch pc.Type {
	case "chat":
		if b.Chat == nil {
			return nil, fmt.Errorf("chat post-processor: no chat model configured")
		}
		var opts chatOptions
		if err := decodeOptions(&pc.Options, &opts); err != nil {
			return nil, fmt.Errorf("chat post-processor: %w", err)
		}
		return postprocess.NewChat(opts.Prompt, b.Chat), nil
	case "placeholder":
		var opts placeholderOptions
		if err := decodeOptions(&pc.Options, &opts); err != nil {
			return nil, fmt.Errorf("placeholder post-processor: %w", err)
		}
		return postprocess.NewPlaceholder(opts.Values), nil
	case "projection":
		var opts projectionOptions
		if err := decodeOptions(&pc.Options, &opts); err != nil {
			return nil, fmt.Errorf("projection post-processor: %w", err)
		}
		if len(opts.Fields.Fields) == 0 {
			return nil, fmt.Errorf("projection post-processor: fields are required")
		}
		return postprocess.NewProjection(opts.Fields, opts.Limit), nil
	default:
		return nil, fmt.Errorf("unknown post-processor %q", pc.Type)
	}
}

func decodeOptions(node *yaml.Node, v any) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	return node.Decode(v)
}
