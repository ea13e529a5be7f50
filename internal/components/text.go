package components

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/prompt"
)

// TextConfig configures a literal text component.
type TextConfig struct {
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// Text returns fixed content.
type Text struct {
	prompt.Base
	content string
}

// NewText creates a text component.
func NewText(cfg TextConfig) *Text {
	return &Text{
		Base:    prompt.Base{Template: cfg.Description, Vars: map[string]any{"content": cfg.Content}},
		content: cfg.Content,
	}
}

func (t *Text) Name() string                            { return "text" }
func (t *Text) Content(context.Context) (string, error) { return t.content, nil }

func buildText(opts *yaml.Node, _ Deps) (prompt.Component, error) {
	var cfg TextConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	return NewText(cfg), nil
}

const fileError = `{"error": "Error reading file"}`

// FileConfig configures a file reader component.
type FileConfig struct {
	Description string `yaml:"description"`
	Path        string `yaml:"path"`
}

// File returns the contents of a local file.
type File struct {
	prompt.Base
	path string
}

// NewFile creates a file reader component.
func NewFile(cfg FileConfig) *File {
	return &File{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{"path": cfg.Path}},
		path: cfg.Path,
	}
}

func (f *File) Name() string { return "file" }

func (f *File) Content(context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", prompt.Fail(fileError, fmt.Errorf("read %s: %w", f.path, err))
	}
	return string(data), nil
}

func buildFile(opts *yaml.Node, _ Deps) (prompt.Component, error) {
	var cfg FileConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return NewFile(cfg), nil
}
