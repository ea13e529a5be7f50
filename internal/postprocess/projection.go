package postprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const (
	msgNoArray    = "No array found in json data"
	msgParseError = "Error parsing json data"
)

// Projection selects keys of a JSON object, in order. A field with a nil
// Sub keeps the whole value; otherwise Sub is applied to it.
type Projection struct {
	Fields []Field
}

// Field is one projected key.
type Field struct {
	Key string
	Sub *Projection
}

// UnmarshalYAML reads a mapping of key: true or key: {nested mapping}.
// Keys mapped to false are skipped.
func (p *Projection) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("projection: line %d: expected a mapping", node.Line)
	}
	p.Fields = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch val.Kind {
		case yaml.MappingNode:
			sub := &Projection{}
			if err := sub.UnmarshalYAML(val); err != nil {
				return err
			}
			p.Fields = append(p.Fields, Field{Key: key, Sub: sub})
		case yaml.ScalarNode:
			var include bool
			if err := val.Decode(&include); err != nil {
				return fmt.Errorf("projection: key %q: %w", key, err)
			}
			if include {
				p.Fields = append(p.Fields, Field{Key: key})
			}
		default:
			return fmt.Errorf("projection: key %q: expected true or a mapping", key)
		}
	}
	return nil
}

// ProjectionProcessor finds the first array in a JSON document, projects
// each element and keeps the last Limit elements.
type ProjectionProcessor struct {
	Projection Projection
	Limit      *int
}

// NewProjection creates a projection post-processor. A nil limit keeps all
// elements.
func NewProjection(p Projection, limit *int) *ProjectionProcessor {
	return &ProjectionProcessor{Projection: p, Limit: limit}
}

func (pp *ProjectionProcessor) Process(_ context.Context, content string) (string, error) {
	if !gjson.Valid(content) {
		return msgParseError, nil
	}
	arr, ok := firstArray(gjson.Parse(content))
	if !ok {
		return msgNoArray, nil
	}

	items := arr.Array()
	if pp.Limit != nil && len(items) > *pp.Limit {
		items = items[len(items)-max(*pp.Limit, 0):]
	}
	projected := make([]string, len(items))
	for i, item := range items {
		projected[i] = project(item, &pp.Projection)
	}

	var out bytes.Buffer
	if err := json.Compact(&out, []byte("["+strings.Join(projected, ",")+"]")); err != nil {
		return msgParseError, nil
	}
	return out.String(), nil
}

// firstArray walks the document depth first in document order.
func firstArray(r gjson.Result) (gjson.Result, bool) {
	if r.IsArray() {
		return r, true
	}
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	var found gjson.Result
	var ok bool
	r.ForEach(func(_, v gjson.Result) bool {
		found, ok = firstArray(v)
		return !ok
	})
	return found, ok
}

// lookup finds an exact key in an object. Keys are not interpreted as
// gjson paths; the last duplicate wins.
func lookup(obj gjson.Result, key string) (gjson.Result, bool) {
	var found gjson.Result
	var ok bool
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
		}
		return true
	})
	return found, ok
}

func project(v gjson.Result, p *Projection) string {
	switch {
	case v.IsArray():
		var parts []string
		v.ForEach(func(_, item gjson.Result) bool {
			parts = append(parts, project(item, p))
			return true
		})
		return "[" + strings.Join(parts, ",") + "]"
	case v.IsObject():
		var parts []string
		for _, f := range p.Fields {
			val, ok := lookup(v, f.Key)
			if !ok {
				continue
			}
			key, _ := json.Marshal(f.Key)
			raw := val.Raw
			if f.Sub != nil {
				raw = project(val, f.Sub)
			}
			parts = append(parts, string(key)+":"+raw)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return v.Raw
	}
}
