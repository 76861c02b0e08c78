// Package yamlconf provides a YAML implementation of config.Loader. It reads
// the same model as the HCL loader:
//
//	name: greeting
//	input:
//	  name: world
//	nodes:
//	  - id: compose
//	    type: assign
//	    timeout: 2s
//	    schema: "object({ name = string })"
//	    config: { key: output, from: input }
//	  - id: show
//	    type: print
//	    depends_on: [compose]
//
// Schemas are HCL type expressions written as strings.
package yamlconf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/fsutil"
	"github.com/vk/nodeflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type document struct {
	Name  string     `yaml:"name"`
	Input any        `yaml:"input"`
	Nodes []nodeSpec `yaml:"nodes"`
}

type nodeSpec struct {
	ID        string         `yaml:"id"`
	Type      string         `yaml:"type"`
	Timeout   string         `yaml:"timeout"`
	Schema    string         `yaml:"schema"`
	Config    map[string]any `yaml:"config"`
	DependsOn []string       `yaml:"depends_on"`

	line int
}

// Loader reads .yaml and .yml workflow files.
type Loader struct{}

// NewLoader creates a new YAML workflow loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every YAML file under paths and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := fsutil.FindFilesByExtension(p, ".yaml", ".yml")
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .yaml files found in %v", paths)
	}

	model := config.NewModel()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		part, err := Parse(f, data)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}

	logger.Debug("YAML loading complete.", "workflow", model.Workflow.Name, "nodes", len(model.Nodes))
	return model, nil
}

// Parse decodes one YAML document. Unknown fields are rejected.
func Parse(filename string, data []byte) (*config.Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &config.Model{}, nil
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
		}
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", filename, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		recordLines(&root, &doc)
	}

	input, err := config.ToCtyValue(doc.Input)
	if err != nil {
		return nil, fmt.Errorf("%s: input: %w", filename, err)
	}
	model := &config.Model{Workflow: &config.Workflow{Name: doc.Name, Input: input}}

	for _, spec := range doc.Nodes {
		n, err := translateNode(filename, spec)
		if err != nil {
			return nil, err
		}
		model.Nodes = append(model.Nodes, n)
	}
	return model, nil
}

func translateNode(filename string, spec nodeSpec) (*config.Node, error) {
	source := fmt.Sprintf("%s:%d", filename, spec.line)
	if spec.ID == "" || spec.Type == "" {
		return nil, fmt.Errorf("%s: node requires both id and type", source)
	}

	n := &config.Node{
		ID:        spec.ID,
		Kind:      spec.Type,
		Config:    cty.NilVal,
		DependsOn: spec.DependsOn,
		Source:    source,
	}

	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): invalid timeout: %w", spec.ID, source, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("node %q (%s): invalid timeout: must be positive, got %s", spec.ID, source, d)
		}
		n.Timeout = d
	}
	if spec.Schema != "" {
		s, err := schema.Parse(spec.Schema)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): %w", spec.ID, source, err)
		}
		n.Schema = s
	}
	if spec.Config != nil {
		v, err := config.ToCtyValue(spec.Config)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): config: %w", spec.ID, source, err)
		}
		n.Config = v
	}
	return n, nil
}

// recordLines copies the source line of every `nodes` entry onto doc.
func recordLines(root *yaml.Node, doc *document) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return
	}
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != "nodes" {
			continue
		}
		for j, item := range m.Content[i+1].Content {
			if j < len(doc.Nodes) {
				doc.Nodes[j].line = item.Line
			}
		}
	}
}
