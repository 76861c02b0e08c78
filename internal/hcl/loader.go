package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/fsutil"
	"github.com/vk/nodeflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL workflow loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges the definitions into
// one model. Directories are searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		part, err := l.decodeFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "workflow", model.Workflow.Name, "nodes", len(model.Nodes))
	return model, nil
}

// LoadSource decodes a single in-memory HCL document.
func (l *Loader) LoadSource(filename string, src []byte) (*config.Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	part, err := l.decodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}
	model := config.NewModel()
	if err := model.Merge(part); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) decodeFile(f *hcl.File) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}
	if len(root.Workflows) > 1 {
		return nil, fmt.Errorf("only one workflow block is allowed, found %d", len(root.Workflows))
	}

	model := &config.Model{}
	if len(root.Workflows) == 1 {
		w, err := translateWorkflow(root.Workflows[0])
		if err != nil {
			return nil, err
		}
		model.Workflow = w
	}
	for _, nb := range root.Nodes {
		n, err := translateNode(nb)
		if err != nil {
			return nil, err
		}
		model.Nodes = append(model.Nodes, n)
	}
	return model, nil
}

func translateWorkflow(b *workflowBlock) (*config.Workflow, error) {
	w := &config.Workflow{Name: b.Name, Input: cty.NullVal(cty.DynamicPseudoType)}
	if b.Input != nil {
		v, diags := b.Input.Expr.Value(evalContext())
		if diags.HasErrors() {
			return nil, diags
		}
		w.Input = v
	}
	return w, nil
}

func translateNode(b *nodeBlock) (*config.Node, error) {
	n := &config.Node{
		ID:        b.ID,
		Kind:      b.Kind,
		Config:    cty.NilVal,
		DependsOn: b.DependsOn,
		Source:    fmt.Sprintf("%s:%d", b.DefRange.Filename, b.DefRange.Start.Line),
	}

	if b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): invalid timeout: %w", b.ID, n.Source, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("node %q (%s): invalid timeout: must be positive, got %s", b.ID, n.Source, d)
		}
		n.Timeout = d
	}

	if b.Schema != nil {
		s, err := schema.FromExpression(b.Schema.Expr)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): %w", b.ID, n.Source, err)
		}
		n.Schema = s
	}

	if b.Config != nil {
		v, diags := b.Config.Expr.Value(evalContext())
		if diags.HasErrors() {
			return nil, diags
		}
		n.Config = v
	}
	return n, nil
}

// findHCLFiles walks all given paths and returns a flat, de-duplicated list
// of .hcl files.
func findHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return all, nil
}
