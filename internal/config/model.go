package config

import (
	"fmt"
	"time"

	"github.com/vk/nodeflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of one workflow definition.
type Model struct {
	Workflow *Workflow
	Nodes    []*Node
}

// Workflow holds the workflow-level settings.
type Workflow struct {
	Name string
	// Input is the default run input; null when the definition sets none.
	Input cty.Value
}

// Node is one `node` block or list entry.
type Node struct {
	ID   string
	Kind string
	// Timeout is zero when the definition leaves it to the node default.
	Timeout time.Duration
	// Schema constrains the run input; nil accepts anything.
	Schema *schema.Schema
	// Config is the node configuration object; cty.NilVal when omitted.
	Config    cty.Value
	DependsOn []string
	// Source locates the definition for error messages, e.g. "main.hcl:12".
	Source string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Workflow: &Workflow{Input: cty.NullVal(cty.DynamicPseudoType)}}
}

// Merge appends the nodes of other and adopts its workflow settings when set.
// Two definitions naming the workflow differently, or setting the input
// twice, conflict.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	if w := other.Workflow; w != nil {
		if w.Name != "" {
			if m.Workflow.Name != "" && m.Workflow.Name != w.Name {
				return fmt.Errorf("conflicting workflow names %q and %q", m.Workflow.Name, w.Name)
			}
			m.Workflow.Name = w.Name
		}
		if w.Input != cty.NilVal && !w.Input.IsNull() {
			if !m.Workflow.Input.IsNull() {
				return fmt.Errorf("workflow input is defined more than once")
			}
			m.Workflow.Input = w.Input
		}
	}
	m.Nodes = append(m.Nodes, other.Nodes...)
	return nil
}

// Lookup returns the node definition with the given id.
func (m *Model) Lookup(id string) (*Node, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
