package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks of a workflow file. Any other block
// or attribute is rejected by the decoder.
type fileRoot struct {
	Workflows []*workflowBlock `hcl:"workflow,block"`
	Nodes     []*nodeBlock     `hcl:"node,block"`
}

type workflowBlock struct {
	Name  string         `hcl:"name,label"`
	Input *hcl.Attribute `hcl:"input,optional"`
}

type nodeBlock struct {
	Kind      string         `hcl:"kind,label"`
	ID        string         `hcl:"id,label"`
	Timeout   *string        `hcl:"timeout,optional"`
	Schema    *hcl.Attribute `hcl:"schema,optional"`
	Config    *hcl.Attribute `hcl:"config,optional"`
	DependsOn []string       `hcl:"depends_on,optional"`
	DefRange  hcl.Range      `hcl:",def_range"`
}
