package testutil

import (
	"context"
	"sync"

	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single node kind backed by a function.
type SimpleModule struct {
	Kind string
	Fn   func(ctx context.Context, rc *runctx.Context) error
}

func (m *SimpleModule) Register(r *registry.Registry) {
	fn := m.Fn
	r.RegisterKind(&registry.Kind{
		Name: m.Kind,
		New:  func() node.Processor { return node.ProcessorFunc(fn) },
	})
}

// RecorderModule registers the `record` kind. Each node appends its id to the
// shared execution log and, when configured with `value`, publishes it as the
// run output.
type RecorderModule struct {
	mu  sync.Mutex
	ids []string
}

// Executed returns the ids of the nodes that ran, in order.
func (m *RecorderModule) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...)
}

func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:         "record",
		ConfigSchema: registry.MustSchema(`object({ id = string, value = optional(any) })`),
		New:          func() node.Processor { return &recorder{m: m} },
	})
}

type recorder struct {
	m     *RecorderModule
	id    string
	value cty.Value
}

func (p *recorder) Configure(cfg cty.Value) error {
	p.id = cfg.GetAttr("id").AsString()
	p.value = cfg.GetAttr("value")
	return nil
}

func (p *recorder) Process(_ context.Context, rc *runctx.Context) error {
	p.m.mu.Lock()
	p.m.ids = append(p.m.ids, p.id)
	p.m.mu.Unlock()
	if !p.value.IsNull() {
		rc.SetOutput(p.value)
	}
	return nil
}
