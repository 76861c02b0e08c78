// Package assign provides the `assign` node kind, which copies a literal or
// another context entry into a context key.
package assign

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Settings is the decoded node configuration. Exactly one of Value and From
// must be set.
type Settings struct {
	Key   string    `cty:"key"`
	From  *string   `cty:"from"`
	Attr  *string   `cty:"attr"`
	Value cty.Value `cty:"value"`
}

// Assigner is the processor behind the `assign` kind.
type Assigner struct {
	settings Settings
}

func (a *Assigner) Configure(cfg cty.Value) error {
	if err := gocty.FromCtyValue(cfg, &a.settings); err != nil {
		return err
	}
	hasValue := !a.settings.Value.IsNull()
	hasFrom := a.settings.From != nil
	switch {
	case hasValue && hasFrom:
		return errors.New("set either value or from, not both")
	case !hasValue && !hasFrom:
		return errors.New("one of value or from is required")
	}
	return nil
}

// Validate rejects runs whose source entry is missing.
func (a *Assigner) Validate(rc *runctx.Context) bool {
	if a.settings.From == nil {
		return true
	}
	_, ok := rc.Get(*a.settings.From)
	return ok
}

func (a *Assigner) Process(ctx context.Context, rc *runctx.Context) error {
	v := a.settings.Value
	if a.settings.From != nil {
		v = rc.Lookup(*a.settings.From)
	}

	if a.settings.Attr != nil {
		name := *a.settings.Attr
		if v.IsNull() || !v.Type().IsObjectType() || !v.Type().HasAttribute(name) {
			return fmt.Errorf("value has no attribute %q", name)
		}
		v = v.GetAttr(name)
	}

	rc.Set(a.settings.Key, v)
	return nil
}

// Register registers the `assign` kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:         "assign",
		Description:  "Stores `value`, or the entry named by `from` (optionally its `attr`), under `key`.",
		ConfigSchema: registry.MustSchema(`object({ key = optional(string, "output"), from = optional(string), attr = optional(string), value = optional(any) })`),
		New:          func() node.Processor { return &Assigner{} },
	})
}
