// Package print provides the `print` node kind, which writes a context value
// as JSON to the application's output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives printed values; os.Stdout when nil.
	Out io.Writer
}

// Settings is the decoded node configuration.
type Settings struct {
	Key    string `cty:"key"`
	Prefix string `cty:"prefix"`
}

// Printer is the processor behind the `print` kind.
type Printer struct {
	out      io.Writer
	settings Settings
}

func (p *Printer) Configure(cfg cty.Value) error {
	return gocty.FromCtyValue(cfg, &p.settings)
}

func (p *Printer) Process(ctx context.Context, rc *runctx.Context) error {
	v, ok := rc.Get(p.settings.Key)
	if !ok {
		rc.Logger().Warn("Printing unset key.", "key", p.settings.Key)
	}
	data, err := config.MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("cannot render %q: %w", p.settings.Key, err)
	}
	_, err = fmt.Fprintf(p.out, "%s%s\n", p.settings.Prefix, data)
	return err
}

// Register registers the `print` kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterKind(&registry.Kind{
		Name:         "print",
		Description:  "Writes the value under `key` (default \"output\") as JSON, preceded by `prefix`.",
		ConfigSchema: registry.MustSchema(`object({ key = optional(string, "output"), prefix = optional(string, "") })`),
		New:          func() node.Processor { return &Printer{out: out} },
	})
}
