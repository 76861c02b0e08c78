// Package env_vars provides the `env_vars` node kind, which publishes
// process environment variables into the run context.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Settings is the decoded node configuration. An empty Names selects every
// variable starting with Prefix.
type Settings struct {
	Key    string   `cty:"key"`
	Names  []string `cty:"names"`
	Prefix string   `cty:"prefix"`
}

// Reader is the processor behind the `env_vars` kind.
type Reader struct {
	settings Settings
	lookup   func(string) (string, bool)
	environ  func() []string
}

func (r *Reader) Configure(cfg cty.Value) error {
	return gocty.FromCtyValue(cfg, &r.settings)
}

// Process writes a map(string) of the selected variables. Requested names
// that are unset are left out.
func (r *Reader) Process(ctx context.Context, rc *runctx.Context) error {
	vars := make(map[string]cty.Value)

	if len(r.settings.Names) > 0 {
		for _, name := range r.settings.Names {
			if v, ok := r.lookup(name); ok {
				vars[name] = cty.StringVal(v)
			}
		}
	} else {
		for _, e := range r.environ() {
			pair := strings.SplitN(e, "=", 2)
			if len(pair) == 2 && strings.HasPrefix(pair[0], r.settings.Prefix) {
				vars[pair[0]] = cty.StringVal(pair[1])
			}
		}
	}

	if len(vars) == 0 {
		rc.Set(r.settings.Key, cty.MapValEmpty(cty.String))
	} else {
		rc.Set(r.settings.Key, cty.MapVal(vars))
	}
	rc.Logger().Debug("Environment variables published.", "key", r.settings.Key, "count", len(vars))
	return nil
}

// Register registers the `env_vars` kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:         "env_vars",
		Description:  "Publishes environment variables (all, by `prefix`, or the listed `names`) under `key`.",
		ConfigSchema: registry.MustSchema(`object({ key = optional(string, "env"), names = optional(list(string), []), prefix = optional(string, "") })`),
		New: func() node.Processor {
			return &Reader{lookup: os.LookupEnv, environ: os.Environ}
		},
	})
}
