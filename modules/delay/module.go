// Package delay provides the `delay` node kind, which waits for a fixed
// duration. It is mostly useful to exercise node timeouts.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Sleeper is the processor behind the `delay` kind.
type Sleeper struct {
	duration time.Duration
}

func (s *Sleeper) Configure(cfg cty.Value) error {
	var settings struct {
		Duration string `cty:"duration"`
	}
	if err := gocty.FromCtyValue(cfg, &settings); err != nil {
		return err
	}
	d, err := time.ParseDuration(settings.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	s.duration = d
	return nil
}

func (s *Sleeper) Process(ctx context.Context, rc *runctx.Context) error {
	timer := time.NewTimer(s.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register registers the `delay` kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:         "delay",
		Description:  "Waits for `duration` (e.g. \"500ms\").",
		ConfigSchema: registry.MustSchema(`object({ duration = string })`),
		New:          func() node.Processor { return &Sleeper{} },
	})
}
