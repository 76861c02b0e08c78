package node

import (
	"context"

	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

// Processor is the core logic of a node. It reads from and writes to the run
// context and must honour ctx cancellation; once the node's timeout fires its
// result is ignored.
type Processor interface {
	Process(ctx context.Context, rc *runctx.Context) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, rc *runctx.Context) error

func (f ProcessorFunc) Process(ctx context.Context, rc *runctx.Context) error {
	return f(ctx, rc)
}

// Configurer is implemented by processors that consume the node's
// configuration. Configure receives the validated configuration once, when
// the node is bound.
type Configurer interface {
	Configure(cfg cty.Value) error
}

// Validator is implemented by processors with an input check of their own,
// applied in addition to the node's schema.
type Validator interface {
	Validate(rc *runctx.Context) bool
}

// Cleaner is implemented by processors holding resources that must be
// released after each run of the node.
type Cleaner interface {
	Cleanup(ctx context.Context, rc *runctx.Context) error
}

// ErrorHandler resolves a failure. Returning nil marks the error handled;
// returning an error leaves it unresolved.
type ErrorHandler func(ctx context.Context, err error, rc *runctx.Context) error
