package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/vk/nodeflow/internal/flowerr"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/vk/nodeflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// DefaultTimeout applies when neither an option nor the configuration sets one.
const DefaultTimeout = 30 * time.Second

// TimeoutAttr is the engine-defined configuration attribute overriding the
// node timeout. It accepts a duration string ("250ms") or milliseconds.
const TimeoutAttr = "timeout"

// Node is a single vertex of a workflow. It is created once, bound to an id
// by the orchestrator and reused across runs.
type Node struct {
	kind string
	proc Processor

	id     string
	bound  bool
	config cty.Value

	timeout      time.Duration
	schema       *schema.Schema
	configSchema *schema.Schema
	onError      ErrorHandler
}

// New wraps proc into a node of the given kind.
func New(kind string, proc Processor, opts ...Option) *Node {
	n := &Node{
		kind:    kind,
		proc:    proc,
		timeout: DefaultTimeout,
		config:  cty.EmptyObjectVal,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the id assigned by Bind, or an empty string before that.
func (n *Node) ID() string { return n.id }

func (n *Node) Kind() string { return n.kind }

func (n *Node) Bound() bool { return n.bound }

// Config returns the validated configuration, with schema defaults applied.
func (n *Node) Config() cty.Value { return n.config }

func (n *Node) Timeout() time.Duration { return n.timeout }

func (n *Node) Schema() *schema.Schema { return n.schema }

func (n *Node) Processor() Processor { return n.proc }

// Bind assigns the node its id and configuration. It may only succeed once;
// the id is immutable afterwards. A missing configuration is treated as an
// empty object, a null one is rejected.
func (n *Node) Bind(id string, cfg cty.Value) error {
	if n.proc == nil {
		return errors.New("node has no processor")
	}
	if id == "" {
		return errors.New("node id must not be empty")
	}
	if n.bound {
		return fmt.Errorf("node already bound to id %q", n.id)
	}

	if cfg == cty.NilVal {
		cfg = cty.EmptyObjectVal
	}
	if cfg.IsNull() {
		return errors.New("configuration must not be null")
	}
	if !cfg.IsWhollyKnown() {
		return errors.New("configuration must be fully known")
	}
	if ty := cfg.Type(); !ty.IsObjectType() && !ty.IsMapType() {
		return fmt.Errorf("configuration must be an object, got %s", ty.FriendlyName())
	}

	timeout := n.timeout
	if tv, ok := attr(cfg, TimeoutAttr); ok {
		d, err := parseTimeout(tv)
		if err != nil {
			return err
		}
		timeout = d
	}

	if n.configSchema != nil {
		res := schema.Validate(cfg, n.configSchema)
		if !res.Valid {
			return fmt.Errorf("invalid configuration: %w", res.Err())
		}
		cfg = res.Value
	}

	if c, ok := n.proc.(Configurer); ok {
		if err := c.Configure(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	n.id = id
	n.config = cfg
	n.timeout = timeout
	n.bound = true
	return nil
}

// attr looks up name in an object or map value.
func attr(v cty.Value, name string) (cty.Value, bool) {
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if ty.HasAttribute(name) {
			return v.GetAttr(name), true
		}
	case ty.IsMapType():
		key := cty.StringVal(name)
		if v.HasIndex(key).True() {
			return v.Index(key), true
		}
	}
	return cty.NilVal, false
}

func parseTimeout(v cty.Value) (time.Duration, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("%s must not be null", TimeoutAttr)
	}
	var d time.Duration
	switch {
	case v.Type().Equals(cty.String):
		parsed, err := time.ParseDuration(v.AsString())
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", TimeoutAttr, err)
		}
		d = parsed
	case v.Type().Equals(cty.Number):
		bf := v.AsBigFloat()
		if !bf.IsInt() {
			return 0, fmt.Errorf("%s must be a whole number of milliseconds", TimeoutAttr)
		}
		if bf.Sign() <= 0 {
			return 0, fmt.Errorf("%s must be positive", TimeoutAttr)
		}
		ms, acc := bf.Int64()
		if acc != big.Exact || ms > math.MaxInt64/int64(time.Millisecond) {
			return 0, fmt.Errorf("%s is too large", TimeoutAttr)
		}
		d = time.Duration(ms) * time.Millisecond
	default:
		return 0, fmt.Errorf("%s must be a duration string or a number of milliseconds, got %s", TimeoutAttr, v.Type().FriendlyName())
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", TimeoutAttr)
	}
	return d, nil
}

// Validate reports whether the run input satisfies the node's schema and the
// processor's own check, if any. It has no side effects.
func (n *Node) Validate(rc *runctx.Context) bool {
	return len(n.inputErrors(rc)) == 0
}

func (n *Node) inputErrors(rc *runctx.Context) []string {
	var errs []string
	if res := schema.Validate(rc.Input(), n.schema); !res.Valid {
		errs = append(errs, res.Errors...)
	}
	if v, ok := n.proc.(Validator); ok && !v.Validate(rc) {
		errs = append(errs, "input rejected by processor")
	}
	return errs
}

// Execute runs one lifecycle of the node: input validation, then the
// processor raced against the timeout. Any failure goes through HandleError,
// whose result is returned. Cancellation of ctx by the caller is returned
// as is.
func (n *Node) Execute(ctx context.Context, rc *runctx.Context) error {
	logger := n.logger(rc)

	if errs := n.inputErrors(rc); len(errs) > 0 {
		return n.HandleError(ctx, &flowerr.ValidationError{NodeID: n.id, Errors: errs}, rc)
	}

	logger.Debug("Node processing started.", "timeout", n.timeout)
	start := time.Now()
	if err := n.process(ctx, rc); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return n.HandleError(ctx, err, rc)
	}
	logger.Debug("Node processing finished.", "duration", time.Since(start))
	return nil
}

// process races the processor against the node timeout. On timeout the
// processor goroutine is abandoned with a cancelled context.
func (n *Node) process(ctx context.Context, rc *runctx.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("processor panicked: %v", r)
			}
		}()
		done <- n.proc.Process(runCtx, rc)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && runCtx.Err() != nil {
			return &flowerr.TimeoutError{NodeID: n.id, Timeout: n.timeout}
		}
		return err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &flowerr.TimeoutError{NodeID: n.id, Timeout: n.timeout}
	}
}

// HandleError logs err against the node. When the node has a handler and the
// handler succeeds, the error is resolved and nil is returned. Otherwise the
// error is wrapped in a *flowerr.NodeError.
func (n *Node) HandleError(ctx context.Context, err error, rc *runctx.Context) error {
	logger := n.logger(rc)
	logger.Error("Node failed.", "error", err)

	if n.onError == nil {
		return &flowerr.NodeError{NodeID: n.id, Err: err}
	}

	herr := SafeHandle(ctx, n.onError, err, rc)
	if herr == nil {
		logger.Info("Node error resolved by its handler.")
		return nil
	}
	logger.Warn("Node error handler failed.", "error", herr)
	return &flowerr.NodeError{NodeID: n.id, Err: errors.Join(err, fmt.Errorf("error handler: %w", herr))}
}

// Cleanup releases processor resources. It is a no-op unless the processor
// implements Cleaner.
func (n *Node) Cleanup(ctx context.Context, rc *runctx.Context) error {
	c, ok := n.proc.(Cleaner)
	if !ok {
		return nil
	}
	if err := c.Cleanup(ctx, rc); err != nil {
		return fmt.Errorf("cleanup of node %q: %w", n.id, err)
	}
	return nil
}

func (n *Node) logger(rc *runctx.Context) *slog.Logger {
	return rc.Logger().With("node_id", n.id, "kind", n.kind)
}

// SafeHandle runs h, turning a panic into an error.
func SafeHandle(ctx context.Context, h ErrorHandler, err error, rc *runctx.Context) (herr error) {
	defer func() {
		if r := recover(); r != nil {
			herr = fmt.Errorf("error handler panicked: %v", r)
		}
	}()
	return h(ctx, err, rc)
}
