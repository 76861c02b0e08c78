package orchestrator

import (
	"context"
	"time"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/flowerr"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

// Execute runs the workflow once with the given input and returns the value
// published under the "output" key, or a dynamic null if no node set it.
//
// The graph is validated before any node runs. Nodes then execute strictly
// sequentially; an unresolved node failure stops the run immediately. Every
// failure returned is a *flowerr.WorkflowError. Runs on the same
// orchestrator are serialised.
func (o *Orchestrator) Execute(ctx context.Context, input cty.Value) (cty.Value, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	runID := o.newRunID()
	logger := o.logger.With("run_id", runID)
	if o.name != "" {
		logger = logger.With("workflow", o.name)
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	report := RunReport{RunID: runID, Workflow: o.name, Status: StatusRunning, Started: time.Now()}
	for _, obs := range o.observers {
		obs.RunStarted(ctx, report)
	}

	logger.Info("🚀 Workflow run started.")
	out, err := o.run(ctx, runID, input, &report)

	report.Finished = time.Now()
	if err != nil {
		out = cty.NilVal
		report.Status = StatusFailed
		report.Err = &flowerr.WorkflowError{RunID: runID, Err: err}
		report.Output = cty.NullVal(cty.DynamicPseudoType)
		logger.Error("Workflow run failed.", "error", err, "duration", report.Finished.Sub(report.Started))
	} else {
		report.Status = StatusSucceeded
		report.Output = out
		logger.Info("🏁 Workflow run finished.", "duration", report.Finished.Sub(report.Started))
	}

	for _, obs := range o.observers {
		obs.RunFinished(context.WithoutCancel(ctx), report)
	}
	return out, report.Err
}

func (o *Orchestrator) run(ctx context.Context, runID string, input cty.Value, report *RunReport) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	o.mu.RLock()
	g := o.graphLocked()
	nodes := make(map[string]*node.Node, len(o.nodes))
	for id, n := range o.nodes {
		nodes[id] = n
	}
	handlers := append([]ErrorHandler(nil), o.handlers...)
	o.mu.RUnlock()

	if len(g.Nodes) == 0 {
		logger.Warn("No nodes registered, execution not required.")
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if err := validateGraph(g); err != nil {
		return cty.NilVal, err
	}
	ids, err := order(g)
	if err != nil {
		return cty.NilVal, err
	}
	logger.Debug("Execution order computed.", "order", ids)

	rc := runctx.New(runID, input, logger)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}

		n, ok := nodes[id]
		if !ok {
			logger.Warn("Node missing from registry, skipping.", "node_id", id)
			continue
		}

		nr := o.runNode(ctx, n, rc)
		if nr.Err != nil {
			if ctx.Err() != nil {
				o.finishNode(ctx, report, nr)
				return cty.NilVal, ctx.Err()
			}
			if o.cascade(ctx, nr.Err, rc, handlers) {
				nr.Status = StatusHandled
			}
		}
		o.finishNode(ctx, report, nr)

		if nr.Status == StatusFailed {
			return cty.NilVal, nr.Err
		}
	}

	return rc.Output(), nil
}

// runNode drives one node lifecycle. Cleanup always runs afterwards and its
// failure is only logged.
func (o *Orchestrator) runNode(ctx context.Context, n *node.Node, rc *runctx.Context) NodeReport {
	logger := ctxlog.FromContext(ctx).With("node_id", n.ID())
	nr := NodeReport{RunID: rc.RunID(), NodeID: n.ID(), Kind: n.Kind(), Started: time.Now()}

	defer func() {
		if err := n.Cleanup(context.WithoutCancel(ctx), rc); err != nil {
			logger.Warn("Node cleanup failed.", "error", err)
		}
	}()

	logger.Debug("Node lifecycle started.")
	nr.Err = n.Execute(ctx, rc)
	nr.Duration = time.Since(nr.Started)
	if nr.Err != nil {
		nr.Status = StatusFailed
	} else {
		nr.Status = StatusSucceeded
		logger.Debug("Node lifecycle finished.", "duration", nr.Duration)
	}
	return nr
}

// cascade offers err to the workflow handlers in order and reports whether
// one of them resolved it.
func (o *Orchestrator) cascade(ctx context.Context, err error, rc *runctx.Context, handlers []ErrorHandler) bool {
	if flowerr.IsStructural(err) {
		return false
	}
	logger := ctxlog.FromContext(ctx)
	for i, h := range handlers {
		herr := node.SafeHandle(ctx, h, err, rc)
		if herr == nil {
			logger.Info("Error resolved by workflow handler.", "handler", i, "node_id", flowerr.NodeID(err))
			return true
		}
		logger.Warn("Workflow handler did not resolve error.", "handler", i, "error", herr)
	}
	return false
}

func (o *Orchestrator) finishNode(ctx context.Context, report *RunReport, nr NodeReport) {
	report.Nodes = append(report.Nodes, nr)
	for _, obs := range o.observers {
		obs.NodeFinished(context.WithoutCancel(ctx), nr)
	}
}
