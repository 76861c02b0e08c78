// Package orchestrator owns the node and edge registries of a workflow,
// enforces its structural invariants while the graph is built, and drives
// each node through its lifecycle, one at a time, in topological order.
//
// Failures travel a strictly ordered cascade: the failing node's own handler
// runs inside node.Execute; if the error escapes, each workflow handler
// registered with OnError is tried in order and the first that returns nil
// resolves it. An unresolved failure aborts the run and is returned as a
// *flowerr.WorkflowError. Structural errors and caller cancellation are never
// offered to handlers.
package orchestrator
