// Package node defines the unit of work of a workflow: a Processor wrapped
// with identity, configuration, a timeout, an optional input schema and an
// optional error handler.
//
// A Node moves through four phases on every run: Validate, Execute (the
// processor raced against the timeout), HandleError on failure, and Cleanup,
// which the orchestrator invokes after every lifecycle regardless of outcome.
package node
