package orchestrator

import (
	"context"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Status is the outcome of a run or of one node lifecycle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	// StatusHandled marks a node failure resolved by a workflow handler.
	StatusHandled Status = "handled"
	StatusFailed    Status = "failed"
)

// NodeReport describes one node lifecycle within a run.
type NodeReport struct {
	RunID    string
	NodeID   string
	Kind     string
	Status   Status
	Started  time.Time
	Duration time.Duration
	Err      error
}

// RunReport describes a whole run. Output is the value returned to the caller
// and is null when the run failed.
type RunReport struct {
	RunID    string
	Workflow string
	Status   Status
	Started  time.Time
	Finished time.Time
	Output   cty.Value
	Err      error
	Nodes    []NodeReport
}

// Observer receives run events. Calls happen on the goroutine running
// Execute, so implementations should return quickly.
type Observer interface {
	RunStarted(ctx context.Context, r RunReport)
	NodeFinished(ctx context.Context, r NodeReport)
	RunFinished(ctx context.Context, r RunReport)
}
