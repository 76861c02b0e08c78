package integration_tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/flowerr"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/vk/nodeflow/internal/testutil"
)

// Test for: a failing node stops the run before its dependents.
func TestErrorHandling_FailingNode_TriggersFailFast(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	expectedErr := errors.New("handler failed as expected")
	var wasSpyExecuted atomic.Bool

	failer := &testutil.SimpleModule{
		Kind: "failer",
		Fn:   func(context.Context, *runctx.Context) error { return expectedErr },
	}
	spy := &testutil.SimpleModule{
		Kind: "spy",
		Fn: func(context.Context, *runctx.Context) error {
			wasSpyExecuted.Store(true) // If this runs, the test has failed.
			return nil
		},
	}

	workflowHCL := `
		node "failer" "A" {}
		node "spy" "B" {
			depends_on = ["A"]
		}
	`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": workflowHCL}, failer, spy)

	// --- Assert ---
	require.ErrorIs(t, result.Err, expectedErr)
	var nodeErr *flowerr.NodeError
	require.ErrorAs(t, result.Err, &nodeErr)
	require.Equal(t, "A", nodeErr.NodeID)
	require.False(t, wasSpyExecuted.Load(), "dependent node must not run after a failure")
	require.Empty(t, result.Output)
}

// Test for: a node that outlives its timeout fails the run.
func TestErrorHandling_NodeTimeout_FailsRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	workflowHCL := `
		node "assign" "start" {
			config = { value = 1 }
		}
		node "delay" "slow" {
			timeout    = "30ms"
			config     = { duration = "5s" }
			depends_on = ["start"]
		}
	`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": workflowHCL})

	// --- Assert ---
	require.ErrorIs(t, result.Err, flowerr.ErrTimeout)
	require.Contains(t, result.Err.Error(), `node "slow"`)
}

// Test for: structural problems are reported before any node runs.
func TestErrorHandling_IsolatedNode_RejectedBeforeExecution(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var executed atomic.Int32
	counter := &testutil.SimpleModule{
		Kind: "count",
		Fn: func(context.Context, *runctx.Context) error {
			executed.Add(1)
			return nil
		},
	}
	workflowHCL := `
		node "count" "a" {}
		node "count" "b" {
			depends_on = ["a"]
		}
		node "count" "loner" {}
	`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": workflowHCL}, counter)

	// --- Assert ---
	require.ErrorIs(t, result.Err, flowerr.ErrIsolatedNode)
	require.True(t, flowerr.IsStructural(result.Err))
	require.Equal(t, int32(0), executed.Load())
}
