package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/orchestrator"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func newWorkflow(t *testing.T, j *Journal, failB bool, ids ...string) *orchestrator.Orchestrator {
	t.Helper()
	ids = append([]string(nil), ids...)
	next := 0
	o := orchestrator.New(
		orchestrator.WithName("journaled"),
		orchestrator.WithObserver(j),
		orchestrator.WithRunIDs(func() string { id := ids[next]; next++; return id }),
	)

	a := node.New("test", node.ProcessorFunc(func(_ context.Context, rc *runctx.Context) error {
		rc.SetOutput(cty.StringVal("done"))
		return nil
	}))
	b := node.New("test", node.ProcessorFunc(func(context.Context, *runctx.Context) error {
		if failB {
			return errors.New("boom")
		}
		return nil
	}))
	require.NoError(t, o.Register("A", a))
	require.NoError(t, o.Register("B", b))
	require.NoError(t, o.Connect("A", "B"))
	return o
}

func TestJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("records a successful run", func(t *testing.T) {
		j := openJournal(t)
		o := newWorkflow(t, j, false, "run-1")

		_, err := o.Execute(ctx, cty.NullVal(cty.DynamicPseudoType))
		require.NoError(t, err)

		runs, err := j.Runs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-1", runs[0].ID)
		assert.Equal(t, "journaled", runs[0].Workflow)
		assert.Equal(t, "succeeded", runs[0].Status)
		assert.True(t, runs[0].FinishedAt.Valid)
		assert.False(t, runs[0].Error.Valid)
		assert.Equal(t, `"done"`, runs[0].Output.String)

		nodes, err := j.NodeRuns(ctx, "run-1")
		require.NoError(t, err)
		var got []string
		for _, n := range nodes {
			got = append(got, n.NodeID+":"+n.Status)
		}
		if diff := cmp.Diff([]string{"A:succeeded", "B:succeeded"}, got); diff != "" {
			t.Errorf("node runs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("records a failed run", func(t *testing.T) {
		j := openJournal(t)
		o := newWorkflow(t, j, true, "run-1")

		_, err := o.Execute(ctx, cty.NullVal(cty.DynamicPseudoType))
		require.Error(t, err)

		runs, err := j.Runs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "failed", runs[0].Status)
		assert.Contains(t, runs[0].Error.String, "boom")
		assert.False(t, runs[0].Output.Valid)

		nodes, err := j.NodeRuns(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, "failed", nodes[1].Status)
		assert.Contains(t, nodes[1].Error.String, "boom")
	})

	t.Run("lists newest first with a limit", func(t *testing.T) {
		j := openJournal(t)
		o := newWorkflow(t, j, false, "run-1", "run-2", "run-3")
		for range 3 {
			_, err := o.Execute(ctx, cty.NullVal(cty.DynamicPseudoType))
			require.NoError(t, err)
		}

		runs, err := j.Runs(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-3", runs[0].ID)
		assert.Equal(t, "run-2", runs[1].ID)
	})

	t.Run("unknown run has no nodes", func(t *testing.T) {
		j := openJournal(t)
		nodes, err := j.NodeRuns(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}
