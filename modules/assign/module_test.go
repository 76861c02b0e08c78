package assign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/flowerr"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

func newAssign(t *testing.T) *node.Node {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	n, err := r.NewNode("assign")
	require.NoError(t, err)
	return n
}

func obj(attrs map[string]cty.Value) cty.Value { return cty.ObjectVal(attrs) }

func TestAssign(t *testing.T) {
	ctx := context.Background()
	input := obj(map[string]cty.Value{"user": cty.StringVal("ada")})

	t.Run("literal value to output", func(t *testing.T) {
		n := newAssign(t)
		require.NoError(t, n.Bind("a", obj(map[string]cty.Value{"value": cty.NumberIntVal(7)})))

		rc := runctx.New("r", input, nil)
		require.NoError(t, n.Execute(ctx, rc))
		assert.True(t, rc.Output().RawEquals(cty.NumberIntVal(7)))
	})

	t.Run("attribute of another entry", func(t *testing.T) {
		n := newAssign(t)
		require.NoError(t, n.Bind("a", obj(map[string]cty.Value{
			"key":  cty.StringVal("who"),
			"from": cty.StringVal("input"),
			"attr": cty.StringVal("user"),
		})))

		rc := runctx.New("r", input, nil)
		require.NoError(t, n.Execute(ctx, rc))
		assert.Equal(t, "ada", rc.Lookup("who").AsString())
	})

	t.Run("missing attribute fails", func(t *testing.T) {
		n := newAssign(t)
		require.NoError(t, n.Bind("a", obj(map[string]cty.Value{
			"from": cty.StringVal("input"),
			"attr": cty.StringVal("nope"),
		})))

		err := n.Execute(ctx, runctx.New("r", input, nil))
		assert.ErrorContains(t, err, `value has no attribute "nope"`)
	})

	t.Run("missing source fails validation", func(t *testing.T) {
		n := newAssign(t)
		require.NoError(t, n.Bind("a", obj(map[string]cty.Value{"from": cty.StringVal("absent")})))

		err := n.Execute(ctx, runctx.New("r", input, nil))
		assert.ErrorIs(t, err, flowerr.ErrValidation)
	})

	t.Run("configuration must pick one source", func(t *testing.T) {
		n := newAssign(t)
		assert.ErrorContains(t, n.Bind("a", cty.EmptyObjectVal), "one of value or from is required")

		n = newAssign(t)
		err := n.Bind("a", obj(map[string]cty.Value{
			"from":  cty.StringVal("input"),
			"value": cty.True,
		}))
		assert.ErrorContains(t, err, "not both")
	})
}
