package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

func newPrinter(t *testing.T, out *bytes.Buffer, cfg cty.Value) *node.Node {
	t.Helper()
	r := registry.New()
	(&Module{Out: out}).Register(r)
	n, err := r.NewNode("print")
	require.NoError(t, err)
	require.NoError(t, n.Bind("p", cfg))
	return n
}

func TestPrint(t *testing.T) {
	t.Run("prints the output by default", func(t *testing.T) {
		var out bytes.Buffer
		n := newPrinter(t, &out, cty.NilVal)

		rc := runctx.New("r", cty.NullVal(cty.DynamicPseudoType), nil)
		rc.SetOutput(cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(2)}))
		require.NoError(t, n.Execute(context.Background(), rc))

		assert.Equal(t, "{\"n\":2}\n", out.String())
	})

	t.Run("key and prefix", func(t *testing.T) {
		var out bytes.Buffer
		n := newPrinter(t, &out, cty.ObjectVal(map[string]cty.Value{
			"key":    cty.StringVal("input"),
			"prefix": cty.StringVal("in: "),
		}))

		rc := runctx.New("r", cty.StringVal("hi"), nil)
		require.NoError(t, n.Execute(context.Background(), rc))

		assert.Equal(t, "in: \"hi\"\n", out.String())
	})

	t.Run("unset key prints null", func(t *testing.T) {
		var out bytes.Buffer
		n := newPrinter(t, &out, cty.ObjectVal(map[string]cty.Value{"key": cty.StringVal("missing")}))

		rc := runctx.New("r", cty.NullVal(cty.DynamicPseudoType), nil)
		require.NoError(t, n.Execute(context.Background(), rc))

		assert.Equal(t, "null\n", out.String())
	})

	t.Run("rejects a non-string key", func(t *testing.T) {
		r := registry.New()
		(&Module{}).Register(r)
		n, err := r.NewNode("print")
		require.NoError(t, err)
		err = n.Bind("p", cty.ObjectVal(map[string]cty.Value{"key": cty.ListValEmpty(cty.String)}))
		assert.ErrorContains(t, err, "invalid configuration")
	})
}
