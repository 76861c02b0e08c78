package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/runctx"
	"github.com/zclconf/go-cty/cty"
)

type echo struct{ key string }

func (e *echo) Configure(cfg cty.Value) error {
	e.key = cfg.GetAttr("key").AsString()
	return nil
}

func (e *echo) Process(_ context.Context, rc *runctx.Context) error {
	rc.Set(e.key, rc.Input())
	return nil
}

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	r.RegisterKind(&Kind{
		Name:         "echo",
		Description:  "Copies the input to a key.",
		ConfigSchema: MustSchema(`object({ key = optional(string, "output") })`),
		New:          func() node.Processor { return &echo{} },
	})
}

func TestRegistry(t *testing.T) {
	r := New()
	echoModule{}.Register(r)

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() { echoModule{}.Register(r) })
	})

	t.Run("builds configured nodes", func(t *testing.T) {
		n, err := r.NewNode("echo")
		require.NoError(t, err)
		assert.Equal(t, "echo", n.Kind())
		require.NoError(t, n.Bind("e", cty.NilVal))

		rc := runctx.New("r", cty.StringVal("x"), nil)
		require.NoError(t, n.Execute(context.Background(), rc))
		assert.Equal(t, "x", rc.Output().AsString())
	})

	t.Run("each node gets its own processor", func(t *testing.T) {
		a, err := r.NewNode("echo")
		require.NoError(t, err)
		b, err := r.NewNode("echo")
		require.NoError(t, err)
		assert.NotSame(t, a.Processor(), b.Processor())
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.NewNode("nope")
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("validates", func(t *testing.T) {
		assert.NoError(t, r.Validate(context.Background()))
		require.Len(t, r.Kinds(), 1)
	})
}

func TestRegistry_ValidateFailures(t *testing.T) {
	r := New()
	r.RegisterKind(&Kind{Name: "ctorless"})
	r.RegisterKind(&Kind{Name: "nil-proc", New: func() node.Processor { return nil }})
	r.RegisterKind(&Kind{
		Name:         "bad-schema",
		ConfigSchema: MustSchema("string"),
		New:          func() node.Processor { return &echo{} },
	})

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "kind 'ctorless': no processor constructor")
	assert.ErrorContains(t, err, "kind 'nil-proc': constructor returned nil")
	assert.ErrorContains(t, err, "kind 'bad-schema': configuration schema must be an object")
}

func TestMustSchema(t *testing.T) {
	assert.Panics(t, func() { MustSchema("object({") })
}
