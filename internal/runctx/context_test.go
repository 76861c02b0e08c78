package runctx

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestContext(t *testing.T) {
	t.Run("seeds input and leaves output unset", func(t *testing.T) {
		c := New("run-1", cty.StringVal("hi"), nil)
		assert.Equal(t, "run-1", c.RunID())
		assert.True(t, c.Input().RawEquals(cty.StringVal("hi")))

		_, ok := c.Get(OutputKey)
		assert.False(t, ok)
		assert.True(t, c.Output().IsNull())
		assert.Equal(t, []string{InputKey}, c.Keys())
	})

	t.Run("nil input becomes a dynamic null", func(t *testing.T) {
		c := New("r", cty.NilVal, nil)
		v, ok := c.Get(InputKey)
		require.True(t, ok)
		assert.True(t, v.IsNull())
		assert.Equal(t, cty.DynamicPseudoType, v.Type())
	})

	t.Run("set overwrites and snapshot copies", func(t *testing.T) {
		c := New("r", cty.EmptyObjectVal, nil)
		c.Set("tmp", cty.NumberIntVal(1))
		c.Set("tmp", cty.NumberIntVal(2))
		c.SetOutput(cty.True)

		snap := c.Snapshot()
		assert.True(t, snap["tmp"].RawEquals(cty.NumberIntVal(2)))
		assert.True(t, c.Output().RawEquals(cty.True))

		snap["tmp"] = cty.False
		assert.True(t, c.Lookup("tmp").RawEquals(cty.NumberIntVal(2)))

		c.Delete("tmp")
		assert.Equal(t, []string{InputKey, OutputKey}, c.Keys())
	})

	t.Run("logger carries the run id", func(t *testing.T) {
		var buf bytes.Buffer
		c := New("abc", cty.NilVal, slog.New(slog.NewTextHandler(&buf, nil)))
		c.Logger().Info("hello")
		assert.Contains(t, buf.String(), "run_id=abc")
	})

	t.Run("concurrent writers do not race", func(t *testing.T) {
		c := New("r", cty.NilVal, nil)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c.Set("k", cty.NumberIntVal(int64(i)))
				_ = c.Lookup("k")
			}(i)
		}
		wg.Wait()
		_, ok := c.Get("k")
		assert.True(t, ok)
	})
}
