package yamlconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const greeting = `
name: greeting
input:
  name: world
  count: 2
nodes:
  - id: compose
    type: assign
    timeout: 1500ms
    schema: "object({ name = string })"
    config:
      key: output
      from: input
  - id: show
    type: print
    depends_on: [compose]
`

func TestParse(t *testing.T) {
	model, err := Parse("wf.yaml", []byte(greeting))
	require.NoError(t, err)

	assert.Equal(t, "greeting", model.Workflow.Name)
	assert.Equal(t, "world", model.Workflow.Input.GetAttr("name").AsString())
	assert.True(t, model.Workflow.Input.GetAttr("count").RawEquals(cty.NumberIntVal(2)))

	require.Len(t, model.Nodes, 2)
	compose := model.Nodes[0]
	assert.Equal(t, "assign", compose.Kind)
	assert.Equal(t, 1500*time.Millisecond, compose.Timeout)
	assert.Equal(t, []string{"name"}, compose.Schema.Required())
	assert.Equal(t, "input", compose.Config.GetAttr("from").AsString())
	assert.Equal(t, "wf.yaml:7", compose.Source)

	show := model.Nodes[1]
	assert.Equal(t, []string{"compose"}, show.DependsOn)
	assert.Equal(t, cty.NilVal, show.Config)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "broken yaml", src: "nodes: [", wantErr: "failed to parse"},
		{name: "unknown field", src: "nodes:\n  - id: a\n    type: print\n    colour: red\n", wantErr: "failed to decode"},
		{name: "missing type", src: "nodes:\n  - id: a\n", wantErr: "requires both id and type"},
		{name: "bad timeout", src: "nodes:\n  - id: a\n    type: print\n    timeout: soon\n", wantErr: "invalid timeout"},
		{name: "negative timeout", src: "nodes:\n  - id: a\n    type: print\n    timeout: -1s\n", wantErr: "must be positive"},
		{name: "bad schema", src: "nodes:\n  - id: a\n    type: print\n    schema: \"object({\"\n", wantErr: "failed to parse schema"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("wf.yaml", []byte(tc.src))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(greeting), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("nodes:\n  - id: extra\n    type: print\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), nil, 0o600))

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, model.Nodes, 3)
	_, ok := model.Lookup("extra")
	assert.True(t, ok)

	_, err = NewLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .yaml files found")
}
