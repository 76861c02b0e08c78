package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.yaml", "nested/c.yml", "nested/deeper/d.hcl", "skip.txt"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o600))
	}

	hcl, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "deeper", "d.hcl"),
	}, hcl)

	yaml, err := FindFilesByExtension(root, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Len(t, yaml, 2)

	_, err = FindFilesByExtension(filepath.Join(root, "missing"), ".hcl")
	assert.Error(t, err)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(root) })
}
