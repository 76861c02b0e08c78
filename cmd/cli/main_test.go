package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/cli"
)

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		node "print" "A" {
			config = {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, errOut, []string{"run", filePath})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, runErr, &exitErr)
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to load workflow")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "help should not be an error")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"run", "--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}
