// Package testutil provides the harness shared by the integration tests: it
// writes workflow files to a temporary directory, builds an app around them
// and runs it with the given test modules.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/app"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/hcl"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/internal/yamlconf"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext writes files into a temporary workflow
// directory, creates the app and runs it. The loader follows the file
// extensions: YAML when no .hcl file is present. With no modules the built-in
// kinds are used.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	var loader config.Loader = yamlconf.NewLoader()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		if filepath.Ext(name) == ".hcl" {
			loader = hcl.NewLoader()
		}
	}

	out, logs := &app.SafeBuffer{}, &app.SafeBuffer{}
	cfg := &app.Config{
		WorkflowPath: dir,
		LogLevel:     "debug",
		LogFormat:    "text",
		LogOutput:    logs,
	}

	result := &HarnessResult{}
	testApp, err := app.NewApp(out, cfg, loader, modules...)
	if err == nil {
		t.Cleanup(func() { testApp.Close() })
		result.App = testApp
		err = testApp.Run(ctx)
	}

	if os.Getenv("NODEFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	result.Output = out.String()
	result.LogOutput = logs.String()
	result.Err = err
	return result
}
