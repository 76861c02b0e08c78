package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates an app for system testing. Workflow output goes to the
// first buffer, debug logs to the second.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	out, logs := &SafeBuffer{}, &SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.LogOutput = logs
	testApp, err := NewApp(out, cfg, loader, modules...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		testApp.Close()
		if os.Getenv("NODEFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}
