// Package runctx implements the per-run execution context shared by every
// node of a single workflow run.
package runctx

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Well-known keys.
const (
	InputKey  = "input"
	OutputKey = "output"
)

// Context is the mutable key/value store of one run. Any node may read or
// overwrite any key; ownership of a key is a convention between nodes. The
// mutex only keeps the map consistent when a node that timed out keeps
// writing from its abandoned goroutine.
type Context struct {
	mu     sync.RWMutex
	runID  string
	values map[string]cty.Value
	logger *slog.Logger
}

// New creates a context for runID seeded with input under InputKey.
func New(runID string, input cty.Value, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		runID:  runID,
		values: make(map[string]cty.Value),
		logger: logger.With("run_id", runID),
	}
	c.values[InputKey] = normalize(input)
	return c
}

// RunID returns the identifier of the run this context belongs to.
func (c *Context) RunID() string { return c.runID }

// Logger returns the run-scoped logging sink.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Get returns the value stored under key and whether it was set.
func (c *Context) Get(key string) (cty.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Lookup returns the value under key, or a dynamic null when it is unset.
func (c *Context) Lookup(key string) cty.Value {
	if v, ok := c.Get(key); ok {
		return v
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

// Set stores v under key, replacing any previous value.
func (c *Context) Set(key string, v cty.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = normalize(v)
}

// Delete removes key.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

func (c *Context) Input() cty.Value  { return c.Lookup(InputKey) }
func (c *Context) Output() cty.Value { return c.Lookup(OutputKey) }

// SetOutput publishes the run result.
func (c *Context) SetOutput(v cty.Value) { c.Set(OutputKey, v) }

// Keys returns the set keys in lexical order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all entries.
func (c *Context) Snapshot() map[string]cty.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func normalize(v cty.Value) cty.Value {
	if v == cty.NilVal {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return v
}
