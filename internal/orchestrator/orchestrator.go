package orchestrator

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/nodeflow/internal/node"
)

// ErrorHandler is a workflow-scoped fallback handler.
type ErrorHandler = node.ErrorHandler

// Orchestrator registers nodes, connects them and executes the resulting graph.
// Registration methods are safe for concurrent use; Execute serialises runs.
type Orchestrator struct {
	name      string
	logger    *slog.Logger
	observers []Observer
	newRunID  func() string

	mu       sync.RWMutex
	nodes    map[string]*node.Node
	ids      []string
	edges    map[string][]string
	handlers []ErrorHandler

	runMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for run and lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName names the workflow in logs and reports.
func WithName(name string) Option {
	return func(o *Orchestrator) { o.name = name }
}

// WithObserver adds an observer notified about every run.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newRunID = gen
		}
	}
}

// New creates an empty orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   slog.Default(),
		newRunID: uuid.NewString,
		nodes:    make(map[string]*node.Node),
		edges:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the workflow name.
func (o *Orchestrator) Name() string { return o.name }

// OnError registers a workflow-scoped handler. Handlers are tried in
// registration order; the first to return nil resolves the failure.
func (o *Orchestrator) OnError(h ErrorHandler) {
	if h == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, h)
}
