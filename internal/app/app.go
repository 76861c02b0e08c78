package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/journal"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/orchestrator"
	"github.com/vk/nodeflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	cfg      *Config
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	journal  *journal.Journal
}

// NewApp loads the workflow definition, registers the modules (the built-in
// ones when none are given) and opens the journal if one is configured. The
// returned App must be closed.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logOut := cfg.LogOutput
	if logOut == nil {
		logOut = outW
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.WorkflowPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	logger.Debug("Workflow loaded into unified model.", "nodes", len(model.Nodes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		outW:     outW,
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		model:    model,
	}

	if cfg.JournalDSN != "" {
		j, err := journal.Open(ctx, cfg.JournalDSN)
		if err != nil {
			return nil, err
		}
		a.journal = j
		logger.Debug("Run journal opened.", "dsn", cfg.JournalDSN)
	}
	return a, nil
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded workflow definition.
func (a *App) Model() *config.Model {
	return a.model
}

// Close releases the journal, if any.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

// Build turns the loaded definition into a validated orchestrator. Nodes are
// registered in definition order and every depends_on entry becomes an edge
// from the dependency to the dependent node.
func (a *App) Build(ctx context.Context) (*orchestrator.Orchestrator, error) {
	logger := ctxlog.FromContext(ctx)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithName(a.model.Workflow.Name),
	}
	if a.journal != nil {
		opts = append(opts, orchestrator.WithObserver(a.journal))
	}
	o := orchestrator.New(opts...)

	for _, def := range a.model.Nodes {
		var nodeOpts []node.Option
		if def.Timeout > 0 {
			nodeOpts = append(nodeOpts, node.WithTimeout(def.Timeout))
		}
		if def.Schema != nil {
			nodeOpts = append(nodeOpts, node.WithSchema(def.Schema))
		}

		n, err := a.registry.NewNode(def.Kind, nodeOpts...)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", def.Source, def.ID, err)
		}
		if err := o.Register(def.ID, n, def.Config); err != nil {
			return nil, fmt.Errorf("%s: %w", def.Source, err)
		}
	}

	for _, def := range a.model.Nodes {
		for _, dep := range def.DependsOn {
			if err := o.Connect(dep, def.ID); err != nil {
				return nil, fmt.Errorf("%s: %w", def.Source, err)
			}
		}
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Workflow built.", "nodes", len(a.model.Nodes))
	return o, nil
}

// input returns the run input: the --input file when given, the workflow's
// own input otherwise.
func (a *App) input() (cty.Value, error) {
	if a.cfg.InputPath == "" {
		return a.model.Workflow.Input, nil
	}
	v, err := config.LoadInput(a.cfg.InputPath)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to load input: %w", err)
	}
	return v, nil
}
