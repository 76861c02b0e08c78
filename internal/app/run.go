package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/orchestrator"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Run builds the workflow and executes it once, or on the configured
// schedule until ctx is cancelled. The output of every successful run is
// written to the app's output as JSON.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	o, err := a.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}
	input, err := a.input()
	if err != nil {
		return err
	}

	workCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(workCtx)

	if a.cfg.HealthcheckPort > 0 {
		a.serveHealthcheck(gctx, g, a.cfg.HealthcheckPort)
	}

	g.Go(func() error {
		defer stop()
		if a.cfg.Every == "" {
			return a.runOnce(gctx, o, input)
		}
		return a.schedule(gctx, o, input)
	})

	err = g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

func (a *App) runOnce(ctx context.Context, o *orchestrator.Orchestrator, input cty.Value) error {
	out, err := o.Execute(ctx, input)
	if err != nil {
		return err
	}
	data, err := config.MarshalJSON(out)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(data))
	return err
}

// schedule runs the workflow on the cron schedule. A run that is still going
// when the next one is due causes that tick to be skipped. Failed runs are
// logged and do not stop the schedule.
func (a *App) schedule(ctx context.Context, o *orchestrator.Orchestrator, input cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	cl := &cronLogger{logger: logger}

	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(a.cfg.Every, func() {
		if err := a.runOnce(ctx, o, input); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduled run failed.", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Every, err)
	}

	logger.Info("⏱️ Workflow scheduled.", "every", a.cfg.Every)
	c.Start()
	<-ctx.Done()

	logger.Info("Stopping scheduler, waiting for the current run.")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts the context logger to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
