package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/nodeflow/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// serveHealthcheck runs the health check server in g until ctx is done, then
// shuts it down gracefully.
func (a *App) serveHealthcheck(ctx context.Context, g *errgroup.Group, port int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health check server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		logger.Info("🩺 Shutting down health check server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health check server shutdown failed: %w", err)
		}
		logger.Debug("Health check server shut down gracefully.")
		return nil
	})
}
