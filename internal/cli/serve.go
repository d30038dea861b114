package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/config"
	"github.com/Sternrassler/artic-browser/pkg/metrics"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/view"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(env map[string]string) *Command {
	cmd := newCommand("serve", env)
	listen := cmd.Flags.String("listen", "", "HTTP listen `addr` (default :8080)")

	cmd.Usage = "serve [flags]"
	cmd.Short = "Serve paged views and auto-select over HTTP"
	cmd.Long = `Serve paged views and auto-select over HTTP.

Routes:
  POST   /api/sessions                  open a session (first page)
  GET    /api/sessions/{id}             reload the current page
  POST   /api/sessions/{id}/page        {"first":24,"rows":12}
  PUT    /api/sessions/{id}/selection   {"value":[...]}
  PUT    /api/sessions/{id}/pending     {"count":5}
  POST   /api/sessions/{id}/autoselect  {"count":25} (optional)
  POST   /api/sessions/{id}/reset
  DELETE /api/sessions/{id}
  GET    /health, /metrics`
	cmd.Exec = func(ctx context.Context, inv *invocation, _ []string) error {
		cfg, logger := inv.cfg, inv.logger
		if cmd.Flags.Changed("listen") {
			cfg.Listen = *listen
		}

		b, err := newBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		srv := newServer(cfg, b)

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("listen", cfg.Listen).Msg("Starting view server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info().Msg("Shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("Server stopped")
		return nil
	}
	return cmd
}

// newServer wires the view service, health and metrics routes.
func newServer(cfg config.Config, b *backend) *http.Server {
	svc := view.NewService(b.api, b.store, view.Config{
		PageSize:     cfg.PageSize,
		Accumulation: pagination.Options{DedupByID: cfg.Dedup},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler(b))
	mux.Handle("GET /metrics", metrics.Handler())
	view.NewHandler(svc).Mount(mux)

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthHandler(b *backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.redis != nil {
			if err := b.redis.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}
