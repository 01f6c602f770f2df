package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/CTAG07/hostgen/pkg/store"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may run after a stop
// signal.
const shutdownTimeout = 10 * time.Second

// newServeMux returns the API routes over s.
func (a *app) newServeMux(s *store.Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewModelAPI(s, a.config.Generate, a.logger).RegisterRoutes(mux)
	return mux
}

func newServeCmd(a *app) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model store over HTTP",
		Long: `Serve exposes the model store as a JSON API:

  GET    /api/models                   list models
  GET    /api/models/{name}            export a model document
  PUT    /api/models/{name}            import a model document
  DELETE /api/models/{name}            remove a model
  POST   /api/models/{name}/train      train from a text corpus body
  POST   /api/models/{name}/generate   {"count", "prefix", "suffix", "custom_levels", "seed"}
  POST   /api/models/{name}/score      {"names": [...]}
  GET    /api/stats                    entry counts per model
  GET    /api/version                  build information

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.config.Serve.ListenAddr = listenAddr
			}
			return a.withStore(func(s *store.Store) error {
				return a.serve(cmd.Context(), s)
			})
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides serve.listen_addr)")
	return cmd
}

// serve runs the API server until ctx is cancelled or the listener fails.
func (a *app) serve(ctx context.Context, s *store.Store) error {
	srv := &http.Server{
		Addr:              a.config.Serve.ListenAddr,
		Handler:           a.newServeMux(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting API server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Stopping API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("API server shutdown failed", "error", err)
		return err
	}
	a.logger.Info("API server stopped.")
	return nil
}
