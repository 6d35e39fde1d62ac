package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/review-loader/api"
	"github.com/warp/review-loader/store/sqlite"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <store-path>",
		Short: "Serve a read-only JSON API over a loaded store.",
		Long: `Serve exposes the store at <store-path> over HTTP:

  GET /api/health
  GET /api/stats
  GET /api/versions
  GET /api/users?limit=&offset=
  GET /api/reviews?limit=&offset=
  GET /api/reviews/{reviewId}
  GET /api/runs

On SIGINT/SIGTERM the server stops accepting connections and waits up to
30s for active requests before closing the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("addr") {
				cfg.API.Addr = addr
			}

			store, err := sqlite.New(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			router := api.NewRouter(api.NewHandler(store, logger), cfg.API.AllowedOrigins)
			server := &http.Server{
				Addr:              cfg.API.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			return serve(cmd.Context(), server, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: :8080)")
	return cmd
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
