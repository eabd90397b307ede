package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/server"
	"github.com/spf13/cobra"
)

// defaultAddr is the default listen address of the HTTP front end.
const defaultAddr = "127.0.0.1:8080"

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end",
		Long: `Serve starts an HTTP server exposing discovery and extraction as a JSON API.

Routes:
  POST   /api/discover          urls: list of base addresses
  POST   /api/scrape            token plus links or a selection string
  GET    /api/sessions/{token}  a stored discovery session
  DELETE /api/sessions/{token}  forget a discovery session
  GET    /api/logs              the most recent progress lines
  GET    /api/logs/stream       progress lines as server-sent events
  GET    /healthz               liveness

Examples:
  sitearchive serve
  sitearchive serve --addr :9000 --log-tail-size 50`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("addr", "a", defaultAddr, "Listen address")
	cmd.Flags().Int("log-tail-size", config.DefaultLogTailSize,
		"Number of recent progress lines kept for /api/logs")
	cmd.Flags().Bool("no-history", false,
		"Do not record sessions in the history database")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	opts := []server.Option{server.WithLogger(logger)}
	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithRecorder(db))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(cfg, opts...),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
