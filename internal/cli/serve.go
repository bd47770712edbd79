package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"imseek/internal/adapter/embedding"
	"imseek/internal/adapter/fs"
	"imseek/internal/adapter/store"
	"imseek/internal/server"
	"imseek/internal/usecase"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search and indexing over HTTP",
	Long: `Start an HTTP server exposing the search engine.

Endpoints:
  POST /api/v1/search   {"query": "...", "top_k": 10}
  POST /api/v1/index    {"path": "/photos"}
  GET  /api/v1/status
  GET  /health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer embedder.Close()

	st, err := store.NewStorage(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	embCache := openCache()
	if embCache != nil {
		defer embCache.Close()
	}

	engine, err := usecase.NewEngine(embedder, st, logger)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	walker := fs.NewWalker(cfg.Index.Extensions, cfg.Index.Excludes)
	builder := usecase.NewBuilder(walker, embedder, st, embCache, logger)

	srv := server.NewServer(engine, builder, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
