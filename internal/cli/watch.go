package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imseek/internal/adapter/embedding"
	"imseek/internal/adapter/fs"
	"imseek/internal/adapter/store"
	"imseek/internal/usecase"
	"imseek/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild the index automatically when images change",
	Long: `Build the index, then keep watching the directory tree and rebuild it
whenever images are added, changed or removed. Bursts of changes are
coalesced so one copy of many files triggers one rebuild.

Example:
  imseek watch ~/Pictures`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

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

	walker := fs.NewWalker(cfg.Index.Extensions, cfg.Index.Excludes)
	builder := usecase.NewBuilder(walker, embedder, st, embCache, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Building initial index of %s...\n", path)
	summary, err := builder.Build(ctx, path, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("initial build failed: %w", err)
	}
	fmt.Printf("Indexed %d images (%d failed).\n", summary.Indexed, summary.Failed)

	var rebuildMu sync.Mutex
	onChange := func() {
		rebuildMu.Lock()
		defer rebuildMu.Unlock()

		summary, err := builder.Build(ctx, path, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("rebuild failed", zap.Error(err))
			return
		}
		fmt.Printf("Index rebuilt: %d images (%d failed).\n", summary.Indexed, summary.Failed)
	}

	w := watcher.NewWatcher(path, cfg.Index.Extensions, onChange,
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Watch.Debounce()))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Printf("Watching %s for changes. Press Ctrl-C to stop.\n", path)
	<-ctx.Done()
	fmt.Println("\nStopped.")
	return nil
}
