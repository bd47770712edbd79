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
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"imseek/internal/adapter/embedding"
	"imseek/internal/adapter/fs"
	"imseek/internal/adapter/store"
	"imseek/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory of images",
	Long: `Index every image under the given directory for semantic search.
Each run rebuilds the index from scratch; the previous index stays live
until the new one is committed.

Examples:
  imseek index .                # Index current directory
  imseek index ~/Pictures       # Index a photo library`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Scanning %s...\n", path)

	// Create progress bar (initialized once the total is known)
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time
	var initialized bool

	progress := func(processed, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := builder.Build(ctx, path, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nIndexing cancelled; previous index left unchanged.")
			return nil
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	if summary.Indexed == 0 {
		if summary.Failed == 0 {
			fmt.Println("No images found.")
		} else {
			fmt.Printf("No images could be embedded (%d failed); index unchanged.\n", summary.Failed)
		}
		return nil
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Images indexed: %d\n", summary.Indexed)
	if summary.Failed > 0 {
		fmt.Printf("  Files skipped:  %d (unreadable or unembeddable)\n", summary.Failed)
	}
	fmt.Printf("\nIndex stored at: %s\n", cfg.Storage.Dir)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
