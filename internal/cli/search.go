package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imseek/internal/adapter/embedding"
	"imseek/internal/adapter/store"
	"imseek/internal/domain"
	"imseek/internal/usecase"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search indexed images with a free-text query",
	Long: `Search the index for images matching a natural-language description.
The query is all remaining arguments joined by spaces, so quotes are
optional.

Examples:
  imseek search dog on a beach
  imseek search "red bicycle" --top-k 20 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	query := strings.Join(args, " ")

	topK := cfg.Search.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}
	if topK < 1 {
		return fmt.Errorf("top-k must be positive, got %d", topK)
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

	engine, err := usecase.NewEngine(embedder, st, logger)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	if !engine.IsIndexed() {
		fmt.Println("No images indexed yet. Run 'imseek index <dir>' first.")
		return nil
	}

	hits, err := engine.Search(cmd.Context(), query, topK)
	if err != nil {
		if errors.Is(err, usecase.ErrIncompatibleIndex) {
			return fmt.Errorf("%w; run 'imseek index' again with the current model", err)
		}
		return fmt.Errorf("search failed: %w", err)
	}
	if hits == nil {
		hits = []domain.Hit{}
	}

	if searchJSON {
		output, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)
	cyan.Printf("Found %d results for: %s\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Printf("%3d. %s ", i+1, h.Path)
		gray.Printf("(score: %.4f)\n", h.Score)
	}
	return nil
}
