package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imseek/internal/adapter/store"
	"imseek/internal/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	Long: `Show whether an index is present, how many images it holds and which
model built it. Reads only the storage directory; no model is loaded.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := store.NewStorage(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	idx, err := st.Load()
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	var stats domain.IndexStats
	if idx != nil {
		stats = domain.IndexStats{
			Indexed:   idx.Ledger.Len() > 0,
			Count:     idx.Vectors.Size(),
			Dimension: idx.Vectors.Dimension(),
			Model:     idx.Manifest.Model,
			BuildID:   idx.Manifest.BuildID,
			BuiltAt:   idx.Manifest.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	if statusJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	fmt.Print("Index: ")
	if stats.Indexed {
		green.Println("ready")
	} else {
		gray.Println("not built")
	}
	fmt.Printf("  Storage:    %s\n", cfg.Storage.Dir)
	if !stats.Indexed {
		fmt.Println("\nRun 'imseek index <dir>' to build one.")
		return nil
	}
	fmt.Printf("  Images:     %d\n", stats.Count)
	fmt.Printf("  Dimension:  %d\n", stats.Dimension)
	fmt.Printf("  Model:      %s\n", stats.Model)
	fmt.Printf("  Build:      %s\n", stats.BuildID)
	fmt.Printf("  Built at:   %s\n", stats.BuiltAt)
	return nil
}
