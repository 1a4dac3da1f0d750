package cli

import (
	"fmt"

	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/spf13/cobra"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Index the dataset and save category averages",
	Long: `Extracts an embedding for every image in the dataset, computes the
per-category averages and writes them to the configured cache backend.`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, _ []string) error {
	// flat всегда извлекает весь датасет и сохраняет кэш
	s, err := openSession(cmd.Context(), usecase.ModeFlat)
	if err != nil {
		return fmt.Errorf("warm failed: %w", err)
	}
	defer s.close()

	cats := s.UC.Categories()
	images := 0
	for _, c := range cats {
		images += c.Count
	}

	cmd.Printf("Indexed %d images in %d categories from %s\n", images, len(cats), s.Root)
	return nil
}
