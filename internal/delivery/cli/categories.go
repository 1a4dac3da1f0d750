package cli

import (
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List dataset categories with image counts",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	// two_stage читает средние из кэша без извлечения датасета
	s, err := openSession(cmd.Context(), usecase.ModeTwoStage)
	if err != nil {
		return err
	}
	defer s.close()

	cats := s.UC.Categories()
	if len(cats) == 0 {
		cmd.Println("No categories found.")
		return nil
	}

	for _, c := range cats {
		cmd.Printf("  %-32s %d\n", c.Label.String(), c.Count)
	}

	return nil
}
