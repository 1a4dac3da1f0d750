package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	queryTopN int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [image]",
	Short: "Rank dataset images by similarity to an image file",
	Long: `Extracts the embedding of the given image and prints the closest dataset
images in ascending Euclidean distance. In two_stage mode the image is first
assigned to the nearest category average.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopN, "top", "n", 0, "number of results (0 uses TOP_N)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

type queryItem struct {
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

type queryOutput struct {
	Label           string      `json:"label,omitempty"`
	Recommendations []queryItem `json:"recommendations"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	s, err := openSession(cmd.Context(), "")
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer s.close()

	res, err := s.UC.Recommend(cmd.Context(), &usecase.RecommendReq{
		Image:    data,
		Filename: filepath.Base(args[0]),
		TopN:     queryTopN,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := queryOutput{Recommendations: make([]queryItem, 0, len(res.Recommendations))}
	if res.Label != nil {
		out.Label = res.Label.String()
	}
	for _, rec := range res.Recommendations {
		out.Recommendations = append(out.Recommendations, queryItem{Path: domain.RelativePath(s.Root, rec.Path), Distance: rec.Distance})
	}

	if queryJSON {
		return outputQueryJSON(cmd, out)
	}

	return outputQueryTable(cmd, out)
}

func outputQueryJSON(cmd *cobra.Command, out queryOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, out queryOutput) error {
	if out.Label != "" {
		cmd.Printf("Category: %s\n", out.Label)
	}

	if len(out.Recommendations) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, rec := range out.Recommendations {
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, rec.Path, rec.Distance)
	}

	return nil
}
