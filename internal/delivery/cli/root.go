// Package cli реализует консольные команды: прогрев кэша, запрос по файлу и список категорий.
package cli

import (
	"context"
	"errors"

	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/spf13/cobra"
)

// Recommender — use case, собранный для одной команды.
type Recommender interface {
	Build(ctx context.Context) error
	Recommend(ctx context.Context, req *usecase.RecommendReq) (*usecase.RecommendRes, error)
	Categories() []usecase.CategoryInfo
}

// Options переопределяют конфигурацию из окружения. Пустые поля — значения из конфигурации.
type Options struct {
	Root string
	Mode string
}

// Session — собранный use case и корень датасета, на который он смотрит.
type Session struct {
	UC    Recommender
	Root  string
	Close func()
}

// Factory собирает use case по опциям командной строки.
type Factory func(ctx context.Context, opts Options) (*Session, error)

var (
	factory  Factory
	rootOpts Options
)

var rootCmd = &cobra.Command{
	Use:   "lookalike",
	Short: "Find visually similar images in a reference dataset",
	Long: `lookalike indexes a dataset laid out as <root>/<category>/<style>/<image>
and ranks its images by Euclidean distance between CNN embeddings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.Root, "dataset", "", "dataset root (overrides DATASET_ROOT)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.Mode, "mode", "", "pipeline mode: flat or two_stage (overrides PIPELINE_MODE)")
}

// SetFactory задаёт способ сборки use case.
func SetFactory(f Factory) {
	factory = f
}

// ExecuteContext запускает корневую команду с контекстом отмены.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func openSession(ctx context.Context, mode string) (*Session, error) {
	if factory == nil {
		return nil, errors.New("recommender not configured")
	}

	opts := rootOpts
	if mode != "" {
		opts.Mode = mode
	}

	s, err := factory(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := s.UC.Build(ctx); err != nil {
		s.close()
		return nil, err
	}

	return s, nil
}

func (s *Session) close() {
	if s.Close != nil {
		s.Close()
	}
}
