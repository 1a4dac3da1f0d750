package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAverages() *domain.CategoryAverages {
	avgs := domain.NewCategoryAverages(3)
	avgs.Put(*domain.NewCategoryAverage(domain.NewLabel("C", "z"), []float32{0.25, 0.5, 0.75}, 1))
	avgs.Put(*domain.NewCategoryAverage(domain.NewLabel("A", "x"), []float32{0.1, 0.2, 0.3}, 3))
	avgs.Put(*domain.NewCategoryAverage(domain.NewLabel("B", "y"), []float32{-1, 0, 1}, 2))
	return avgs
}

func openRepo(t *testing.T) *CacheRepo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "cache", "lookalike.db"), logger.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCacheRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("empty database is absent", func(t *testing.T) {
		avgs, ok := openRepo(t).Load(ctx, "")

		assert.False(t, ok)
		assert.Nil(t, avgs)
	})

	t.Run("round trip keeps order", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.Save(ctx, sampleAverages(), "fp"))

		avgs, ok := repo.Load(ctx, "fp")

		require.True(t, ok)
		assert.Equal(t, sampleAverages().All(), avgs.All())
	})

	t.Run("save replaces previous content", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.Save(ctx, sampleAverages(), "old"))

		smaller := domain.NewCategoryAverages(1)
		smaller.Put(*domain.NewCategoryAverage(domain.NewLabel("D", "w"), []float32{1, 0, 0}, 5))
		require.NoError(t, repo.Save(ctx, smaller, "new"))

		avgs, ok := repo.Load(ctx, "new")
		require.True(t, ok)
		assert.Equal(t, smaller.All(), avgs.All())
	})

	t.Run("stale fingerprint is absent", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.Save(ctx, sampleAverages(), "fp"))

		_, ok := repo.Load(ctx, "other")
		assert.False(t, ok)
	})

	t.Run("version mismatch is absent", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.Save(ctx, sampleAverages(), "fp"))
		_, err := repo.db.Exec(`UPDATE cache_meta SET version = 42`)
		require.NoError(t, err)

		_, ok := repo.Load(ctx, "fp")
		assert.False(t, ok)
	})
}
