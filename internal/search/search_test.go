package search

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(t *testing.T, raw ...float32) domain.Embedding {
	t.Helper()
	emb, err := domain.NewEmbedding(raw)
	require.NoError(t, err)
	return emb
}

func randomRecords(t *testing.T, rng *rand.Rand, n, dim int) []domain.ImageRecord {
	t.Helper()
	records := make([]domain.ImageRecord, n)
	for i := range records {
		raw := make([]float32, dim)
		for j := range raw {
			raw[j] = float32(rng.NormFloat64())
		}
		records[i] = *domain.NewImageRecord(fmt.Sprintf("img-%d.jpg", i), domain.NewLabel("c", "s"), unit(t, raw...))
	}
	return records
}

func TestRank(t *testing.T) {
	t.Run("exact match at index 2 is first with zero distance", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		candidates := randomRecords(t, rng, 5, 8)

		got := Rank(candidates[2].Embedding, candidates, 1)

		require.Len(t, got, 1)
		assert.Equal(t, "img-2.jpg", got[0].Path)
		assert.Zero(t, got[0].Distance)
	})

	t.Run("sorted by non-decreasing distance", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		candidates := randomRecords(t, rng, 50, 16)
		query := randomRecords(t, rng, 1, 16)[0].Embedding

		got := Rank(query, candidates, 10)

		require.Len(t, got, 10)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
		}
		for _, c := range candidates {
			d, err := domain.L2Distance(query, c.Embedding)
			require.NoError(t, err)
			assert.LessOrEqual(t, got[0].Distance, d)
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		query := unit(t, 1, 0)
		for _, topN := range []int{0, 1, 10} {
			got := Rank(query, nil, topN)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		}
	})

	t.Run("topN larger than candidates returns all", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		candidates := randomRecords(t, rng, 3, 4)

		got := Rank(candidates[0].Embedding, candidates, 10)

		assert.Len(t, got, 3)
	})

	t.Run("non-positive topN returns empty", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(7, 8))
		candidates := randomRecords(t, rng, 3, 4)

		assert.Empty(t, Rank(candidates[0].Embedding, candidates, 0))
		assert.Empty(t, Rank(candidates[0].Embedding, candidates, -1))
	})

	t.Run("ties keep input order", func(t *testing.T) {
		same := unit(t, 0, 1)
		candidates := []domain.ImageRecord{
			*domain.NewImageRecord("far.jpg", domain.Label{}, unit(t, -1, 0)),
			*domain.NewImageRecord("tie-a.jpg", domain.Label{}, same),
			*domain.NewImageRecord("tie-b.jpg", domain.Label{}, same),
			*domain.NewImageRecord("tie-c.jpg", domain.Label{}, same),
		}

		got := Rank(unit(t, 1, 0), candidates, 4)

		require.Len(t, got, 4)
		assert.Equal(t, []string{"tie-a.jpg", "tie-b.jpg", "tie-c.jpg", "far.jpg"},
			[]string{got[0].Path, got[1].Path, got[2].Path, got[3].Path})
	})
}

func TestRankChecked(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		candidates := []domain.ImageRecord{
			*domain.NewImageRecord("a.jpg", domain.Label{}, unit(t, 1, 0, 0)),
		}

		_, err := RankChecked(unit(t, 1, 0), candidates, 1)

		assert.ErrorIs(t, err, e.ErrDimensionMismatch)
	})

	t.Run("ok", func(t *testing.T) {
		candidates := []domain.ImageRecord{
			*domain.NewImageRecord("a.jpg", domain.Label{}, unit(t, 1, 0)),
		}

		got, err := RankChecked(unit(t, 1, 0), candidates, 1)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a.jpg", got[0].Path)
	})
}
