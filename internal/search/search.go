// Package search ранжирует изображения датасета по евклидову расстоянию до запроса.
//
// Поиск полный перебором: для датасетов в тысячи изображений O(n·d) на запрос
// приемлемо и даёт точный результат без приближённых индексов.
package search

import (
	"fmt"
	"sort"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
)

type scored struct {
	idx      int
	distance float64
}

// Rank возвращает min(topN, len(candidates)) ближайших кандидатов по возрастанию расстояния.
// При равных расстояниях сохраняется порядок candidates. Пустой вход или topN <= 0 дают пустой результат.
// Размерности кандидатов должны совпадать с query (см. RankChecked).
func Rank(query domain.Embedding, candidates []domain.ImageRecord, topN int) []domain.Recommendation {
	if len(candidates) == 0 || topN <= 0 {
		return []domain.Recommendation{}
	}

	scoreds := make([]scored, len(candidates))
	for i := range candidates {
		scoreds[i] = scored{idx: i, distance: domain.MustL2Distance(query, candidates[i].Embedding)}
	}

	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].distance < scoreds[b].distance })

	if topN > len(scoreds) {
		topN = len(scoreds)
	}

	out := make([]domain.Recommendation, topN)
	for n := 0; n < topN; n++ {
		out[n] = domain.Recommendation{
			Path:     candidates[scoreds[n].idx].Path,
			Distance: scoreds[n].distance,
		}
	}

	return out
}

// RankChecked проверяет размерности кандидатов и вызывает Rank.
func RankChecked(query domain.Embedding, candidates []domain.ImageRecord, topN int) ([]domain.Recommendation, error) {
	const op = "search.RankChecked"

	if err := ValidateDims(query.Dim(), candidates); err != nil {
		return nil, e.Wrap(op, err)
	}

	return Rank(query, candidates, topN), nil
}

// ValidateDims проверяет, что все эмбеддинги кандидатов имеют размерность dim.
func ValidateDims(dim int, candidates []domain.ImageRecord) error {
	for _, c := range candidates {
		if c.Embedding.Dim() != dim {
			return e.Wrap(fmt.Sprintf("%s: %d vs %d", c.Path, c.Embedding.Dim(), dim), e.ErrDimensionMismatch)
		}
	}
	return nil
}
