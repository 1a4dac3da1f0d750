// Package category считает средние эмбеддинги категорий датасета и относит
// изображение к ближайшей категории.
package category

import (
	"fmt"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
)

type accumulator struct {
	sum   []float64
	count int
}

// ComputeAverages группирует записи по метке и возвращает средний вектор каждой группы.
// Порядок категорий — порядок первого появления метки в records.
// Накопление идёт в float64, поэтому результат не зависит от порядка повторных вызовов.
// Записи одной метки разной размерности — e.ErrDimensionMismatch.
func ComputeAverages(records []domain.ImageRecord) (*domain.CategoryAverages, error) {
	const op = "category.ComputeAverages"

	var (
		order []domain.Label
		acc   = make(map[domain.Label]*accumulator)
	)

	for _, rec := range records {
		a, ok := acc[rec.Label]
		if !ok {
			a = &accumulator{sum: make([]float64, len(rec.Embedding))}
			acc[rec.Label] = a
			order = append(order, rec.Label)
		}
		if len(rec.Embedding) != len(a.sum) {
			return nil, e.Wrap(op, fmt.Errorf("%s: %w", rec.Path, e.ErrDimensionMismatch))
		}
		for i, v := range rec.Embedding {
			a.sum[i] += float64(v)
		}
		a.count++
	}

	averages := domain.NewCategoryAverages(len(order))
	for _, label := range order {
		a := acc[label]
		if a.count == 0 {
			continue
		}

		mean := make([]float32, len(a.sum))
		for i, s := range a.sum {
			mean[i] = float32(s / float64(a.count))
		}
		averages.Put(*domain.NewCategoryAverage(label, mean, a.count))
	}

	return averages, nil
}

// Classify возвращает метку категории, чьё среднее ближе всего к query.
// При равных расстояниях побеждает категория, идущая раньше в averages.
func Classify(query domain.Embedding, averages *domain.CategoryAverages) (domain.Label, error) {
	const op = "category.Classify"

	if averages.Len() == 0 {
		return domain.Label{}, e.Wrap(op, e.ErrEmptyCategorySet)
	}

	var (
		best    domain.Label
		minDist float64
		found   bool
	)
	for _, avg := range averages.All() {
		d, err := domain.L2Distance(query, avg.Mean)
		if err != nil {
			return domain.Label{}, e.Wrap(op, e.Wrap(avg.Label.String(), err))
		}
		if !found || d < minDist {
			best, minDist, found = avg.Label, d, true
		}
	}

	return best, nil
}
