package converter

import (
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
)

// ToModel переводит средние категорий в сериализуемую модель.
func ToModel(avgs *domain.CategoryAverages, fingerprint string) *CategoryAveragesModel {
	items := avgs.All()
	model := &CategoryAveragesModel{
		Format:      CacheFormat,
		Version:     CacheVersion,
		Fingerprint: fingerprint,
		Dim:         avgs.Dim(),
		Categories:  make([]CategoryAverageModel, 0, len(items)),
	}

	for _, item := range items {
		model.Categories = append(model.Categories, CategoryAverageModel{
			Category: item.Label.Category,
			Style:    item.Label.Style,
			Count:    item.Count,
			Mean:     item.Mean,
		})
	}

	return model
}

// ToDomain проверяет модель и восстанавливает средние категорий.
func ToDomain(model *CategoryAveragesModel) (*domain.CategoryAverages, error) {
	if err := Validate(model); err != nil {
		return nil, err
	}

	avgs := domain.NewCategoryAverages(len(model.Categories))
	for _, c := range model.Categories {
		avgs.Put(*domain.NewCategoryAverage(domain.NewLabel(c.Category, c.Style), c.Mean, c.Count))
	}

	return avgs, nil
}

// Validate проверяет формат, версию и согласованность содержимого модели.
func Validate(model *CategoryAveragesModel) error {
	if model.Format != CacheFormat || model.Version != CacheVersion {
		return e.Wrap(fmt.Sprintf("got %q v%d", model.Format, model.Version), e.ErrCacheFormatMismatch)
	}

	if len(model.Categories) == 0 {
		return e.Wrap("no categories", e.ErrCacheFormatMismatch)
	}

	for _, c := range model.Categories {
		if c.Count < 1 || len(c.Mean) != model.Dim || c.Category == "" || c.Style == "" {
			return e.Wrap(fmt.Sprintf("invalid category %s_%s", c.Category, c.Style), e.ErrCacheFormatMismatch)
		}
	}

	return nil
}

// Marshal сериализует средние категорий в JSON.
func Marshal(avgs *domain.CategoryAverages, fingerprint string) ([]byte, error) {
	return json.Marshal(ToModel(avgs, fingerprint))
}

// Unmarshal разбирает JSON и возвращает средние категорий и fingerprint датасета, для которого они посчитаны.
func Unmarshal(data []byte) (*domain.CategoryAverages, string, error) {
	var model CategoryAveragesModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, "", e.Wrap(err.Error(), e.ErrCacheFormatMismatch)
	}

	avgs, err := ToDomain(&model)
	if err != nil {
		return nil, "", err
	}

	return avgs, model.Fingerprint, nil
}

// FingerprintMatches сообщает, подходит ли кэш для текущего датасета.
// Пустой want отключает проверку.
func FingerprintMatches(want, got string) bool {
	return want == "" || want == got
}
