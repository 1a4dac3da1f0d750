package domain

import (
	"path"
	"path/filepath"
)

// DatasetURLPrefix — префикс URL, по которому раздаются файлы датасета.
const DatasetURLPrefix = "/dataset/"

// Recommendation — один результат поиска: путь к изображению и расстояние до запроса.
// Меньшее расстояние означает большую похожесть.
type Recommendation struct {
	Path     string
	Distance float64
}

// RecommendationResult — ранжированный ответ на запрос (лучшее совпадение первым).
// Label заполнен только в двухэтапном режиме.
type RecommendationResult struct {
	Label           *Label
	Recommendations []Recommendation
}

func NewRecommendationResult(label *Label, recs []Recommendation) *RecommendationResult {
	if recs == nil {
		recs = []Recommendation{}
	}
	return &RecommendationResult{
		Label:           label,
		Recommendations: recs,
	}
}

// RelativePath возвращает путь изображения относительно корня датасета со слэшами.
// Путь вне корня возвращается как есть.
func RelativePath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}

	return filepath.ToSlash(rel)
}

// DatasetURL — URL файла датасета по относительному пути.
func DatasetURL(rel string) string {
	return path.Join(DatasetURLPrefix, rel)
}
