package converter

const (
	// CacheFormat и CacheVersion идентифицируют формат сериализованных средних категорий.
	// Любое несовпадение при чтении трактуется как отсутствие кэша.
	CacheFormat  = "lookalike.category-averages"
	CacheVersion = 1
)

// CategoryAveragesModel — сериализуемое представление кэша средних категорий.
// Categories хранится списком, чтобы сохранить порядок итерации.
type CategoryAveragesModel struct {
	Format      string                 `json:"format"`
	Version     int                    `json:"version"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	Dim         int                    `json:"dim"`
	Categories  []CategoryAverageModel `json:"categories"`
}

type CategoryAverageModel struct {
	Category string    `json:"category"`
	Style    string    `json:"style"`
	Count    int       `json:"count"`
	Mean     []float32 `json:"mean"`
}
