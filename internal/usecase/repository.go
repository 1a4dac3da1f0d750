package usecase

import (
	"context"

	"github.com/DRSN-tech/lookalike/internal/domain"
)

type Indexer interface {
	Index(ctx context.Context, root string) ([]domain.ImageRecord, error)
	IndexCategory(ctx context.Context, root string, label domain.Label) ([]domain.ImageRecord, error)
}

// CacheRepository хранит средние эмбеддинги категорий между запусками.
// Load никогда не возвращает ошибку: любая проблема означает промах.
type CacheRepository interface {
	Save(ctx context.Context, avgs *domain.CategoryAverages, fingerprint string) error
	Load(ctx context.Context, fingerprint string) (*domain.CategoryAverages, bool)
}

// EmbeddingRepository — внешний векторный индекс, заменяющий поиск в памяти.
// label == nil означает поиск по всему датасету.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, records []domain.ImageRecord) error
	Search(ctx context.Context, query domain.Embedding, label *domain.Label, topN int) ([]domain.Recommendation, error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.UploadedImage) (string, error)
}
