package usecase

import (
	"context"

	"github.com/DRSN-tech/lookalike/internal/domain"
)

type EmbeddingExtractor interface {
	Extract(ctx context.Context, data []byte) (domain.Embedding, error)
}

// UploadArchive сохраняет загруженные изображения в фоне. Archive возвращает ключ объекта сразу.
type UploadArchive interface {
	Archive(req *ArchiveReq) string
}

type EventProducer interface {
	PublishRecommendation(ctx context.Context, event *RecommendationEvent) error
}
