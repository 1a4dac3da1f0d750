package usecase

import (
	"time"

	"github.com/DRSN-tech/lookalike/internal/domain"
)

// RecommendReq — запрос рекомендаций по загруженному изображению.
type RecommendReq struct {
	Image    []byte
	MimeType string // Content-Type из multipart (image/jpeg)
	Filename string // оригинальное имя файла (для логов)
	TopN     int    // 0 — значение из конфигурации
}

// RecommendRes — результат: найденная категория (только two_stage) и ранжированный список.
type RecommendRes struct {
	Label           *domain.Label
	Recommendations []domain.Recommendation
	UploadKey       string // ключ в архиве загрузок, пустой если архив отключён
}

// CategoryInfo — DTO с информацией о категории для внешнего использования.
type CategoryInfo struct {
	Label domain.Label
	Count int
}

// ArchiveReq — запрос на архивацию загруженного изображения.
type ArchiveReq struct {
	Data     []byte
	MimeType string
}

// RecommendationEvent — событие об обслуженном запросе рекомендаций.
type RecommendationEvent struct {
	EventID   string                  `json:"event_id"`
	Timestamp time.Time               `json:"timestamp"`
	Label     string                  `json:"label,omitempty"`
	UploadKey string                  `json:"upload_key,omitempty"`
	Results   []RecommendationPayload `json:"results"`
}

type RecommendationPayload struct {
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}
