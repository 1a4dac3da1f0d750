package e

import "fmt"

var (
	// Ошибки входного изображения
	ErrImageDecode          = fmt.Errorf("image decode error")
	ErrEmptyImage           = fmt.Errorf("empty image data")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// Внутренние ошибки с векторами
	ErrDegenerateEmbedding = fmt.Errorf("degenerate embedding: zero norm")
	ErrDimensionMismatch   = fmt.Errorf("embedding dimension mismatch")
	ErrEmptyModelOutput    = fmt.Errorf("model returned empty output")

	// Ошибки датасета и категорий
	ErrInvalidDatasetLayout = fmt.Errorf("invalid dataset layout: expected <root>/<category>/<style>/<image>")
	ErrEmptyDataset         = fmt.Errorf("dataset contains no images")
	ErrEmptyCategorySet     = fmt.Errorf("empty category set")

	// Ошибки кэша
	ErrCacheFormatMismatch = fmt.Errorf("cache format mismatch")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 400 Bad Request
	ErrStatusBadRequest  = fmt.Errorf("bad request")
	ErrExpectedMultipart = fmt.Errorf("expected multipart/form-data")
	ErrNoImage           = fmt.Errorf("no image provided")
	ErrFileTooLarge      = fmt.Errorf("file too large")
	ErrInvalidTopN       = fmt.Errorf("top_n must be a positive integer")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
