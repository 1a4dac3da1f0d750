// Package extractor превращает изображение в L2-нормированный эмбеддинг.
//
// Сама сеть (предобученный свёрточный экстрактор признаков с global pooling,
// без классификационной головы) скрыта за интерфейсом Model: пакет отвечает за
// декодирование, ресайз, нормализацию каналов и нормировку выхода.
package extractor

import (
	"context"
	"os"
	"sync"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/jimlawless/whereami"
)

// DefaultInputSize — сторона квадратного входа сети.
const DefaultInputSize = 224

// Model — предобученная сеть как чистая функция тензор → вектор признаков.
type Model interface {
	Infer(ctx context.Context, tensor []float32, shape Shape, mode Mode) ([]float32, error)
}

// Config — параметры предобработки и вызова модели.
type Config struct {
	InputSize int
	Mode      Mode
	// Serialize включает взаимное исключение вокруг Infer, если рантайм модели
	// не допускает конкурентных вызовов.
	Serialize bool
	// MaxConcurrent ограничивает число одновременных Infer (0 — без ограничения).
	MaxConcurrent int
}

// Extractor реализует извлечение эмбеддингов. Безопасен для конкурентного использования.
type Extractor struct {
	model     Model
	inputSize int
	mode      Mode
	mu        *sync.Mutex
	sem       chan struct{}
}

func NewExtractor(model Model, cfg Config) *Extractor {
	ex := &Extractor{
		model:     model,
		inputSize: cfg.InputSize,
		mode:      cfg.Mode,
	}
	if ex.inputSize <= 0 {
		ex.inputSize = DefaultInputSize
	}
	if ex.mode == "" {
		ex.mode = ModeRaw
	}
	if cfg.Serialize {
		ex.mu = &sync.Mutex{}
	}
	if cfg.MaxConcurrent > 0 {
		ex.sem = make(chan struct{}, cfg.MaxConcurrent)
	}

	return ex
}

// Extract декодирует изображение и возвращает его эмбеддинг.
// Нечитаемое изображение — e.ErrImageDecode, нулевая норма выхода — e.ErrDegenerateEmbedding.
func (x *Extractor) Extract(ctx context.Context, data []byte) (domain.Embedding, error) {
	const op = "Extractor.Extract"

	img, _, err := Decode(data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	tensor, shape := ToTensor(Resize(img, x.inputSize), x.mode)

	raw, err := x.infer(ctx, tensor, shape)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	emb, err := domain.NewEmbedding(raw)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return emb, nil
}

// ExtractFile читает файл с диска и извлекает его эмбеддинг.
func (x *Extractor) ExtractFile(ctx context.Context, path string) (domain.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	emb, err := x.Extract(ctx, data)
	if err != nil {
		return nil, e.Wrap(path, err)
	}

	return emb, nil
}

func (x *Extractor) infer(ctx context.Context, tensor []float32, shape Shape) ([]float32, error) {
	if x.sem != nil {
		select {
		case x.sem <- struct{}{}:
			defer func() { <-x.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if x.mu != nil {
		x.mu.Lock()
		defer x.mu.Unlock()
	}

	return x.model.Infer(ctx, tensor, shape, x.mode)
}
