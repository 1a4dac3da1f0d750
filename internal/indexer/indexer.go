// Package indexer строит индекс эталонного датасета: обходит дерево
// <root>/<category>/<style>/<image> и извлекает эмбеддинг каждого изображения.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// imageExtensions — allowlist расширений изображений (сравнение без учёта регистра).
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".tiff": {},
	".gif":  {},
}

// EmbeddingExtractor извлекает эмбеддинг файла изображения.
type EmbeddingExtractor interface {
	ExtractFile(ctx context.Context, path string) (domain.Embedding, error)
}

// Indexer обходит датасет и извлекает эмбеддинги пулом из workers горутин.
type Indexer struct {
	extractor EmbeddingExtractor
	workers   int
	logger    logger.Logger
}

func NewIndexer(extractor EmbeddingExtractor, workers int, logger logger.Logger) *Indexer {
	if workers <= 0 {
		workers = 1
	}

	return &Indexer{
		extractor: extractor,
		workers:   workers,
		logger:    logger,
	}
}

// IsImageFile проверяет расширение файла по allowlist.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// entry — найденный при обходе файл изображения.
type entry struct {
	path  string
	label domain.Label
}

// Index извлекает эмбеддинги всех изображений датасета.
// Порядок записей — порядок обхода (лексикографический внутри директории).
// Изображение выше второго уровня вложенности — e.ErrInvalidDatasetLayout.
func (i *Indexer) Index(ctx context.Context, root string) ([]domain.ImageRecord, error) {
	const op = "Indexer.Index"

	entries, err := scan(root)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	i.logger.Infof("indexing %d images from %s", len(entries), root)

	records, err := i.extract(ctx, entries)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return records, nil
}

// IndexCategory извлекает эмбеддинги только тех изображений, чья метка равна label.
func (i *Indexer) IndexCategory(ctx context.Context, root string, label domain.Label) ([]domain.ImageRecord, error) {
	const op = "Indexer.IndexCategory"

	entries, err := scan(root)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	filtered := entries[:0:0]
	for _, en := range entries {
		if en.label == label {
			filtered = append(filtered, en)
		}
	}

	i.logger.Debugf("indexing %d images of category %s", len(filtered), label)

	records, err := i.extract(ctx, filtered)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return records, nil
}

// scan обходит root и возвращает изображения с их метками, не вызывая экстрактор.
func scan(root string) ([]entry, error) {
	var entries []entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsImageFile(d.Name()) {
			return nil
		}

		label, err := domain.LabelFromPath(root, path)
		if err != nil {
			return err
		}

		entries = append(entries, entry{path: path, label: label})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// extract извлекает эмбеддинги параллельно, сохраняя порядок entries.
// При первой ошибке оставшиеся задачи отменяются.
func (i *Indexer) extract(ctx context.Context, entries []entry) ([]domain.ImageRecord, error) {
	records := make([]domain.ImageRecord, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for idx, en := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emb, err := i.extractor.ExtractFile(gctx, en.path)
			if err != nil {
				return fmt.Errorf("extract %s: %w", en.path, err)
			}
			records[idx] = *domain.NewImageRecord(en.path, en.label, emb)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
