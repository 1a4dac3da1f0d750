package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/repository/converter"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/jimlawless/whereami"
)

// CacheRepo хранит средние категорий в JSON-файле по фиксированному пути.
type CacheRepo struct {
	path   string
	logger logger.Logger
}

func NewCacheRepo(path string, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		path:   path,
		logger: logger,
	}
}

// Save атомарно перезаписывает файл кэша: запись во временный файл и rename.
func (r *CacheRepo) Save(_ context.Context, avgs *domain.CategoryAverages, fingerprint string) error {
	data, err := converter.Marshal(avgs, fingerprint)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer os.Remove(tmp.Name()) // no-op после успешного rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := tmp.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Load читает кэш. Отсутствующий, повреждённый или устаревший файл — промах (false), не ошибка.
func (r *CacheRepo) Load(_ context.Context, fingerprint string) (*domain.CategoryAverages, bool) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warnf("category cache read failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	avgs, storedFingerprint, err := converter.Unmarshal(data)
	if err != nil {
		r.logger.Warnf("category cache %s is unreadable, recomputing: %v", r.path, err)
		return nil, false
	}

	if !converter.FingerprintMatches(fingerprint, storedFingerprint) {
		r.logger.Infof("category cache %s is stale (dataset changed), recomputing", r.path)
		return nil, false
	}

	return avgs, true
}
