package usecase

import (
	"context"
	"sync"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"golang.org/x/sync/singleflight"
)

type loadFunc func(ctx context.Context, label domain.Label) ([]domain.ImageRecord, error)

// candidateStore хранит записи датасета по категориям. При старте из кэша категории
// извлекаются лениво при первом запросе; конкурентные запросы одной категории
// выполняют одно извлечение.
type candidateStore struct {
	mu      sync.RWMutex
	byLabel map[domain.Label][]domain.ImageRecord
	group   singleflight.Group
	load    loadFunc
}

func newCandidateStore(load loadFunc) *candidateStore {
	return &candidateStore{
		byLabel: make(map[domain.Label][]domain.ImageRecord),
		load:    load,
	}
}

// newFilledCandidateStore группирует уже извлечённые записи, сохраняя порядок обхода.
func newFilledCandidateStore(records []domain.ImageRecord) *candidateStore {
	s := newCandidateStore(nil)
	for _, rec := range records {
		s.byLabel[rec.Label] = append(s.byLabel[rec.Label], rec)
	}

	return s
}

func (s *candidateStore) lookup(label domain.Label) ([]domain.ImageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.byLabel[label]
	return recs, ok
}

func (s *candidateStore) get(ctx context.Context, label domain.Label) ([]domain.ImageRecord, error) {
	if recs, ok := s.lookup(label); ok {
		return recs, nil
	}

	if s.load == nil {
		return nil, nil
	}

	// Загрузка общая для всех ожидающих, поэтому не зависит от отмены первого запроса.
	loadCtx := context.WithoutCancel(ctx)

	ch := s.group.DoChan(flightKey(label), func() (any, error) {
		if recs, ok := s.lookup(label); ok {
			return recs, nil
		}

		recs, err := s.load(loadCtx, label)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.byLabel[label] = recs
		s.mu.Unlock()

		return recs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.ImageRecord), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flightKey однозначно кодирует метку: Label.String() совпадает у {a_b, c} и {a, b_c}.
func flightKey(label domain.Label) string {
	return label.Category + "\x00" + label.Style
}
