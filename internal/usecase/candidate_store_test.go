package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordFor(label domain.Label) domain.ImageRecord {
	return domain.ImageRecord{Path: label.Category + "/" + label.Style + "/1.png", Label: label}
}

func TestCandidateStore_LabelsWithSameStringLoadSeparately(t *testing.T) {
	first := domain.NewLabel("a_b", "c")
	second := domain.NewLabel("a", "b_c")
	require.Equal(t, first.String(), second.String())

	started := make(chan domain.Label, 2)
	release := make(chan struct{})
	store := newCandidateStore(func(_ context.Context, label domain.Label) ([]domain.ImageRecord, error) {
		started <- label
		<-release
		return []domain.ImageRecord{recordFor(label)}, nil
	})

	ctx := context.Background()
	results := make(map[domain.Label][]domain.ImageRecord)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, label := range []domain.Label{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := store.get(ctx, label)
			assert.NoError(t, err)
			mu.Lock()
			results[label] = recs
			mu.Unlock()
		}()
	}

	// обе загрузки должны идти одновременно, а не слиться в одну
	for range 2 {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("second label load did not start while the first was in flight")
		}
	}
	close(release)
	wg.Wait()

	for _, label := range []domain.Label{first, second} {
		require.Len(t, results[label], 1)
		assert.Equal(t, label, results[label][0].Label)
	}
}

func TestCandidateStore_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	label := domain.NewLabel("A", "x")

	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr error
	store := newCandidateStore(func(ctx context.Context, label domain.Label) ([]domain.ImageRecord, error) {
		close(started)
		<-release
		loadErr = ctx.Err()
		return []domain.ImageRecord{recordFor(label)}, nil
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := store.get(firstCtx, label)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan []domain.ImageRecord, 1)
	go func() {
		recs, err := store.get(context.Background(), label)
		assert.NoError(t, err)
		secondDone <- recs
	}()

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	recs := <-secondDone
	require.Len(t, recs, 1)
	assert.NoError(t, loadErr)

	cached, ok := store.lookup(label)
	require.True(t, ok)
	assert.Equal(t, recs, cached)
}
