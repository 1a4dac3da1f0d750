package usecase_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/extractor"
	"github.com/DRSN-tech/lookalike/internal/extractor/extractortest"
	"github.com/DRSN-tech/lookalike/internal/indexer"
	"github.com/DRSN-tech/lookalike/internal/repository/file"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// newDataset: A/x — три красных изображения, B/y — два синих.
func newDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for _, name := range []string{"1.png", "2.png", "3.png"} {
		writeFile(t, filepath.Join(root, "A", "x", name), extractortest.SolidPNG(red, 16, 16))
	}
	for _, name := range []string{"1.png", "2.png"} {
		writeFile(t, filepath.Join(root, "B", "y", name), extractortest.SolidPNG(blue, 16, 16))
	}

	return root
}

type fixture struct {
	model *extractortest.QuadrantModel
	uc    *usecase.RecommendUseCase
}

func newFixture(t *testing.T, opts usecase.Options, cache usecase.CacheRepository, archive usecase.UploadArchive, producer usecase.EventProducer) *fixture {
	t.Helper()

	model := &extractortest.QuadrantModel{}
	ex := extractor.NewExtractor(model, extractor.Config{InputSize: 8})
	idx := indexer.NewIndexer(ex, 2, logger.Nop{})

	if opts.TopN == 0 {
		opts.TopN = 10
	}

	uc := usecase.NewRecommendUC(opts, ex, idx, indexer.Fingerprint, cache, nil, archive, producer, logger.Nop{})

	return &fixture{model: model, uc: uc}
}

type archiveStub struct {
	mu   sync.Mutex
	reqs []*usecase.ArchiveReq
}

func (a *archiveStub) Archive(req *usecase.ArchiveReq) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reqs = append(a.reqs, req)
	return "uploads/test.png"
}

type producerStub struct {
	mu     sync.Mutex
	events []*usecase.RecommendationEvent
	err    error
}

func (p *producerStub) PublishRecommendation(_ context.Context, ev *usecase.RecommendationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestRecommendUseCase_Flat(t *testing.T) {
	root := newDataset(t)
	f := newFixture(t, usecase.Options{Root: root, Mode: usecase.ModeFlat}, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.uc.Build(ctx))

	t.Run("red query ranks A/x first in traversal order", func(t *testing.T) {
		res, err := f.uc.Recommend(ctx, &usecase.RecommendReq{Image: extractortest.SolidPNG(red, 32, 32)})
		require.NoError(t, err)

		assert.Nil(t, res.Label)
		require.Len(t, res.Recommendations, 5)
		for i, name := range []string{"1.png", "2.png", "3.png"} {
			assert.Equal(t, filepath.Join(root, "A", "x", name), res.Recommendations[i].Path)
			assert.InDelta(t, 0, res.Recommendations[i].Distance, 1e-5)
		}
		for i := 1; i < len(res.Recommendations); i++ {
			assert.LessOrEqual(t, res.Recommendations[i-1].Distance, res.Recommendations[i].Distance)
		}
	})

	t.Run("top n limits the result", func(t *testing.T) {
		res, err := f.uc.Recommend(ctx, &usecase.RecommendReq{Image: extractortest.SolidPNG(blue, 32, 32), TopN: 2})
		require.NoError(t, err)

		require.Len(t, res.Recommendations, 2)
		assert.Equal(t, filepath.Join(root, "B", "y", "1.png"), res.Recommendations[0].Path)
		assert.Equal(t, filepath.Join(root, "B", "y", "2.png"), res.Recommendations[1].Path)
	})

	t.Run("undecodable upload", func(t *testing.T) {
		_, err := f.uc.Recommend(ctx, &usecase.RecommendReq{Image: []byte("not an image")})
		assert.ErrorIs(t, err, e.ErrImageDecode)
	})

	t.Run("categories keep first seen order", func(t *testing.T) {
		cats := f.uc.Categories()
		require.Len(t, cats, 2)
		assert.Equal(t, domain.NewLabel("A", "x"), cats[0].Label)
		assert.Equal(t, 3, cats[0].Count)
		assert.Equal(t, domain.NewLabel("B", "y"), cats[1].Label)
		assert.Equal(t, 2, cats[1].Count)
	})
}

func TestRecommendUseCase_TopNDefaults(t *testing.T) {
	root := newDataset(t)
	f := newFixture(t, usecase.Options{Root: root, Mode: usecase.ModeFlat, TopN: 2, MaxTopN: 3}, nil, nil, nil)
	ctx := context.Background()
	require.NoError(t, f.uc.Build(ctx))

	tests := []struct {
		name string
		topN int
		want int
	}{
		{name: "absent uses default", topN: 0, want: 2},
		{name: "negative uses default", topN: -3, want: 2},
		{name: "within limit", topN: 1, want: 1},
		{name: "above limit is clamped", topN: 100, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.uc.Recommend(ctx, &usecase.RecommendReq{Image: extractortest.SolidPNG(red, 32, 32), TopN: tt.topN})
			require.NoError(t, err)
			assert.Len(t, res.Recommendations, tt.want)
		})
	}
}

func TestRecommendUseCase_TwoStage(t *testing.T) {
	root := newDataset(t)
	cachePath := filepath.Join(t.TempDir(), "averages.json")
	ctx := context.Background()

	opts := usecase.Options{Root: root, Mode: usecase.ModeTwoStage, VerifyFingerprint: true}

	cold := newFixture(t, opts, file.NewCacheRepo(cachePath, logger.Nop{}), nil, nil)
	require.NoError(t, cold.uc.Build(ctx))
	assert.EqualValues(t, 5, cold.model.Calls.Load())
	assert.FileExists(t, cachePath)

	res, err := cold.uc.Recommend(ctx, &usecase.RecommendReq{Image: extractortest.SolidPNG(red, 32, 32)})
	require.NoError(t, err)
	require.NotNil(t, res.Label)
	assert.Equal(t, "A_x", res.Label.String())
	require.Len(t, res.Recommendations, 3)
	for _, rec := range res.Recommendations {
		assert.Equal(t, filepath.Join(root, "A", "x"), filepath.Dir(rec.Path))
	}

	t.Run("warm start loads averages and indexes categories lazily", func(t *testing.T) {
		warm := newFixture(t, opts, file.NewCacheRepo(cachePath, logger.Nop{}), nil, nil)
		require.NoError(t, warm.uc.Build(ctx))
		assert.EqualValues(t, 0, warm.model.Calls.Load())

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := warm.uc.Recommend(ctx, &usecase.RecommendReq{Image: extractortest.SolidPNG(blue, 32, 32)})
				assert.NoError(t, err)
				if assert.NotNil(t, res.Label) {
					assert.Equal(t, "B_y", res.Label.String())
				}
				assert.Len(t, res.Recommendations, 2)
			}()
		}
		wg.Wait()

		// 4 запроса + одно извлечение категории B/y
		assert.EqualValues(t, 4+2, warm.model.Calls.Load())
	})

	t.Run("changed dataset invalidates the cache", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "B", "y", "3.png"), extractortest.SolidPNG(blue, 16, 16))

		stale := newFixture(t, opts, file.NewCacheRepo(cachePath, logger.Nop{}), nil, nil)
		require.NoError(t, stale.uc.Build(ctx))
		assert.EqualValues(t, 6, stale.model.Calls.Load())
	})
}

func TestRecommendUseCase_ArchiveAndEvents(t *testing.T) {
	root := newDataset(t)
	archive := &archiveStub{}
	producer := &producerStub{err: assert.AnError}
	ctx := context.Background()

	f := newFixture(t, usecase.Options{Root: root, Mode: usecase.ModeTwoStage, TopN: 2}, nil, archive, producer)
	require.NoError(t, f.uc.Build(ctx))

	img := extractortest.SolidPNG(red, 32, 32)
	res, err := f.uc.Recommend(ctx, &usecase.RecommendReq{Image: img, MimeType: "image/png"})
	require.NoError(t, err, "publish errors must not fail the request")

	assert.Equal(t, "uploads/test.png", res.UploadKey)
	require.Len(t, archive.reqs, 1)
	assert.Equal(t, img, archive.reqs[0].Data)
	assert.Equal(t, "image/png", archive.reqs[0].MimeType)

	require.Len(t, producer.events, 1)
	ev := producer.events[0]
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "A_x", ev.Label)
	assert.Equal(t, "uploads/test.png", ev.UploadKey)
	assert.Len(t, ev.Results, 2)
}

func TestRecommendUseCase_Build(t *testing.T) {
	t.Run("empty dataset", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "README.md"), []byte("# empty"))

		f := newFixture(t, usecase.Options{Root: root}, nil, nil, nil)
		assert.ErrorIs(t, f.uc.Build(context.Background()), e.ErrEmptyDataset)
	})

	t.Run("one level layout", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "A", "1.png"), extractortest.SolidPNG(red, 8, 8))

		f := newFixture(t, usecase.Options{Root: root}, nil, nil, nil)
		assert.ErrorIs(t, f.uc.Build(context.Background()), e.ErrInvalidDatasetLayout)
	})

	t.Run("missing root", func(t *testing.T) {
		f := newFixture(t, usecase.Options{Root: filepath.Join(t.TempDir(), "absent")}, nil, nil, nil)
		assert.Error(t, f.uc.Build(context.Background()))
	})
}
