package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/lookalike/internal/category"
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/search"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/google/uuid"
)

// Режимы конвейера
const (
	ModeFlat     = "flat"
	ModeTwoStage = "two_stage"
)

type Options struct {
	Root              string
	Mode              string
	TopN              int
	MaxTopN           int
	VerifyFingerprint bool
}

type Fingerprinter func(root string) (string, error)

// RecommendUseCase реализует поиск похожих изображений. Индекс и средние категорий
// строятся один раз в Build и дальше только читаются.
type RecommendUseCase struct {
	opts          Options
	extractor     EmbeddingExtractor
	indexer       Indexer
	fingerprint   Fingerprinter
	cacheRepo     CacheRepository
	embeddingRepo EmbeddingRepository
	archive       UploadArchive
	producer      EventProducer
	logger        logger.Logger

	dim        int
	records    []domain.ImageRecord
	averages   *domain.CategoryAverages
	candidates *candidateStore
}

// NewRecommendUC создаёт use case. cacheRepo, embeddingRepo, archive и producer могут быть nil.
func NewRecommendUC(
	opts Options,
	extractor EmbeddingExtractor,
	indexer Indexer,
	fingerprint Fingerprinter,
	cacheRepo CacheRepository,
	embeddingRepo EmbeddingRepository,
	archive UploadArchive,
	producer EventProducer,
	logger logger.Logger,
) *RecommendUseCase {
	if opts.Mode == "" {
		opts.Mode = ModeFlat
	}

	return &RecommendUseCase{
		opts:          opts,
		extractor:     extractor,
		indexer:       indexer,
		fingerprint:   fingerprint,
		cacheRepo:     cacheRepo,
		embeddingRepo: embeddingRepo,
		archive:       archive,
		producer:      producer,
		logger:        logger,
	}
}

// Build строит индекс датасета. В режиме two_stage сначала пробует кэш средних:
// при попадании изображения категорий извлекаются лениво при первом запросе.
func (r *RecommendUseCase) Build(ctx context.Context) error {
	const op = "RecommendUseCase.Build"
	start := time.Now()

	fp, err := r.fingerprint(r.opts.Root)
	if err != nil {
		return e.Wrap(op, err)
	}

	// Внешний индекс заполняется из записей, поэтому с ним датасет извлекается всегда
	if r.opts.Mode == ModeTwoStage && r.embeddingRepo == nil {
		if avgs, ok := r.loadCache(ctx, fp); ok {
			r.averages = avgs
			r.dim = avgs.Dim()
			r.candidates = newCandidateStore(func(ctx context.Context, label domain.Label) ([]domain.ImageRecord, error) {
				return r.indexer.IndexCategory(ctx, r.opts.Root, label)
			})

			r.logger.Infof("category averages loaded from cache: categories=%d dim=%d", avgs.Len(), r.dim)
			return nil
		}
	}

	records, err := r.indexer.Index(ctx, r.opts.Root)
	if err != nil {
		return e.Wrap(op, err)
	}

	if len(records) == 0 {
		return e.Wrap(op, e.ErrEmptyDataset)
	}

	dim := records[0].Embedding.Dim()
	if err := search.ValidateDims(dim, records); err != nil {
		return e.Wrap(op, err)
	}

	averages, err := category.ComputeAverages(records)
	if err != nil {
		return e.Wrap(op, err)
	}

	r.dim = dim
	r.records = records
	r.averages = averages
	r.candidates = newFilledCandidateStore(records)

	if r.cacheRepo != nil {
		if err := r.cacheRepo.Save(ctx, r.averages, fp); err != nil {
			r.logger.Warnf("failed to save category averages cache: %v", err)
		}
	}

	if r.embeddingRepo != nil {
		if err := r.embeddingRepo.Upsert(ctx, records); err != nil {
			return e.Wrap(op, err)
		}
	}

	r.logger.Infof("dataset indexed: images=%d categories=%d dim=%d took=%s",
		len(records), r.averages.Len(), dim, time.Since(start).Round(time.Millisecond))

	return nil
}

func (r *RecommendUseCase) loadCache(ctx context.Context, fp string) (*domain.CategoryAverages, bool) {
	if r.cacheRepo == nil {
		return nil, false
	}

	want := fp
	if !r.opts.VerifyFingerprint {
		want = ""
	}

	avgs, ok := r.cacheRepo.Load(ctx, want)
	if !ok || avgs.Len() == 0 {
		return nil, false
	}

	return avgs, true
}

// Recommend извлекает эмбеддинг запроса и возвращает ближайшие изображения датасета.
func (r *RecommendUseCase) Recommend(ctx context.Context, req *RecommendReq) (*RecommendRes, error) {
	const op = "RecommendUseCase.Recommend"

	topN := r.resolveTopN(req.TopN)

	query, err := r.extractor.Extract(ctx, req.Image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if query.Dim() != r.dim {
		return nil, e.Wrap(op, e.ErrDimensionMismatch)
	}

	res := &RecommendRes{}
	if r.archive != nil {
		res.UploadKey = r.archive.Archive(&ArchiveReq{Data: req.Image, MimeType: req.MimeType})
	}

	switch r.opts.Mode {
	case ModeTwoStage:
		label, err := category.Classify(query, r.averages)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		res.Label = &label
		res.Recommendations, err = r.rankWithin(ctx, query, label, topN)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	default:
		res.Recommendations, err = r.rankAll(ctx, query, topN)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	r.publish(ctx, res)

	return res, nil
}

func (r *RecommendUseCase) rankAll(ctx context.Context, query domain.Embedding, topN int) ([]domain.Recommendation, error) {
	if r.embeddingRepo != nil {
		return r.embeddingRepo.Search(ctx, query, nil, topN)
	}

	return search.Rank(query, r.records, topN), nil
}

func (r *RecommendUseCase) rankWithin(ctx context.Context, query domain.Embedding, label domain.Label, topN int) ([]domain.Recommendation, error) {
	if r.embeddingRepo != nil {
		return r.embeddingRepo.Search(ctx, query, &label, topN)
	}

	candidates, err := r.candidates.get(ctx, label)
	if err != nil {
		return nil, err
	}

	return search.RankChecked(query, candidates, topN)
}

func (r *RecommendUseCase) resolveTopN(requested int) int {
	if requested <= 0 {
		return r.opts.TopN
	}

	if r.opts.MaxTopN > 0 && requested > r.opts.MaxTopN {
		return r.opts.MaxTopN
	}

	return requested
}

// publish отправляет событие о рекомендации. Ошибки только логируются.
func (r *RecommendUseCase) publish(ctx context.Context, res *RecommendRes) {
	if r.producer == nil {
		return
	}

	event := &RecommendationEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UploadKey: res.UploadKey,
		Results:   make([]RecommendationPayload, 0, len(res.Recommendations)),
	}
	if res.Label != nil {
		event.Label = res.Label.String()
	}
	for _, rec := range res.Recommendations {
		event.Results = append(event.Results, RecommendationPayload{Path: rec.Path, Distance: rec.Distance})
	}

	if err := r.producer.PublishRecommendation(ctx, event); err != nil {
		r.logger.Warnf("failed to publish recommendation event: %v", err)
	}
}

// Categories возвращает категории в порядке первого появления в датасете.
func (r *RecommendUseCase) Categories() []CategoryInfo {
	all := r.averages.All()
	out := make([]CategoryInfo, 0, len(all))
	for _, avg := range all {
		out = append(out, CategoryInfo{Label: avg.Label, Count: avg.Count})
	}

	return out
}

// Mode возвращает режим конвейера.
func (r *RecommendUseCase) Mode() string {
	return r.opts.Mode
}
