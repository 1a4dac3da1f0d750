package qdrant

import (
	"context"
	"sort"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/clients"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Поля payload точки
const (
	payloadPath     = "path"
	payloadLabel    = "label"
	payloadCategory = "category"
	payloadStyle    = "style"
	payloadOrdinal  = "ordinal"
)

// EmbeddingRepo репозиторий для работы с эмбеддингами датасета в Qdrant.
// Идентификатор точки — порядковый номер записи в обходе датасета.
type EmbeddingRepo struct {
	client *clients.QdrantClient
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *clients.QdrantClient, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert записывает все записи датасета батчами и удаляет точки, оставшиеся от
// прошлого, более крупного датасета. Коллекция создаётся под размерность записей.
func (q *EmbeddingRepo) Upsert(ctx context.Context, records []domain.ImageRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := clients.EnsureCollection(ctx, q.client, uint64(records[0].Embedding.Dim())); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	batch := max(q.cfg.UpsertBatchSize, 1)

	for start := 0; start < len(records); start += batch {
		end := min(start+batch, len(records))

		_, err := q.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Wait:           qdrant.PtrOf(true),
			Points:         toPoints(records[start:end], start),
		})
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	_, err := q.client.Client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewRange(payloadOrdinal, &qdrant.Range{Gte: qdrant.PtrOf(float64(len(records)))}),
			},
		}),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает topN ближайших точек по евклидову расстоянию.
// label ограничивает поиск одной категорией.
func (q *EmbeddingRepo) Search(ctx context.Context, query domain.Embedding, label *domain.Label, topN int) ([]domain.Recommendation, error) {
	if topN <= 0 {
		return []domain.Recommendation{}, nil
	}

	points, err := q.client.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(query...),
		Filter:         labelFilter(label),
		Limit:          qdrant.PtrOf(uint64(topN)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return fromScoredPoints(points), nil
}

func toPoints(records []domain.ImageRecord, offset int) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, rec := range records {
		ordinal := offset + i
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(ordinal)),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadPath:     rec.Path,
				payloadLabel:    rec.Label.String(),
				payloadCategory: rec.Label.Category,
				payloadStyle:    rec.Label.Style,
				payloadOrdinal:  int64(ordinal),
			}),
		})
	}

	return points
}

func labelFilter(label *domain.Label) *qdrant.Filter {
	if label == nil {
		return nil
	}

	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadCategory, label.Category),
			qdrant.NewMatch(payloadStyle, label.Style),
		},
	}
}

// fromScoredPoints упорядочивает ответ по расстоянию, а равные — по порядку обхода датасета,
// как и поиск в памяти.
func fromScoredPoints(points []*qdrant.ScoredPoint) []domain.Recommendation {
	type scored struct {
		rec     domain.Recommendation
		ordinal int64
	}

	items := make([]scored, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		items = append(items, scored{
			rec: domain.Recommendation{
				Path:     payload[payloadPath].GetStringValue(),
				Distance: float64(p.GetScore()),
			},
			ordinal: payload[payloadOrdinal].GetIntegerValue(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rec.Distance != items[j].rec.Distance {
			return items[i].rec.Distance < items[j].rec.Distance
		}
		return items[i].ordinal < items[j].ordinal
	})

	out := make([]domain.Recommendation, len(items))
	for i, it := range items {
		out[i] = it.rec
	}

	return out
}
