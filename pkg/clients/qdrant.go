package clients

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewQdrantClient(c *cfg.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.ApiKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    c,
	}, nil
}

// Collection возвращает имя коллекции из конфигурации.
func (c *QdrantClient) Collection() string {
	return c.cfg.QdrantCollectionName
}

func (c *QdrantClient) Close() error {
	return c.Client.Close()
}

// EnsureCollection пересоздаёт коллекцию с евклидовой метрикой, если она отсутствует
// или её размерность не совпадает с dim. Ранжирование по L2 требует Distance_Euclid.
func EnsureCollection(ctx context.Context, client *QdrantClient, dim uint64) error {
	name := client.cfg.QdrantCollectionName

	exists, err := client.Client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		info, err := client.Client.GetCollectionInfo(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to get collection info: %w", err)
		}

		params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
		if params.GetSize() == dim && params.GetDistance() == qdrant.Distance_Euclid {
			return nil
		}

		if err := client.Client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to drop stale collection: %w", err)
		}
	}

	if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Euclid,
		}),
	}); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}
