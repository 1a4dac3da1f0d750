package redis

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/pkg/clients"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "furniture:category_averages:v1", CacheKey("furniture"))
	assert.NotEqual(t, CacheKey("a"), CacheKey("b"))
}

func TestCacheRepo_Unavailable(t *testing.T) {
	client := clients.NewRedisClient(&cfg.RedisCfg{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		Timeout:     200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Client.Close() })

	repo := NewCacheRepo(client, "test", 0, logger.Nop{})
	ctx := context.Background()

	avgs := domain.NewCategoryAverages(1)
	avgs.Put(*domain.NewCategoryAverage(domain.NewLabel("A", "x"), []float32{1}, 1))

	assert.Error(t, repo.Save(ctx, avgs, ""))

	got, ok := repo.Load(ctx, "")
	assert.False(t, ok)
	assert.Nil(t, got)
}
