package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/repository/converter"
	"github.com/DRSN-tech/lookalike/pkg/clients"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// CacheRepo хранит средние категорий в Redis под одним ключом.
type CacheRepo struct {
	client *clients.RedisClient
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, namespace string, ttl time.Duration, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		key:    CacheKey(namespace),
		ttl:    ttl,
		logger: logger,
	}
}

// CacheKey возвращает ключ кэша для пространства имён (обычно имя датасета).
func CacheKey(namespace string) string {
	return fmt.Sprintf("%s:category_averages:v%d", namespace, converter.CacheVersion)
}

// Save сериализует средние категорий в JSON и пишет их с TTL (0 — без истечения).
func (c *CacheRepo) Save(ctx context.Context, avgs *domain.CategoryAverages, fingerprint string) error {
	data, err := converter.Marshal(avgs, fingerprint)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Load читает кэш. Промах, недоступность Redis и битые данные логируются и дают false.
func (c *CacheRepo) Load(ctx context.Context, fingerprint string) (*domain.CategoryAverages, bool) {
	data, err := c.client.Client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, r.Nil) {
			c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	avgs, storedFingerprint, err := converter.Unmarshal(data)
	if err != nil {
		c.logger.Warnf("Redis cache unmarshal failed, dropping key %s: %v", c.key, err)
		if err := c.client.Client.Del(ctx, c.key).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	if !converter.FingerprintMatches(fingerprint, storedFingerprint) {
		c.logger.Infof("Redis category cache is stale (dataset changed), recomputing")
		return nil, false
	}

	return avgs, true
}
