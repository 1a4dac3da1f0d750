package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/extractor"
	ml_service "github.com/DRSN-tech/lookalike/internal/infrastructure/ml-service"
	fileRepo "github.com/DRSN-tech/lookalike/internal/repository/file"
	redisRepo "github.com/DRSN-tech/lookalike/internal/repository/redis"
	sqliteRepo "github.com/DRSN-tech/lookalike/internal/repository/sqlite"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/closer"
	"github.com/DRSN-tech/lookalike/pkg/clients"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/jimlawless/whereami"
)

// NewExtractor подключается к ML-сервису и собирает экстрактор эмбеддингов.
// Соединение регистрируется в cl.
func NewExtractor(cfg *config.Config, log logger.Logger, cl *closer.Closer) (*extractor.Extractor, error) {
	mode, err := extractor.ParseMode(cfg.Ml.PreprocessMode)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	conn, err := ml_service.Dial(cfg.Ml.Addr)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.AddSimple("ml-service connection", conn.Close)

	ml := ml_service.NewMLService(conn, cfg.Ml, log)

	return extractor.NewExtractor(ml, extractor.Config{
		InputSize:     cfg.Ml.InputSize,
		Mode:          mode,
		Serialize:     cfg.Ml.Serialize,
		MaxConcurrent: cfg.Ml.MaxConcurrent,
	}), nil
}

// NewCacheRepo создаёт кэш средних категорий по CACHE_BACKEND. Для "none" возвращает nil.
func NewCacheRepo(ctx context.Context, cfg *config.Config, log logger.Logger, cl *closer.Closer) (usecase.CacheRepository, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		return fileRepo.NewCacheRepo(cfg.Cache.Path, log), nil
	case config.CacheBackendSQLite:
		repo, err := sqliteRepo.Open(cfg.Cache.Path, log)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.AddSimple("sqlite cache", repo.Close)
		return repo, nil
	case config.CacheBackendRedis:
		client := clients.NewRedisClient(cfg.Redis)
		cl.AddSimple("redis", client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			// кэш необязателен: при недоступном redis каждый Load будет промахом
			log.Warnf("redis is unavailable, category cache will miss: %v", err)
		}

		return redisRepo.NewCacheRepo(client, cfg.Dataset.Namespace, cfg.Cache.TTL, log), nil
	default:
		return nil, nil
	}
}
