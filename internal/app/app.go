package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/lookalike/internal/cfg"
	v1Grpc "github.com/DRSN-tech/lookalike/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/lookalike/internal/delivery/v1/http"
	"github.com/DRSN-tech/lookalike/internal/indexer"
	"github.com/DRSN-tech/lookalike/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/lookalike/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/lookalike/internal/repository/minio"
	qdrantRepo "github.com/DRSN-tech/lookalike/internal/repository/qdrant"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/closer"
	"github.com/DRSN-tech/lookalike/pkg/clients"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	shutdownTimeout = 10 * time.Second
	initTimeout     = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	uc      *usecase.RecommendUseCase
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	archive *minioInfra.MinioInfrastructure

	// отменяется после остановки серверов, прерывая фоновые загрузки
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewApp собирает зависимости и строит индекс датасета. Серверы стартуют только в Run,
// после завершения индексации.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	a := &App{
		cfg:            cfg,
		logger:         log,
		closer:         closer.NewCloser(5 * time.Second),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	if err := a.init(context.Background()); err != nil {
		a.shutdownCancel()
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(closeCtx); cerr != nil {
			log.Warnf("failed to release resources: %v", cerr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	ex, err := NewExtractor(a.cfg, a.logger, a.closer)
	if err != nil {
		return err
	}

	cacheRepo, err := NewCacheRepo(ctx, a.cfg, a.logger, a.closer)
	if err != nil {
		return err
	}

	embeddingRepo, err := a.initQdrant()
	if err != nil {
		return err
	}

	archive, err := a.initArchive(ctx)
	if err != nil {
		return err
	}

	producer := a.initProducer()

	idx := indexer.NewIndexer(ex, a.cfg.Dataset.Workers, a.logger)

	a.uc = usecase.NewRecommendUC(
		usecase.Options{
			Root:              a.cfg.Dataset.Root,
			Mode:              a.cfg.Pipeline.Mode,
			TopN:              a.cfg.Pipeline.TopN,
			MaxTopN:           a.cfg.Pipeline.MaxTopN,
			VerifyFingerprint: a.cfg.Cache.VerifyFingerprint,
		},
		ex,
		idx,
		indexer.Fingerprint,
		cacheRepo,
		embeddingRepo,
		archive,
		producer,
		a.logger,
	)

	a.logger.Infof("building index: root=%s mode=%s search=%s cache=%s",
		a.cfg.Dataset.Root, a.cfg.Pipeline.Mode, a.cfg.Pipeline.SearchBackend, a.cfg.Cache.Backend)
	if err := a.uc.Build(ctx); err != nil {
		return err
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(a.uc, a.cfg.Dataset.Root, a.cfg.Http)
	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)

	if a.cfg.Grpc.Enabled() {
		a.grpcSrv = v1Grpc.NewGRPCServer(a.cfg.Grpc, int(a.cfg.Http.MaxUploadSize), a.logger)
		a.grpcSrv.RegisterServices(a.uc, a.cfg.Dataset.Root, int(a.cfg.Http.MaxUploadSize))
	}

	return nil
}

func (a *App) initQdrant() (usecase.EmbeddingRepository, error) {
	if a.cfg.Pipeline.SearchBackend != config.SearchBackendQdrant {
		return nil, nil
	}

	qdrantClient, err := clients.NewQdrantClient(a.cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("qdrant", qdrantClient.Close)

	return qdrantRepo.NewEmbeddingRepo(qdrantClient, a.cfg.Qdrant), nil
}

func (a *App) initArchive(ctx context.Context) (usecase.UploadArchive, error) {
	if !a.cfg.Minio.Enabled() {
		return nil, nil
	}

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(ctx, initTimeout)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, a.cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imageRepo := s3Repo.NewImageRepo(minioClient)
	a.archive = minioInfra.NewMinioInfrastructure(imageRepo, a.cfg.Minio, a.logger, a.shutdownCtx)

	return a.archive, nil
}

func (a *App) initProducer() usecase.EventProducer {
	if !a.cfg.Kafka.Enabled() {
		return nil
	}

	producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err := producer.EnsureTopic(initTimeout); err != nil {
		// топик может создаваться брокером автоматически
		a.logger.Warnf("failed to ensure kafka topic %s: %v", a.cfg.Kafka.Topic, err)
	}
	a.closer.AddSimple("kafka producer", producer.Close)

	return producer
}

// Run запускает серверы и блокируется до сигнала завершения или фатальной ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- e.Wrap("HTTP server", err)
		}
	}()

	if a.grpcSrv != nil {
		go func() {
			a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
			if err := a.grpcSrv.Start(); err != nil {
				errCh <- e.Wrap("gRPC server", err)
			}
		}()
	}

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.stop()

	return appErr
}

// === Graceful shutdown ===
func (a *App) stop() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if a.grpcSrv != nil {
		if err := a.grpcSrv.Stop(shutdownCtx); err != nil {
			a.logger.Warnf("gRPC server shutdown: %v", err)
		}
	}

	if a.archive != nil {
		if err := a.archive.WaitForUploads(shutdownCtx); err != nil {
			a.logger.Warnf("MinIO uploads did not finish before shutdown: %v", err)
		} else {
			a.logger.Infof("MinIO uploads completed")
		}
	}
	a.shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("resource close error: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
}
