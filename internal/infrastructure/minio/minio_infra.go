package minio

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/infrastructure"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/jitter"
	"github.com/DRSN-tech/lookalike/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultUploadLimit = 4
	uploadAttempts     = 3
	uploadTimeout      = 30 * time.Second
)

// MinioInfrastructure архивирует загруженные изображения в MinIO в фоне.
// Ошибки загрузки только логируются и не влияют на ответ пользователю.
type MinioInfrastructure struct {
	minioRepo   usecase.ImageRepository
	cfg         *cfg.MinIOCfg
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	sem         chan struct{}
	baseBackoff time.Duration
}

var _ usecase.UploadArchive = (*MinioInfrastructure)(nil)

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:   minioRepo,
		cfg:         cfg,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		sem:         make(chan struct{}, defaultUploadLimit),
		baseBackoff: time.Second,
	}
}

// Archive ставит изображение в очередь на загрузку и сразу возвращает ключ объекта.
func (m *MinioInfrastructure) Archive(req *usecase.ArchiveReq) string {
	imageID := uuid.NewString()
	mime := infrastructure.DetectMIME(req.MimeType, req.Data)
	ext, err := infrastructure.GetExtensionFromMIME(mime)
	if err != nil {
		m.logger.Debugf("archive: unknown mime type %q, storing as .%s", mime, ext)
	}

	objKey := path.Join(m.cfg.UploadPrefix, fmt.Sprintf("%s.%s", imageID, ext))
	image := domain.NewUploadedImage(imageID, m.cfg.BucketName, objKey, req.Data, mime)

	m.wg.Add(1)
	go m.upload(image)

	return objKey
}

// upload загружает объект с экспоненциальной задержкой и jitter между попытками.
func (m *MinioInfrastructure) upload(image *domain.UploadedImage) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.upload"

	ctx, cancel := context.WithTimeout(m.shutdownCtx, uploadTimeout)
	defer cancel()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.logger.Warnf("%s: interrupted before start, key=%s", op, image.ObjectKey)
		return
	}
	defer func() { <-m.sem }()

	for attempt := 0; attempt < uploadAttempts; attempt++ {
		_, err := m.minioRepo.Upload(ctx, image)
		if err == nil {
			m.logger.Debugf("%s: archived %s (%d bytes)", op, image.ObjectKey, image.Size)
			return
		}

		if attempt == uploadAttempts-1 {
			m.logger.Errorf(err, "%s: giving up on key=%s", op, image.ObjectKey)
			return
		}

		sleepTime := jitter.ExponentialBackoff(m.baseBackoff, uploadTimeout, attempt, jitter.DefaultJitter)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			m.logger.Warnf("%s: interrupted by shutdown during backoff, key=%s", op, image.ObjectKey)
			return
		}
	}
}

// WaitForUploads ожидает завершения всех фоновых загрузок с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForUploads(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio uploads timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
