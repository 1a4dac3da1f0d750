package ml_service

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/extractor"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/jitter"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/DRSN-tech/lookalike/pkg/vecenc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MLService клиент для взаимодействия с внешним ML-сервисом. Реализует extractor.Model.
type MLService struct {
	conn        grpc.ClientConnInterface
	sem         chan struct{}
	maxRetries  int
	callTimeout time.Duration
	baseBackoff time.Duration
	maxBackoff  time.Duration
	version     atomic.Value
	logger      logger.Logger
}

var _ extractor.Model = (*MLService)(nil)

// Dial открывает соединение с ML-сервисом. Соединение ленивое: первый вызов устанавливает его.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, e.Wrap("ml_service.Dial", err)
	}

	return conn, nil
}

func NewMLService(conn grpc.ClientConnInterface, c *cfg.MLServiceCfg, logger logger.Logger) *MLService {
	maxConcurrent := max(c.MaxConcurrent, 1)
	maxRetries := max(c.MaxRetries, 1)

	return &MLService{
		conn:        conn,
		sem:         make(chan struct{}, maxConcurrent),
		maxRetries:  maxRetries,
		callTimeout: c.CallTimeout,
		baseBackoff: 1 * time.Second,
		maxBackoff:  30 * time.Second,
		logger:      logger,
	}
}

// ModelVersion возвращает версию модели из последнего успешного ответа.
func (m *MLService) ModelVersion() string {
	v, _ := m.version.Load().(string)
	return v
}

// Infer выполняет инференс с retry-логикой и экспоненциальной задержкой.
// Повторяются только временные ошибки транспорта.
func (m *MLService) Infer(ctx context.Context, tensor []float32, shape extractor.Shape, mode extractor.Mode) ([]float32, error) {
	const op = "MLService.Infer"

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, e.Wrap(op, ctx.Err())
	}
	defer func() { <-m.sem }()

	payload := vecenc.Encode(tensor)

	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		vector, err := m.call(ctx, payload, shape, mode)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, e.Wrap(op, err)
		}

		if attempt == m.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			m.baseBackoff,
			m.maxBackoff,
			attempt,
			jitter.DefaultJitter,
		)

		m.logger.Warnf("inference failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", m.maxRetries, lastErr))
}

func (m *MLService) call(ctx context.Context, payload []byte, shape extractor.Shape, mode extractor.Mode) ([]float32, error) {
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	ctx = metadata.AppendToOutgoingContext(ctx,
		MDInputShape, formatShape(shape),
		MDPreprocessMode, string(mode),
	)

	var header metadata.MD
	out := new(wrapperspb.BytesValue)
	if err := m.conn.Invoke(ctx, ExtractMethod, wrapperspb.Bytes(payload), out, grpc.Header(&header)); err != nil {
		return nil, err
	}

	if v := header.Get(MDModelVersion); len(v) > 0 {
		m.version.Store(v[0])
	}

	vector, err := vecenc.Decode(out.GetValue())
	if err != nil {
		return nil, status.Error(codes.DataLoss, err.Error())
	}

	return vector, nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

func formatShape(s extractor.Shape) string {
	return strconv.Itoa(s.Height) + "," + strconv.Itoa(s.Width) + "," + strconv.Itoa(s.Channels)
}

// ParseShape разбирает значение метаданных x-input-shape.
func ParseShape(v string) (extractor.Shape, error) {
	var s extractor.Shape
	if _, err := fmt.Sscanf(v, "%d,%d,%d", &s.Height, &s.Width, &s.Channels); err != nil {
		return extractor.Shape{}, fmt.Errorf("invalid input shape %q: %w", v, err)
	}

	return s, nil
}
