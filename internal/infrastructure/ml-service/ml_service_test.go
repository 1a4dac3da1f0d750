package ml_service

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/extractor"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/DRSN-tech/lookalike/pkg/vecenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// sumServer возвращает [сумма тензора, число элементов] и падает первые failures раз.
type sumServer struct {
	calls    atomic.Int64
	failures int64
	failCode codes.Code
	shape    atomic.Value
}

func (s *sumServer) Extract(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return nil, status.Error(s.failCode, "model warming up")
	}

	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(MDInputShape); len(v) > 0 {
		s.shape.Store(v[0])
	}

	tensor, err := vecenc.Decode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var sum float32
	for _, v := range tensor {
		sum += v
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(MDModelVersion, "effnet-b0")); err != nil {
		return nil, err
	}

	return wrapperspb.Bytes(vecenc.Encode([]float32{sum, float32(len(tensor))})), nil
}

func newTestService(t *testing.T, srv FeatureExtractorServer, retries int) *MLService {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterFeatureExtractorServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m := NewMLService(conn, &cfg.MLServiceCfg{
		MaxConcurrent: 2,
		MaxRetries:    retries,
		CallTimeout:   time.Second,
	}, logger.Nop{})
	m.baseBackoff = time.Millisecond
	m.maxBackoff = 5 * time.Millisecond

	return m
}

func TestMLService_Infer(t *testing.T) {
	srv := &sumServer{}
	m := newTestService(t, srv, 3)

	shape := extractor.Shape{Height: 1, Width: 2, Channels: 3}
	out, err := m.Infer(context.Background(), []float32{1, 2, 3, 4, 5, 6}, shape, extractor.ModeRaw)
	require.NoError(t, err)

	assert.Equal(t, []float32{21, 6}, out)
	assert.Equal(t, "effnet-b0", m.ModelVersion())
	assert.Equal(t, "1,2,3", srv.shape.Load())
}

func TestMLService_RetriesTransientErrors(t *testing.T) {
	srv := &sumServer{failures: 2, failCode: codes.Unavailable}
	m := newTestService(t, srv, 3)

	out, err := m.Infer(context.Background(), []float32{1}, extractor.Shape{Height: 1, Width: 1, Channels: 1}, extractor.ModeRaw)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, out)
	assert.EqualValues(t, 3, srv.calls.Load())
}

func TestMLService_GivesUpAfterMaxRetries(t *testing.T) {
	srv := &sumServer{failures: 10, failCode: codes.Unavailable}
	m := newTestService(t, srv, 2)

	_, err := m.Infer(context.Background(), []float32{1}, extractor.Shape{Height: 1, Width: 1, Channels: 1}, extractor.ModeRaw)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.EqualValues(t, 2, srv.calls.Load())
}

func TestMLService_DoesNotRetryPermanentErrors(t *testing.T) {
	srv := &sumServer{failures: 10, failCode: codes.InvalidArgument}
	m := newTestService(t, srv, 5)

	_, err := m.Infer(context.Background(), []float32{1}, extractor.Shape{Height: 1, Width: 1, Channels: 1}, extractor.ModeRaw)
	require.Error(t, err)
	assert.EqualValues(t, 1, srv.calls.Load())
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("224,224,3")
	require.NoError(t, err)
	assert.Equal(t, extractor.Shape{Height: 224, Width: 224, Channels: 3}, s)
	assert.Equal(t, 224*224*3, s.Len())

	_, err = ParseShape("224x224")
	assert.Error(t, err)
}
