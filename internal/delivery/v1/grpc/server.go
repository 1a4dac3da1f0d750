package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	server *grpc.Server
	cfg    *cfg.GRPCConfig
	logger logger.Logger
}

// grpcMsgOverhead — запас на поля сообщения сверх самого изображения.
const grpcMsgOverhead = 1 << 10

// NewGRPCServer создаёт сервер, принимающий сообщения размером до maxImageSize байт изображения.
func NewGRPCServer(cfg *cfg.GRPCConfig, maxImageSize int, logger logger.Logger) *GRPCServer {
	var opts []grpc.ServerOption
	if maxImageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxImageSize+grpcMsgOverhead))
	}

	return &GRPCServer{
		server: grpc.NewServer(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GRPCServer) RegisterServices(uc usecase.RecommendUC, datasetRoot string, maxImageSize int) {
	RegisterRecommenderServer(s.server, NewRecommendService(uc, datasetRoot, maxImageSize, s.logger))
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warnf("gRPC server forced to stop after timeout")
		return ctx.Err()
	}
}
