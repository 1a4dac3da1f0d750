package ml_service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName   = "lookalike.ml.v1.FeatureExtractor"
	ExtractMethod = "/" + ServiceName + "/Extract"

	// Ключи метаданных запроса и ответа
	MDInputShape     = "x-input-shape"
	MDPreprocessMode = "x-preprocess-mode"
	MDModelVersion   = "x-model-version"
)

// FeatureExtractorServer — серверная сторона модели. Запрос и ответ несут
// float32 little-endian: входной тензор HWC и вектор признаков соответственно.
type FeatureExtractorServer interface {
	Extract(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func RegisterFeatureExtractorServer(s grpc.ServiceRegistrar, srv FeatureExtractorServer) {
	s.RegisterService(&featureExtractorServiceDesc, srv)
}

var featureExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeatureExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Extract",
			Handler:    extractHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lookalike/ml/v1/feature_extractor.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(FeatureExtractorServer).Extract(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExtractMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FeatureExtractorServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}

	return interceptor(ctx, in, info, handler)
}
