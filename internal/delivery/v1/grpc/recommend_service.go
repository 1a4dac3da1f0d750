package grpc

import (
	"context"
	"strconv"

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	RecommenderServiceName = "lookalike.v1.Recommender"
	RecommendMethod        = "/" + RecommenderServiceName + "/Recommend"
	CategoriesMethod       = "/" + RecommenderServiceName + "/Categories"

	// MDTopN — необязательное количество рекомендаций в метаданных запроса.
	MDTopN = "x-top-n"
)

// RecommenderServer принимает изображение как BytesValue и отвечает Struct
// той же формы, что и HTTP API.
type RecommenderServer interface {
	Recommend(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
	Categories(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

type RecommendService struct {
	uc           usecase.RecommendUC
	datasetRoot  string
	maxImageSize int
	logger       logger.Logger
}

var _ RecommenderServer = (*RecommendService)(nil)

func NewRecommendService(uc usecase.RecommendUC, datasetRoot string, maxImageSize int, logger logger.Logger) *RecommendService {
	return &RecommendService{uc: uc, datasetRoot: datasetRoot, maxImageSize: maxImageSize, logger: logger}
}

func (g *RecommendService) Recommend(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	const op = "grpc.Recommend"

	data := in.GetValue()
	if len(data) == 0 {
		return nil, status.Error(codes.InvalidArgument, e.ErrNoImage.Error())
	}
	if g.maxImageSize > 0 && len(data) > g.maxImageSize {
		return nil, status.Error(codes.ResourceExhausted, e.ErrFileTooLarge.Error())
	}

	topN, err := topNFromMetadata(ctx)
	if err != nil {
		return nil, GRPCErrorResponse(err)
	}

	res, err := g.uc.Recommend(ctx, &usecase.RecommendReq{Image: data, TopN: topN})
	if err != nil {
		resp := GRPCErrorResponse(err)
		if status.Code(resp) == codes.Internal {
			g.logger.Errorf(e.Wrap(op, err), "recommendation failed")
		} else {
			g.logger.Warnf("recommendation rejected: %v", err)
		}
		return nil, resp
	}

	out, err := toRecommendStruct(res, g.datasetRoot)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(err)
	}

	return out, nil
}

func (g *RecommendService) Categories(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cats := g.uc.Categories()

	list := make([]any, 0, len(cats))
	for _, c := range cats {
		list = append(list, map[string]any{
			"label":    c.Label.String(),
			"category": c.Label.Category,
			"style":    c.Label.Style,
			"count":    c.Count,
		})
	}

	out, err := structpb.NewStruct(map[string]any{"categories": list})
	if err != nil {
		return nil, GRPCErrorResponse(err)
	}

	return out, nil
}

func topNFromMetadata(ctx context.Context) (int, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	v := md.Get(MDTopN)
	if len(v) == 0 || v[0] == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v[0])
	if err != nil {
		return 0, e.Wrap(v[0], e.ErrInvalidTopN)
	}

	return n, nil
}

func toRecommendStruct(res *usecase.RecommendRes, root string) (*structpb.Struct, error) {
	recs := make([]any, 0, len(res.Recommendations))
	for _, rec := range res.Recommendations {
		rel := domain.RelativePath(root, rec.Path)
		recs = append(recs, map[string]any{
			"path":  rel,
			"url":   domain.DatasetURL(rel),
			"score": rec.Distance,
		})
	}

	fields := map[string]any{"recommendations": recs}
	if res.Label != nil {
		fields["label"] = res.Label.String()
		fields["category"] = res.Label.Category
		fields["style"] = res.Label.Style
	}
	if res.UploadKey != "" {
		fields["upload_key"] = res.UploadKey
	}

	return structpb.NewStruct(fields)
}

func RegisterRecommenderServer(s grpc.ServiceRegistrar, srv RecommenderServer) {
	s.RegisterService(&recommenderServiceDesc, srv)
}

var recommenderServiceDesc = grpc.ServiceDesc{
	ServiceName: RecommenderServiceName,
	HandlerType: (*RecommenderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recommend", Handler: recommendHandler},
		{MethodName: "Categories", Handler: categoriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lookalike/v1/recommender.proto",
}

func recommendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RecommenderServer).Recommend(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecommendMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecommenderServer).Recommend(ctx, req.(*wrapperspb.BytesValue))
	}

	return interceptor(ctx, in, info, handler)
}

func categoriesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RecommenderServer).Categories(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CategoriesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecommenderServer).Categories(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}
