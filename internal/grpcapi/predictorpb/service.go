package predictorpb

import (
	"context"

	"google.golang.org/grpc"
)

// PredictorServer is the service implementation contract, equivalent to
// what protoc-gen-go-grpc would generate for api/proto/predictor.proto's
// `service Predictor`.
type PredictorServer interface {
	Predict(context.Context, *PredictRequest) (*PredictResponse, error)
	ListModels(context.Context, *ListModelsRequest) (*ListModelsResponse, error)
	Ready(context.Context, *ReadyRequest) (*ReadyResponse, error)
}

func _Predictor_Predict_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PredictRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictorServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/predictord.Predictor/Predict"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PredictorServer).Predict(ctx, req.(*PredictRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Predictor_ListModels_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListModelsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictorServer).ListModels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/predictord.Predictor/ListModels"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PredictorServer).ListModels(ctx, req.(*ListModelsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Predictor_Ready_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReadyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictorServer).Ready(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/predictord.Predictor/Ready"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PredictorServer).Ready(ctx, req.(*ReadyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for Predictor, as protoc-gen-go-grpc
// would generate it.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "predictord.Predictor",
	HandlerType: (*PredictorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: _Predictor_Predict_Handler},
		{MethodName: "ListModels", Handler: _Predictor_ListModels_Handler},
		{MethodName: "Ready", Handler: _Predictor_Ready_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "predictor.proto",
}

// RegisterPredictorServer registers srv against s, the way
// protoc-gen-go-grpc's generated RegisterPredictorServer would.
func RegisterPredictorServer(s grpc.ServiceRegistrar, srv PredictorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// PredictorClient is the generated client contract.
type PredictorClient interface {
	Predict(ctx context.Context, in *PredictRequest, opts ...grpc.CallOption) (*PredictResponse, error)
	ListModels(ctx context.Context, in *ListModelsRequest, opts ...grpc.CallOption) (*ListModelsResponse, error)
	Ready(ctx context.Context, in *ReadyRequest, opts ...grpc.CallOption) (*ReadyResponse, error)
}

type predictorClient struct {
	cc grpc.ClientConnInterface
}

// NewPredictorClient builds a PredictorClient over cc.
func NewPredictorClient(cc grpc.ClientConnInterface) PredictorClient {
	return &predictorClient{cc: cc}
}

func (c *predictorClient) Predict(ctx context.Context, in *PredictRequest, opts ...grpc.CallOption) (*PredictResponse, error) {
	out := new(PredictResponse)
	if err := c.cc.Invoke(ctx, "/predictord.Predictor/Predict", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *predictorClient) ListModels(ctx context.Context, in *ListModelsRequest, opts ...grpc.CallOption) (*ListModelsResponse, error) {
	out := new(ListModelsResponse)
	if err := c.cc.Invoke(ctx, "/predictord.Predictor/ListModels", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *predictorClient) Ready(ctx context.Context, in *ReadyRequest, opts ...grpc.CallOption) (*ReadyResponse, error) {
	out := new(ReadyResponse)
	if err := c.cc.Invoke(ctx, "/predictord.Predictor/Ready", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
