// Service descriptor for metricshape.v1.Transformer. Messages are protobuf
// well-known types, so no message code is generated for this service.

package pb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"
)

const _ = grpc.SupportPackageIsVersion9

const (
	Transformer_Transform_FullMethodName       = "/metricshape.v1.Transformer/Transform"
	Transformer_TransformStream_FullMethodName = "/metricshape.v1.Transformer/TransformStream"
)

type TransformerClient interface {
	Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	TransformStream(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[wrapperspb.StringValue, wrapperspb.StringValue], error)
}

type transformerClient struct {
	cc grpc.ClientConnInterface
}

func NewTransformerClient(cc grpc.ClientConnInterface) TransformerClient {
	return &transformerClient{cc}
}

func (c *transformerClient) Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, Transformer_Transform_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transformerClient) TransformStream(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[wrapperspb.StringValue, wrapperspb.StringValue], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	stream, err := c.cc.NewStream(ctx, &Transformer_ServiceDesc.Streams[0], Transformer_TransformStream_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.StringValue, wrapperspb.StringValue]{ClientStream: stream}
	return x, nil
}

type Transformer_TransformStreamClient = grpc.BidiStreamingClient[wrapperspb.StringValue, wrapperspb.StringValue]

type TransformerServer interface {
	Transform(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	TransformStream(grpc.BidiStreamingServer[wrapperspb.StringValue, wrapperspb.StringValue]) error
	mustEmbedUnimplementedTransformerServer()
}

type UnimplementedTransformerServer struct{}

func (UnimplementedTransformerServer) Transform(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Transform not implemented")
}
func (UnimplementedTransformerServer) TransformStream(grpc.BidiStreamingServer[wrapperspb.StringValue, wrapperspb.StringValue]) error {
	return status.Errorf(codes.Unimplemented, "method TransformStream not implemented")
}
func (UnimplementedTransformerServer) mustEmbedUnimplementedTransformerServer() {}
func (UnimplementedTransformerServer) testEmbeddedByValue()                     {}

type Transformer_TransformStreamServer = grpc.BidiStreamingServer[wrapperspb.StringValue, wrapperspb.StringValue]

func RegisterTransformerServer(s grpc.ServiceRegistrar, srv TransformerServer) {
	if t, ok := srv.(interface{ testEmbeddedByValue() }); ok {
		t.testEmbeddedByValue()
	}
	s.RegisterService(&Transformer_ServiceDesc, srv)
}

func _Transformer_Transform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerServer).Transform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Transformer_Transform_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformerServer).Transform(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transformer_TransformStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TransformerServer).TransformStream(&grpc.GenericServerStream[wrapperspb.StringValue, wrapperspb.StringValue]{ServerStream: stream})
}

var Transformer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "metricshape.v1.Transformer",
	HandlerType: (*TransformerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transform",
			Handler:    _Transformer_Transform_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "TransformStream",
			Handler:       _Transformer_TransformStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "v1/transformer.proto",
}
