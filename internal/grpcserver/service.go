package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "frs.profile.v1.ImportService"

// ImportServiceServer is the server API. Requests and responses are
// google.protobuf.Struct so no generated code is needed.
type ImportServiceServer interface {
	Preview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Process(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Merge(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ImportServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ImportServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ImportServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes ImportService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ImportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Preview", ImportServiceServer.Preview),
		unary("Process", ImportServiceServer.Process),
		unary("Merge", ImportServiceServer.Merge),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "frs/profile/v1/import_service.proto",
}

// Client calls ImportService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Preview(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Preview", in, opts...)
}

func (c *Client) Process(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Process", in, opts...)
}

func (c *Client) Merge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Merge", in, opts...)
}
