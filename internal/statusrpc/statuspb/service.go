// Package statuspb defines the wire contract for the status/introspection
// service as a hand-written grpc.ServiceDesc over the well-known
// structpb/emptypb types, rather than committing generated protoc output
// the module can't regenerate in this environment. The RPC shape mirrors
// the teacher's MetricsSnapshot read-model service in cmd/peer.go and
// cmd/leader.go, narrowed to a single unary call.
package statuspb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatusServer is implemented by the status RPC's handler.
type StatusServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func _Status_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/clustersched.Status/GetStatus",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StatusServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is registered against a *grpc.Server to serve the one
// GetStatus unary RPC under the clustersched.Status service name.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "clustersched.Status",
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    _Status_GetStatus_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clustersched/status.proto",
}

// RegisterStatusServer registers srv on s under the Status service name.
func RegisterStatusServer(s grpc.ServiceRegistrar, srv StatusServer) {
	s.RegisterService(&ServiceDesc, srv)
}
