package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "groundskeeper.territory.v1.TerritoryService"

// TerritoryServer is the server API for the territory service.
type TerritoryServer interface {
	MatchEntity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignEntity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ManualAssign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignmentHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReassignEntities(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TerritoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes TerritoryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TerritoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "MatchEntity", Handler: unaryHandler("MatchEntity", TerritoryServer.MatchEntity)},
		{MethodName: "AssignEntity", Handler: unaryHandler("AssignEntity", TerritoryServer.AssignEntity)},
		{MethodName: "ManualAssign", Handler: unaryHandler("ManualAssign", TerritoryServer.ManualAssign)},
		{MethodName: "AssignmentHistory", Handler: unaryHandler("AssignmentHistory", TerritoryServer.AssignmentHistory)},
		{MethodName: "ReassignEntities", Handler: unaryHandler("ReassignEntities", TerritoryServer.ReassignEntities)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "groundskeeper/territory/v1/territory.proto",
}

// RegisterTerritoryServer registers srv on s.
func RegisterTerritoryServer(s grpc.ServiceRegistrar, srv TerritoryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the /service/method path for a method name.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TerritoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TerritoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls TerritoryService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
