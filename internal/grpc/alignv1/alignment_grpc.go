// Package alignv1 exposes the clock alignment service over gRPC. Requests and
// responses travel as google.protobuf.Struct documents; the field layout of
// each document is described on the AlignmentServer methods.
package alignv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fntalign.v1.AlignmentService"

const (
	FitFullMethodName        = "/" + ServiceName + "/Fit"
	RemapFullMethodName      = "/" + ServiceName + "/Remap"
	GetModelFullMethodName   = "/" + ServiceName + "/GetModel"
	ListModelsFullMethodName = "/" + ServiceName + "/ListModels"
)

// AlignmentServer is the server API for the alignment service.
type AlignmentServer interface {
	// Fit takes {session, reference_edges, target_edges} or
	// {session, reference_log, target_log} (logs are [{timestamp, state}]) plus an
	// optional mismatch_policy, and returns the fitted model summary.
	Fit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Remap takes {session, timestamps} and returns {session, model_id, timestamps}.
	// Missing values travel as null in both directions.
	Remap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetModel takes {session} and returns the stored model with its edges.
	GetModel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListModels returns {sessions} for every stored model.
	ListModels(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAlignmentServer can be embedded to keep implementations forward compatible.
type UnimplementedAlignmentServer struct{}

func (UnimplementedAlignmentServer) Fit(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Fit not implemented")
}

func (UnimplementedAlignmentServer) Remap(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Remap not implemented")
}

func (UnimplementedAlignmentServer) GetModel(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetModel not implemented")
}

func (UnimplementedAlignmentServer) ListModels(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListModels not implemented")
}

// RegisterAlignmentServer attaches srv to a gRPC service registrar.
func RegisterAlignmentServer(s grpc.ServiceRegistrar, srv AlignmentServer) {
	s.RegisterService(&AlignmentService_ServiceDesc, srv)
}

type unaryMethod func(AlignmentServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AlignmentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AlignmentServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AlignmentService_ServiceDesc is the grpc.ServiceDesc for the alignment service.
var AlignmentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlignmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Fit", Handler: unaryHandler(FitFullMethodName, AlignmentServer.Fit)},
		{MethodName: "Remap", Handler: unaryHandler(RemapFullMethodName, AlignmentServer.Remap)},
		{MethodName: "GetModel", Handler: unaryHandler(GetModelFullMethodName, AlignmentServer.GetModel)},
		{MethodName: "ListModels", Handler: unaryHandler(ListModelsFullMethodName, AlignmentServer.ListModels)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fntalign/v1/alignment.proto",
}

// AlignmentClient is the client API for the alignment service.
type AlignmentClient interface {
	Fit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Remap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetModel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListModels(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type alignmentClient struct {
	cc grpc.ClientConnInterface
}

// NewAlignmentClient wraps a client connection.
func NewAlignmentClient(cc grpc.ClientConnInterface) AlignmentClient {
	return &alignmentClient{cc: cc}
}

func (c *alignmentClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *alignmentClient) Fit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FitFullMethodName, in, opts...)
}

func (c *alignmentClient) Remap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RemapFullMethodName, in, opts...)
}

func (c *alignmentClient) GetModel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetModelFullMethodName, in, opts...)
}

func (c *alignmentClient) ListModels(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListModelsFullMethodName, in, opts...)
}
