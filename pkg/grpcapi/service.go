package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fgtconf.v1.ConfigService"

const (
	methodParse   = "/" + ServiceName + "/Parse"
	methodRender  = "/" + ServiceName + "/Render"
	methodDiff    = "/" + ServiceName + "/Diff"
	methodCurrent = "/" + ServiceName + "/Current"
)

// ConfigServiceServer is the server API for the ConfigService. Messages are
// protobuf well-known types so no generated code is needed.
type ConfigServiceServer interface {
	// Parse returns the JSON-shaped tree of a configuration.
	Parse(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Render re-writes a configuration. Fields: config (string), filter
	// (string), exclude (list of strings), redact (bool), comments (bool).
	Render(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	// Diff compares two configurations. Fields: from, to (strings).
	Diff(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	// Current returns the active configuration of the daemon's store.
	Current(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterConfigServiceServer registers srv with s.
func RegisterConfigServiceServer(s grpc.ServiceRegistrar, srv ConfigServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the ConfigService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: parseHandler},
		{MethodName: "Render", Handler: renderHandler},
		{MethodName: "Diff", Handler: diffHandler},
		{MethodName: "Current", Handler: currentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fgtconf/v1/config.proto",
}

func parseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServiceServer).Parse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodParse}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServiceServer).Parse(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func renderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServiceServer).Render(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRender}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServiceServer).Render(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func diffHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServiceServer).Diff(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDiff}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServiceServer).Diff(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func currentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServiceServer).Current(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCurrent}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServiceServer).Current(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
