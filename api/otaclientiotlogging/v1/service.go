package v1

import (
	"context"

	"google.golang.org/grpc"
)

// Server is the interface implementations of OTAClientIoTLoggingService
// must satisfy.
type Server interface {
	Check(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error)
	PutLog(ctx context.Context, req *PutLogRequest) (*PutLogResponse, error)
}

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/otaclientiotlogging.v1.OTAClientIoTLoggingService/Check"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Check(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func putLogHandlerDesc(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PutLogRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).PutLog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/otaclientiotlogging.v1.OTAClientIoTLoggingService/PutLog"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).PutLog(ctx, req.(*PutLogRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for OTAClientIoTLoggingService,
// written by hand in place of protoc-gen-go-grpc output.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "otaclientiotlogging.v1.OTAClientIoTLoggingService",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: checkHandler},
		{MethodName: "PutLog", Handler: putLogHandlerDesc},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otaclientiotlogging/v1/service.proto",
}

// RegisterOTAClientIoTLoggingServiceServer registers srv on s.
func RegisterOTAClientIoTLoggingServiceServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

// OTAClientIoTLoggingServiceClient is the client API for
// OTAClientIoTLoggingService, written by hand in place of
// protoc-gen-go-grpc output.
type OTAClientIoTLoggingServiceClient interface {
	Check(ctx context.Context, req *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
	PutLog(ctx context.Context, req *PutLogRequest, opts ...grpc.CallOption) (*PutLogResponse, error)
}

type otaClientIoTLoggingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOTAClientIoTLoggingServiceClient builds a client bound to cc. Callers
// that did not dial with grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{}))
// must pass grpc.ForceCodec(Codec{}) as a per-call option, since the message
// types are plain structs rather than proto.Message.
func NewOTAClientIoTLoggingServiceClient(cc grpc.ClientConnInterface) OTAClientIoTLoggingServiceClient {
	return &otaClientIoTLoggingServiceClient{cc: cc}
}

func (c *otaClientIoTLoggingServiceClient) Check(ctx context.Context, req *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.cc.Invoke(ctx, "/otaclientiotlogging.v1.OTAClientIoTLoggingService/Check", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *otaClientIoTLoggingServiceClient) PutLog(ctx context.Context, req *PutLogRequest, opts ...grpc.CallOption) (*PutLogResponse, error) {
	out := new(PutLogResponse)
	if err := c.cc.Invoke(ctx, "/otaclientiotlogging.v1.OTAClientIoTLoggingService/PutLog", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
