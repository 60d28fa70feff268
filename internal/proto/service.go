package proto

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "authkeeper.session.SessionService"

const (
	SessionService_Register_FullMethodName = "/" + ServiceName + "/Register"
	SessionService_Login_FullMethodName    = "/" + ServiceName + "/Login"
	SessionService_Status_FullMethodName   = "/" + ServiceName + "/Status"
	SessionService_Refresh_FullMethodName  = "/" + ServiceName + "/Refresh"
	SessionService_Logout_FullMethodName   = "/" + ServiceName + "/Logout"
)

// SessionServiceServer is the server API for the session service.
type SessionServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
}

// SessionServiceClient is the client API for the session service.
type SessionServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
}

// RegisterSessionServiceServer attaches srv to s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    unaryHandler(SessionService_Register_FullMethodName, SessionServiceServer.Register),
		},
		{
			MethodName: "Login",
			Handler:    unaryHandler(SessionService_Login_FullMethodName, SessionServiceServer.Login),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(SessionService_Status_FullMethodName, SessionServiceServer.Status),
		},
		{
			MethodName: "Refresh",
			Handler:    unaryHandler(SessionService_Refresh_FullMethodName, SessionServiceServer.Refresh),
		},
		{
			MethodName: "Logout",
			Handler:    unaryHandler(SessionService_Logout_FullMethodName, SessionServiceServer.Logout),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}

// unaryHandler adapts a typed server method to grpc.MethodDesc.Handler,
// running it through the server's interceptor chain when one is installed.
func unaryHandler[Req, Resp any](fullMethod string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SessionServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a client for the session service on cc.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterRequest, RegisterResponse](ctx, c.cc, SessionService_Register_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, SessionService_Login_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusRequest, StatusResponse](ctx, c.cc, SessionService_Status_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshRequest, RefreshResponse](ctx, c.cc, SessionService_Refresh_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutRequest, LogoutResponse](ctx, c.cc, SessionService_Logout_FullMethodName, in, opts)
}
