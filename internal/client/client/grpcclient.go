package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// accessTokenMethods are the calls authenticated with the access token.
var accessTokenMethods = map[string]bool{
	pb.SessionService_Status_FullMethodName: true,
}

type GRPCClient struct {
	endpointURL  string
	conn         *grpc.ClientConn
	client       pb.SessionServiceClient
	accessToken  string
	refreshToken string
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationHeaderName)
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, refreshes it once and retries the call.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if !accessTokenMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withBearer(ctx, s.accessToken), method, req, reply, cc, opts...)
	if !isExpired(err) || s.refreshToken == "" {
		return err
	}

	if err := s.refresh(ctx); err != nil {
		return err
	}

	// tokens refreshed, retrying with the new access token
	return invoker(withBearer(ctx, s.accessToken), method, req, reply, cc, opts...)
}

func isExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func NewAuthKeeperClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewSessionServiceClient(conn)
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email, username, password string) error {

	req := &pb.RegisterRequest{Email: email, Username: username, Password: password}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken

	return nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) error {

	req := &pb.LoginRequest{Email: email, Password: password}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken

	return nil
}

func (s *GRPCClient) Status(ctx context.Context) (*pb.StatusResponse, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.Status(ctx, &pb.StatusRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Refresh replaces the access token using the stored refresh token.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if err := s.refresh(ctx); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) refresh(ctx context.Context) error {
	resp, err := s.client.Refresh(withBearer(ctx, s.refreshToken), &pb.RefreshRequest{})
	if err != nil {
		return err
	}
	s.accessToken = resp.AccessToken
	return nil
}

// Logout revokes the refresh token on the server and forgets both tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}

	if _, err := s.client.Logout(withBearer(ctx, s.refreshToken), &pb.LogoutRequest{}); err != nil {
		return s.mapError(err)
	}

	s.accessToken = ""
	s.refreshToken = ""
	return nil
}

func (s *GRPCClient) LoggedIn() bool {
	return s.refreshToken != ""
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
