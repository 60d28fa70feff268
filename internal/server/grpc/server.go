// Package grpc exposes the session use cases over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// userSvc is the part of services.UserService the transport calls.
type userSvc interface {
	Register(ctx context.Context, email, username, password string) (*models.User, *tokens.Pair, error)
	Login(ctx context.Context, email, password string) (*tokens.Pair, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
	Status(ctx context.Context, userID string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
}

type GRPCServer struct {
	address       string
	users         userSvc
	logger        logging.Logger
	meterProvider metric.MeterProvider
}

// Option configures a GRPCServer.
type Option func(*GRPCServer)

// WithMeterProvider sends transport metrics to mp instead of the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *GRPCServer) { s.meterProvider = mp }
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, opts ...Option) *GRPCServer {
	if l == nil {
		l = logging.Nop{}
	}
	s := &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newServer builds the grpc.Server with the session and health services
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	var handlerOpts []otelgrpc.Option
	if s.meterProvider != nil {
		handlerOpts = append(handlerOpts, otelgrpc.WithMeterProvider(s.meterProvider))
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler(handlerOpts...)),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
	)

	pb.RegisterSessionServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// Serve reports ErrServerStopped when ctx was already done and
	// GracefulStop won the race.
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	<-stopped
	return nil
}
