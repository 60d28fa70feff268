package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	user, pair, err := s.users.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.RegisterResponse{
		UserId:       user.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {

	pair, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.LoginResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Status(ctx context.Context, _ *pb.StatusRequest) (*pb.StatusResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	user, err := s.users.Status(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.StatusResponse{
		UserId:       user.ID,
		Email:        user.Email,
		Username:     user.UserName,
		Admin:        user.Admin,
		RegisteredOn: timestamppb.New(user.RegisteredOn),
	}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, _ *pb.RefreshRequest) (*pb.RefreshResponse, error) {

	refreshToken, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	access, err := s.users.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.RefreshResponse{AccessToken: access}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *pb.LogoutRequest) (*pb.LogoutResponse, error) {

	refreshToken, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.users.Logout(ctx, refreshToken); err != nil {
		return nil, toStatus(err)
	}

	return &pb.LogoutResponse{}, nil
}

// toStatus maps service errors to gRPC statuses. Token rejections only
// expose AuthError.Public so revoked and forged tokens look the same.
func toStatus(err error) error {
	var ae *common.AuthError
	switch {
	case errors.As(err, &ae):
		return status.Error(codes.Unauthenticated, ae.Public())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
