package client

import (
	"context"

	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
)

type Client interface {
	Close() error
	Register(ctx context.Context, email, username, password string) error
	Login(ctx context.Context, email, password string) error
	Status(ctx context.Context) (*pb.StatusResponse, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LoggedIn() bool
}
