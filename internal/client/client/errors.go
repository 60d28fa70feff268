package client

import "errors"

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrAlreadyExists  = errors.New("user already exists")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotLoggedIn    = errors.New("not logged in")
)
