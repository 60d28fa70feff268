// Package client talks to the authkeeper session service.
//
// GRPCClient keeps the token pair returned by Register or Login, attaches
// the access token to calls that need it and transparently refreshes it once
// when the server reports it expired. gRPC status codes are mapped to the
// sentinel errors in errors.go so callers can use errors.Is.
package client
