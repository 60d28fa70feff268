// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

// AuthorizationHeaderName is the gRPC metadata key that carries bearer tokens.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token inside the authorization header value.
const BearerPrefix = "Bearer "
