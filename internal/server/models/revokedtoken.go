package models

import "time"

// RevokedToken is a blacklist entry for a logged-out refresh token. TokenID is
// the token's jti claim. ExpiresAt is the token's own expiry, after which the
// entry can be pruned; RevokedAt is the logout time.
type RevokedToken struct {
	TokenID   string
	ExpiresAt time.Time
	RevokedAt time.Time
}
