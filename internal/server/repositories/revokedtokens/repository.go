// Package revokedtokens is the revocation store: the blacklist of logged-out
// refresh tokens. Entries are keyed by the token id (jti claim), which the
// signer requires on every token and which survives any re-encoding of the
// token string.
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository records and answers membership of revoked tokens. Every
// implementation is safe for concurrent use.
type Repository interface {
	// Revoke adds entry to the set. Revoking an already revoked token is a
	// no-op. entry.ExpiresAt bounds how long the entry has to be kept and
	// entry.RevokedAt is the caller's notion of now.
	Revoke(ctx context.Context, entry *models.RevokedToken) error

	// IsRevoked reports whether the token with tokenID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Prune drops entries whose ExpiresAt is not after now and returns how
	// many were removed.
	Prune(ctx context.Context, now time.Time) (int64, error)
}
