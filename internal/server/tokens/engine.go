// Package tokens implements the token engine: it composes the Signer and the
// revocation store into the issue, verify, refresh and logout lifecycle.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// RevocationStore is the part of the blacklist the engine needs. Tokens are
// identified by their jti claim, never by the encoded string.
type RevocationStore interface {
	Revoke(ctx context.Context, entry *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Pair bundles a short-lived access token and a long-lived refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Engine holds no mutable state of its own and is safe for concurrent use.
// Every method takes the current time explicitly.
type Engine struct {
	signer  *auth.Signer
	revoked RevocationStore
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records issue and verification outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(signer *auth.Signer, revoked RevocationStore, opts ...Option) *Engine {
	e := &Engine{signer: signer, revoked: revoked}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IssuePair mints an access and a refresh token for subjectID.
func (e *Engine) IssuePair(ctx context.Context, subjectID string, now time.Time) (*Pair, error) {
	access, err := e.signer.Issue(subjectID, auth.ClassAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := e.signer.Issue(subjectID, auth.ClassRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	e.metrics.issued(ctx, auth.ClassAccess)
	e.metrics.issued(ctx, auth.ClassRefresh)
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess returns the subject of a valid access token. Access tokens are
// never checked against the revocation store.
func (e *Engine) VerifyAccess(ctx context.Context, token string, now time.Time) (string, error) {
	claims, err := e.decode(token, auth.ClassAccess, now)
	e.metrics.verified(ctx, auth.ClassAccess, err)
	if err != nil {
		return "", err
	}
	return claims.SubjectID(), nil
}

// VerifyRefresh returns the subject of a valid, unrevoked refresh token.
func (e *Engine) VerifyRefresh(ctx context.Context, token string, now time.Time) (string, error) {
	claims, err := e.verifyRefresh(ctx, token, now)
	if err != nil {
		return "", err
	}
	return claims.SubjectID(), nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated and stays usable until logout or expiry.
func (e *Engine) Refresh(ctx context.Context, token string, now time.Time) (string, error) {
	claims, err := e.verifyRefresh(ctx, token, now)
	if err != nil {
		return "", err
	}
	access, err := e.signer.Issue(claims.SubjectID(), auth.ClassAccess, now)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	e.metrics.issued(ctx, auth.ClassAccess)
	return access, nil
}

// Logout revokes a refresh token. Malformed, expired and access tokens are
// rejected; logging out an already revoked token succeeds without writing.
func (e *Engine) Logout(ctx context.Context, token string, now time.Time) error {
	claims, err := e.verifyRefresh(ctx, token, now)
	if err != nil {
		if kind, ok := common.AuthErrorKindOf(err); ok && kind == common.AuthRevoked {
			return nil
		}
		return err
	}
	entry := &models.RevokedToken{
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: now,
	}
	if err := e.revoked.Revoke(ctx, entry); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	e.metrics.revoked(ctx)
	return nil
}

func (e *Engine) verifyRefresh(ctx context.Context, token string, now time.Time) (*auth.Claims, error) {
	claims, err := e.decode(token, auth.ClassRefresh, now)
	if err == nil {
		var revoked bool
		revoked, err = e.revoked.IsRevoked(ctx, claims.ID)
		switch {
		case err != nil:
			err = fmt.Errorf("check revocation: %w", err)
		case revoked:
			err = common.NewAuthError(common.AuthRevoked, "refresh token was logged out", nil)
		}
	}
	e.metrics.verified(ctx, auth.ClassRefresh, err)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (e *Engine) decode(token string, want auth.TokenClass, now time.Time) (*auth.Claims, error) {
	claims, err := e.signer.Decode(token, now)
	if err != nil {
		var ve *auth.VerificationError
		if errors.As(err, &ve) && ve.Kind == auth.Expired {
			return nil, common.NewAuthError(common.AuthExpired, "", ve.Err)
		}
		return nil, common.NewAuthError(common.AuthMalformed, "", err)
	}
	if claims.Class != want {
		return nil, common.NewAuthError(common.AuthClassMismatch,
			fmt.Sprintf("want %s token, got %s", want, claims.Class), nil)
	}
	return claims, nil
}
