// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and the session calls that
// delegate to the token engine.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/clock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// CredentialVerifier hashes and checks passwords. cryptox.BcryptHasher is the
// production implementation.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// UserService provides the session use cases:
// - Register: create users and hand out a first token pair
// - Login: verify credentials and mint tokens
// - Authenticate, Refresh, Logout: token engine calls at the current time
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      *tokens.Engine
	hasher      CredentialVerifier
	clock       clock.Clock
	log         logging.Logger
}

// NewUserService wires a UserService. A nil logger discards output.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, engine *tokens.Engine,
	hasher CredentialVerifier, c clock.Clock, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		engine:      engine,
		hasher:      hasher,
		clock:       c,
		log:         log.With("module", "services.user"),
	}
}

// Register creates a user and returns it along with a fresh token pair. The
// uniqueness check and the insert run in one transaction; an existing email or
// username yields common.ErrorConflict.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*models.User, *tokens.Pair, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if err := validateRegistration(email, username, password); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, cryptox.ErrPasswordTooLong) {
			return nil, nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		return nil, nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.FindByEmailOrUsername(ctx, email, username)
		switch {
		case err == nil:
			return common.ErrorConflict
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error searching user: %w", err)
		}

		user, err = repo.Create(ctx, &models.User{Email: email, UserName: username, PasswordHash: hash})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrorConflict) {
			s.log.Error(ctx, "register failed", "error", err)
		}
		return nil, nil, err
	}

	pair, err := s.engine.IssuePair(ctx, user.ID, s.clock.Now())
	if err != nil {
		s.log.Error(ctx, "issue token pair", "user_id", user.ID, "error", err)
		return nil, nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, pair, nil
}

// Login checks email and password and, on success, returns a new token pair.
// Unknown emails and wrong passwords are both common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*tokens.Pair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "login lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.engine.IssuePair(ctx, user.ID, s.clock.Now())
	if err != nil {
		s.log.Error(ctx, "issue token pair", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// Authenticate returns the subject of a valid access token.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	userID, err := s.engine.VerifyAccess(ctx, accessToken, s.clock.Now())
	if err != nil {
		s.logTokenError(ctx, "access token rejected", err)
		return "", err
	}
	return userID, nil
}

// Status returns the identity behind an authenticated user id. A user that
// disappeared after its token was issued is common.ErrorUnauthorized.
func (s *UserService) Status(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "status lookup failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}

// Refresh mints a new access token from a refresh token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	access, err := s.engine.Refresh(ctx, refreshToken, s.clock.Now())
	if err != nil {
		s.logTokenError(ctx, "refresh rejected", err)
		return "", err
	}
	return access, nil
}

// Logout revokes a refresh token.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.engine.Logout(ctx, refreshToken, s.clock.Now()); err != nil {
		s.logTokenError(ctx, "logout rejected", err)
		return err
	}
	return nil
}

// logTokenError logs auth rejections at debug with their kind only and
// anything else at error.
func (s *UserService) logTokenError(ctx context.Context, msg string, err error) {
	if kind, ok := common.AuthErrorKindOf(err); ok {
		s.log.Debug(ctx, msg, "kind", kind.String())
		return
	}
	s.log.Error(ctx, msg, "error", err)
}

func validateRegistration(email, username, password string) error {
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return fmt.Errorf("%w: email is invalid", common.ErrorValidation)
	case username == "":
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	case len(password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	return nil
}
