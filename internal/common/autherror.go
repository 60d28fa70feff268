package common

import (
	"errors"
	"fmt"
)

// AuthErrorKind classifies why a token was rejected.
type AuthErrorKind uint8

const (
	// AuthMalformed: the token does not parse or its signature does not verify.
	AuthMalformed AuthErrorKind = iota + 1
	// AuthClassMismatch: an access token was presented where a refresh token
	// is required, or the other way round.
	AuthClassMismatch
	// AuthExpired: structurally valid but past its expiry.
	AuthExpired
	// AuthRevoked: a refresh token that was logged out.
	AuthRevoked
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthMalformed:
		return "malformed"
	case AuthClassMismatch:
		return "class_mismatch"
	case AuthExpired:
		return "expired"
	case AuthRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AuthError is the error returned by the token engine for every expected
// rejection. Check it by kind with errors.As, or by category with errors.Is
// against ErrInvalidToken, ErrTokenExpired and ErrTokenRevoked.
type AuthError struct {
	Kind   AuthErrorKind
	Detail string
	Err    error
}

// NewAuthError builds an AuthError of the given kind.
func NewAuthError(kind AuthErrorKind, detail string, cause error) *AuthError {
	return &AuthError{Kind: kind, Detail: detail, Err: cause}
}

func (e *AuthError) Error() string {
	msg := "auth: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the category sentinel and the underlying cause.
func (e *AuthError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *AuthError) sentinel() error {
	switch e.Kind {
	case AuthExpired:
		return ErrTokenExpired
	case AuthRevoked:
		return ErrTokenRevoked
	default:
		return ErrInvalidToken
	}
}

// Public is the message safe to hand to API callers. Only expiry is reported
// distinctly; revocation and class mismatch look the same as a forged token.
func (e *AuthError) Public() string {
	if e.Kind == AuthExpired {
		return ErrTokenExpired.Error()
	}
	return ErrInvalidToken.Error()
}

// AuthErrorKindOf returns the kind of the first AuthError in err's chain.
func AuthErrorKindOf(err error) (AuthErrorKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
