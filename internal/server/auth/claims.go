// Package auth implements the Signer: HS256 JWT encoding and verification of
// access and refresh token claims.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClass distinguishes short-lived access tokens from refresh tokens.
type TokenClass string

const (
	ClassAccess  TokenClass = "access"
	ClassRefresh TokenClass = "refresh"
)

// Valid reports whether c is a known class.
func (c TokenClass) Valid() bool {
	return c == ClassAccess || c == ClassRefresh
}

// Claims carries the registered JWT claims (sub, iat, exp, iss, jti) and the
// token class.
type Claims struct {
	jwt.RegisteredClaims
	Class TokenClass `json:"cls"`
}

// SubjectID returns the id of the principal the token was issued to.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// VerificationErrorKind tells a malformed token from an expired one.
type VerificationErrorKind uint8

const (
	Malformed VerificationErrorKind = iota + 1
	Expired
)

func (k VerificationErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// VerificationError is returned by Signer.Decode.
type VerificationError struct {
	Kind VerificationErrorKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }
