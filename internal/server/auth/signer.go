package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultIssuer is written to and required in the iss claim.
const DefaultIssuer = "authkeeper"

var (
	errEmptySecret  = errors.New("signer: empty secret key")
	errTTLTooShort  = errors.New("signer: token ttl must be at least one second")
	errEmptySubject = errors.New("empty subject")
	errMissingID    = errors.New("missing token id")
)

// Signer issues and decodes HS256-signed tokens. It is immutable after
// construction and safe for concurrent use.
type Signer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSigner validates its inputs and returns a Signer. JWT timestamps have
// second precision, so both TTLs must be at least one second for exp to stay
// strictly after iat.
func NewSigner(secret []byte, accessTTL, refreshTTL time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	if accessTTL < time.Second || refreshTTL < time.Second {
		return nil, errTTLTooShort
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{
		secret:     key,
		issuer:     DefaultIssuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// TTL returns the lifetime of tokens of the given class.
func (s *Signer) TTL(class TokenClass) time.Duration {
	if class == ClassRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue signs a token of the given class for subjectID, valid from now for
// TTL(class).
func (s *Signer) Issue(subjectID string, class TokenClass, now time.Time) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("issue token: %w", errEmptySubject)
	}
	if !class.Valid() {
		return "", fmt.Errorf("issue token: unknown class %q", class)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL(class))),
			ID:        uuid.NewString(),
		},
		Class: class,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenString as of now and
// returns its claims. Class is not checked here. Segments must be canonical
// base64url, so exactly one string verifies for a given token; claims.ID is
// required and identifies the token to the revocation store.
func (s *Signer) Decode(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &VerificationError{Kind: Expired, Err: err}
		}
		return nil, &VerificationError{Kind: Malformed, Err: err}
	}

	if claims.Subject == "" {
		return nil, &VerificationError{Kind: Malformed, Err: errEmptySubject}
	}
	if claims.ID == "" {
		return nil, &VerificationError{Kind: Malformed, Err: errMissingID}
	}
	if !claims.Class.Valid() {
		return nil, &VerificationError{Kind: Malformed, Err: fmt.Errorf("unknown class %q", claims.Class)}
	}
	return claims, nil
}

func (s *Signer) key(*jwt.Token) (any, error) {
	return s.secret, nil
}
