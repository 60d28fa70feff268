package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError_IsMatchesCategory(t *testing.T) {
	tests := []struct {
		kind AuthErrorKind
		want error
		not  []error
	}{
		{AuthMalformed, ErrInvalidToken, []error{ErrTokenExpired, ErrTokenRevoked}},
		{AuthClassMismatch, ErrInvalidToken, []error{ErrTokenExpired, ErrTokenRevoked}},
		{AuthExpired, ErrTokenExpired, []error{ErrInvalidToken, ErrTokenRevoked}},
		{AuthRevoked, ErrTokenRevoked, []error{ErrInvalidToken, ErrTokenExpired}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewAuthError(tt.kind, "", nil)
			assert.ErrorIs(t, err, tt.want)
			for _, other := range tt.not {
				assert.NotErrorIs(t, err, other)
			}
		})
	}
}

func TestAuthError_UnwrapsCause(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := NewAuthError(AuthMalformed, "decode", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "auth: malformed: decode: signature is invalid", err.Error())
}

func TestAuthError_PublicHidesRevocation(t *testing.T) {
	assert.Equal(t, "invalid token", NewAuthError(AuthRevoked, "", nil).Public())
	assert.Equal(t, "invalid token", NewAuthError(AuthClassMismatch, "", nil).Public())
	assert.Equal(t, "invalid token", NewAuthError(AuthMalformed, "", nil).Public())
	assert.Equal(t, "token expired", NewAuthError(AuthExpired, "", nil).Public())
}

func TestAuthErrorKindOf(t *testing.T) {
	wrapped := fmt.Errorf("refresh: %w", NewAuthError(AuthRevoked, "", nil))

	kind, ok := AuthErrorKindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, AuthRevoked, kind)

	_, ok = AuthErrorKindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestAuthErrorKind_StringUnknown(t *testing.T) {
	assert.Equal(t, "unknown(42)", AuthErrorKind(42).String())
}
