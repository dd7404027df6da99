package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("s3cret")

	t.Run("ValidToken", func(t *testing.T) {
		token, err := v.Issue("user-1", time.Hour)
		require.NoError(t, err)
		claims, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewTokenVerifier("other").Issue("user-1", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := v.Issue("user-1", -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithmRejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := v.Verify("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = BearerToken("Basic abc")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestSession(t *testing.T) {
	v := NewTokenVerifier("s3cret")
	token, _ := v.Issue("user-9", time.Hour)

	s, err := NewSession(v, token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", s.UserID())

	anon, err := NewSession(v, "")
	require.NoError(t, err)
	assert.Equal(t, "", anon.UserID())

	_, err = NewSession(v, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	ctx := WithUserID(context.Background(), "user-9")
	assert.Equal(t, "user-9", UserIDFromContext(ctx))
	assert.Equal(t, "", UserIDFromContext(context.Background()))
}
