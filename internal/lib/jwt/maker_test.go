package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test-secret", 30*time.Minute)

	token, err := maker.GenerateToken(42, "trainer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)

	memberID, err := claims.MemberID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), memberID)
	assert.Equal(t, "trainer", claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	maker := NewJWTMaker("test-secret", -time.Minute)

	token, err := maker.GenerateToken(1, "member")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	maker := NewJWTMaker("secret-one", 30*time.Minute)
	other := NewJWTMaker("secret-two", 30*time.Minute)

	token, err := maker.GenerateToken(1, "member")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	maker := NewJWTMaker("test-secret", 30*time.Minute)

	_, err := maker.ParseToken("not.a.token")
	assert.Error(t, err)

	_, err = maker.ParseToken("")
	assert.Error(t, err)
}

func TestParseToken_NoneAlgorithmRejected(t *testing.T) {
	// Токен с alg=none не должен приниматься даже с корректными claims.
	maker := NewJWTMaker("test-secret", 30*time.Minute)

	noneToken := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiIxIiwicm9sZSI6ImFkbWluIn0."
	_, err := maker.ParseToken(noneToken)
	assert.Error(t, err)
}
