package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestParseExpired(t *testing.T) {
	token, err := Sign("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse("not.a.token")
	assert.Error(t, err)
}

func TestSecretRotationInvalidatesTokens(t *testing.T) {
	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)

	SetSecret("rotated-secret")
	t.Cleanup(func() { SetSecret(defaultSecret) })

	_, err = Parse(token)
	assert.Error(t, err)
}
