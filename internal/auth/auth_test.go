package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndValidateToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := MintToken(secret, "user-1", "alice", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := MintToken([]byte("secret-a"), "user-1", "", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := MintToken(secret, "user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(secret, token)
	assert.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = ExtractBearer("")
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, err = ExtractBearer("Basic abc123")
	assert.ErrorIs(t, err, ErrBadHeader)
}
