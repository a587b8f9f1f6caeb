package token

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/model"
)

func TestJWT_AccessTokenRoundTrip(t *testing.T) {
	manager := NewJWT("test-secret")
	userID := uuid.New()

	tokenString, err := manager.GenerateAccessToken(userID, model.RolePremiumUser)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	gotID, gotRole, err := manager.ParseAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, model.RolePremiumUser, gotRole)
}

func TestJWT_RefreshTokenRoundTrip(t *testing.T) {
	manager := NewJWT("test-secret")
	userID := uuid.New()

	tokenString, jti, err := manager.GenerateRefreshToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	gotID, gotJTI, err := manager.ParseRefreshToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, jti, gotJTI)
}

func TestJWT_TokenTypeConfusionRejected(t *testing.T) {
	manager := NewJWT("test-secret")
	userID := uuid.New()

	access, err := manager.GenerateAccessToken(userID, model.RoleFreeUser)
	require.NoError(t, err)
	refresh, _, err := manager.GenerateRefreshToken(userID)
	require.NoError(t, err)

	_, _, err = manager.ParseRefreshToken(access)
	assert.ErrorContains(t, err, "token type mismatch")

	_, _, err = manager.ParseAccessToken(refresh)
	assert.ErrorContains(t, err, "token type mismatch")
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	manager := NewJWT("test-secret")
	other := NewJWT("other-secret")

	tokenString, err := manager.GenerateAccessToken(uuid.New(), model.RoleFreeUser)
	require.NoError(t, err)

	_, _, err = other.ParseAccessToken(tokenString)
	assert.Error(t, err)
}

func TestJWT_GarbageRejected(t *testing.T) {
	manager := NewJWT("test-secret")

	_, _, err := manager.ParseAccessToken("not.a.token")
	assert.Error(t, err)

	_, _, err = manager.ParseRefreshToken("")
	assert.Error(t, err)
}
