package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken(42, common.RoleAdmin, "sid-1", secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, common.RoleAdmin, claims.Role)
	assert.Equal(t, "sid-1", claims.SessionID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(1, common.RoleUser, "sid", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("wrong"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(1, common.RoleUser, "sid", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", []byte("secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
