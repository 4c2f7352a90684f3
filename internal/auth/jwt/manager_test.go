package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func TestManager_GenerateAndValidate(t *testing.T) {
	manager := NewManager(testSecret, "corpsite", 15*time.Minute)

	token, claims, err := manager.GenerateAccessToken("admin-1", "admin", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, claims.ID)

	parsed, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", parsed.AdminID)
	assert.Equal(t, "admin", parsed.Username)
	assert.Equal(t, "admin", parsed.Role)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestManager_ValidateToken(t *testing.T) {
	manager := NewManager(testSecret, "corpsite", 15*time.Minute)

	t.Run("格式错误", func(t *testing.T) {
		_, err := manager.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("密钥不匹配", func(t *testing.T) {
		other := NewManager("another-secret-that-is-at-least-32-chars", "corpsite", time.Minute)
		token, _, err := other.GenerateAccessToken("admin-1", "admin", "admin")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("签发者不匹配", func(t *testing.T) {
		other := NewManager(testSecret, "someone-else", time.Minute)
		token, _, err := other.GenerateAccessToken("admin-1", "admin", "admin")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("已过期", func(t *testing.T) {
		past := NewManager(testSecret, "corpsite", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.GenerateAccessToken("admin-1", "admin", "admin")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}
