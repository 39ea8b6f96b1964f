package services

import (
	"testing"
	"time"

	"legalflow/config"
	"legalflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  5 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func TestPasswordHashing(t *testing.T) {
	password := "SecretPass123!"

	hash, err := HashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, VerifyPassword(hash, password))
	assert.False(t, VerifyPassword(hash, "WrongPass"))
}

func TestAuthenticate(t *testing.T) {
	database := setupTestDB(t)
	hash, _ := HashPassword("correct-horse")
	user := &models.User{Name: "Ana", Email: "ana@example.com", Password: hash, Role: models.RoleAdmin, IsActive: true}
	mustCreate(t, database, user)

	t.Run("ValidCredentials", func(t *testing.T) {
		got, err := Authenticate(database, " ANA@example.com ", "correct-horse", fixedNow())
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotNil(t, got.LastLoginAt)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := Authenticate(database, "ana@example.com", "nope", fixedNow())
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := Authenticate(database, "ghost@example.com", "correct-horse", fixedNow())
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		require.NoError(t, database.Model(user).Update("is_active", false).Error)
		_, err := Authenticate(database, "ana@example.com", "correct-horse", fixedNow())
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestTokenLifecycle(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	user := &models.User{Name: "Bia", Email: "bia@example.com", Password: "x", Role: models.RoleLawyer, IsActive: true}
	mustCreate(t, database, user)

	now := time.Now()
	pair, err := IssueTokens(cfg, user, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5*3600), pair.ExpiresIn)

	claims, err := ParseToken(cfg, pair.Access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	t.Run("WrongType", func(t *testing.T) {
		_, err := ParseToken(cfg, pair.Refresh, TokenTypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := testConfig()
		other.JWTSecret = "another-secret-another-secret-xx"
		_, err := ParseToken(other, pair.Access, TokenTypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		old, err := IssueTokens(cfg, user, now.Add(-6*time.Hour))
		require.NoError(t, err)
		_, err = ParseToken(cfg, old.Access, TokenTypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Refresh", func(t *testing.T) {
		next, err := RefreshTokens(database, cfg, pair.Refresh, now)
		require.NoError(t, err)
		assert.NotEmpty(t, next.Access)

		_, err = RefreshTokens(database, cfg, pair.Access, now)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestChangePassword(t *testing.T) {
	database := setupTestDB(t)
	hash, _ := HashPassword("old-password")
	user := &models.User{Name: "Caio", Email: "caio@example.com", Password: hash, IsActive: true}
	mustCreate(t, database, user)

	assert.True(t, IsValidation(ChangePassword(database, user, "wrong", "new-password")))
	assert.True(t, IsValidation(ChangePassword(database, user, "old-password", "short")))
	require.NoError(t, ChangePassword(database, user, "old-password", "new-password"))
	assert.True(t, VerifyPassword(user.Password, "new-password"))
}
