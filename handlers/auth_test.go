package handlers

import (
	"net/http"
	"testing"

	"legalflow/models"
	"legalflow/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObtainToken(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")

	t.Run("valid credentials", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/auth/token", nil, map[string]string{
			"email":    f.lawyer.Email,
			"password": testPassword,
		})
		expectStatus(t, rec, http.StatusOK)

		var pair services.TokenPair
		decode(t, rec, &pair)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
		assert.Greater(t, pair.ExpiresIn, int64(0))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/auth/token", nil, map[string]string{
			"email":    f.lawyer.Email,
			"password": "errada",
		})
		expectStatus(t, rec, http.StatusUnauthorized)
		assert.Equal(t, "Invalid email or password", errorMessage(t, rec))
	})

	t.Run("missing email", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/auth/token", nil, map[string]string{"password": testPassword})
		expectStatus(t, rec, http.StatusBadRequest)
		assert.Contains(t, errorMessage(t, rec), "'email'")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/auth/token", nil, "{")
		expectStatus(t, rec, http.StatusBadRequest)
	})
}

func TestRefreshToken(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")

	rec := do(t, e, http.MethodPost, "/api/auth/token", nil, map[string]string{
		"email":    f.admin.Email,
		"password": testPassword,
	})
	expectStatus(t, rec, http.StatusOK)
	var pair services.TokenPair
	decode(t, rec, &pair)

	rec = do(t, e, http.MethodPost, "/api/auth/refresh", nil, map[string]string{"refresh": pair.Refresh})
	expectStatus(t, rec, http.StatusOK)

	// An access token is not accepted as a refresh token
	rec = do(t, e, http.MethodPost, "/api/auth/refresh", nil, map[string]string{"refresh": pair.Access})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCurrentUser(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")

	rec := do(t, e, http.MethodGet, "/api/auth/me", f.finance, nil)
	expectStatus(t, rec, http.StatusOK)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, f.finance.Email, body["email"])
	caps, ok := body["capabilities"].(map[string]interface{})
	require.True(t, ok, "capabilities missing: %v", body)
	assert.Equal(t, true, caps["manage_finance"])
	assert.Equal(t, false, caps["manage_cases"])

	rec = do(t, e, http.MethodGet, "/api/auth/me", nil, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestChangePassword(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")

	rec := do(t, e, http.MethodPost, "/api/auth/password", f.intern, map[string]string{
		"current_password": "errada",
		"new_password":     "nova-senha-forte",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, errorMessage(t, rec), "current_password")

	rec = do(t, e, http.MethodPost, "/api/auth/password", f.intern, map[string]string{
		"current_password": testPassword,
		"new_password":     "nova-senha-forte",
	})
	expectStatus(t, rec, http.StatusNoContent)

	var stored models.User
	require.NoError(t, database.First(&stored, "id = ?", f.intern.ID).Error)
	assert.True(t, services.VerifyPassword(stored.Password, "nova-senha-forte"))
}
