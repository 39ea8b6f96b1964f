package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"legalflow/config"
	"legalflow/db"
	"legalflow/models"
	"legalflow/services"
	"legalflow/tenant"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testConfig = &config.Config{
	Environment:     "test",
	JWTSecret:       "middleware-test-secret-0123456789abcdef",
	AccessTokenTTL:  time.Hour,
	RefreshTokenTTL: 24 * time.Hour,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:mem_" + uuid.New().String() + "?mode=memory&cache=shared"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := testDB.AutoMigrate(&models.Office{}, &models.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// Set the global DB variable used by middleware
	db.DB = testDB
	return testDB
}

func newContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyConfig, testConfig)
	return c, rec
}

func accessToken(t *testing.T, user *models.User) string {
	t.Helper()
	pair, err := services.IssueTokens(testConfig, user, time.Now())
	require.NoError(t, err)
	return pair.Access
}

func ok(c echo.Context) error {
	return c.String(http.StatusOK, "success")
}

func TestRequireAuth(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()

	office := models.Office{Name: "Silva Advogados"}
	require.NoError(t, testDB.Create(&office).Error)

	user := models.User{Name: "Ana", Email: "ana@example.com", Password: "x", OfficeID: &office.ID, Role: models.RoleLawyer, IsActive: true}
	require.NoError(t, testDB.Create(&user).Error)

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessToken(t, &user))
		c, rec := newContext(e, req)

		require.NoError(t, RequireAuth()(ok)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, GetCurrentUser(c).ID)
		assert.Equal(t, tenant.ForOffice(office.ID), GetScope(c))
	})

	tests := []struct {
		name   string
		header string
	}{
		{"MissingHeader", ""},
		{"NotBearer", "Basic abc"},
		{"InvalidToken", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c, _ := newContext(e, req)

			err := RequireAuth()(ok)(c)
			he, isHTTP := err.(*echo.HTTPError)
			require.True(t, isHTTP)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
			assert.Nil(t, GetCurrentUser(c))
		})
	}

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		pair, err := services.IssueTokens(testConfig, &user, time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.Refresh)
		c, _ := newContext(e, req)

		err = RequireAuth()(ok)(c)
		he, isHTTP := err.(*echo.HTTPError)
		require.True(t, isHTTP)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		inactive := models.User{Name: "Inativo", Email: "inativo@example.com", Password: "x", OfficeID: &office.ID, IsActive: true}
		require.NoError(t, testDB.Create(&inactive).Error)
		require.NoError(t, testDB.Model(&inactive).Update("is_active", false).Error)

		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessToken(t, &inactive))
		c, _ := newContext(e, req)

		err := RequireAuth()(ok)(c)
		he, isHTTP := err.(*echo.HTTPError)
		require.True(t, isHTTP)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("NoOffice", func(t *testing.T) {
		orphan := models.User{Name: "Sem escritório", Email: "orphan@example.com", Password: "x", IsActive: true}
		require.NoError(t, testDB.Create(&orphan).Error)

		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessToken(t, &orphan))
		c, _ := newContext(e, req)

		err := RequireAuth()(ok)(c)
		he, isHTTP := err.(*echo.HTTPError)
		require.True(t, isHTTP)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("Superuser", func(t *testing.T) {
		root := models.User{Name: "Root", Email: "root@example.com", Password: "x", IsSuperuser: true, IsActive: true}
		require.NoError(t, testDB.Create(&root).Error)

		req := httptest.NewRequest(http.MethodGet, "/api/offices", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessToken(t, &root))
		c, _ := newContext(e, req)

		require.NoError(t, RequireAuth()(ok)(c))
		assert.True(t, GetScope(c).IsUnrestricted())
	})

	t.Run("WebsocketQueryToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws?token="+accessToken(t, &user), nil)
		req.Header.Set("Upgrade", "websocket")
		c, _ := newContext(e, req)
		require.NoError(t, RequireAuth()(ok)(c))
		assert.Equal(t, user.ID, GetCurrentUser(c).ID)

		// Plain requests may not use the query parameter
		req = httptest.NewRequest(http.MethodGet, "/api/cases?token="+accessToken(t, &user), nil)
		c, _ = newContext(e, req)
		assert.Error(t, RequireAuth()(ok)(c))
	})
}

func TestRequireCapability(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name       string
		user       *models.User
		capability models.Capability
		wantCode   int
	}{
		{"lawyer manages cases", &models.User{Role: models.RoleLawyer}, models.CapManageCases, http.StatusOK},
		{"lawyer cannot manage finance", &models.User{Role: models.RoleLawyer}, models.CapManageFinance, http.StatusForbidden},
		{"finance manages finance", &models.User{Role: models.RoleFinance}, models.CapManageFinance, http.StatusOK},
		{"intern has nothing", &models.User{Role: models.RoleIntern}, models.CapManageClients, http.StatusForbidden},
		{"superuser overrides role", &models.User{Role: models.RoleOther, IsSuperuser: true}, models.CapManageUsers, http.StatusOK},
		{"anonymous", nil, models.CapManageCases, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/", nil))
			if tt.user != nil {
				c.Set(ContextKeyUser, tt.user)
			}

			err := RequireCapability(tt.capability)(ok)(c)
			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			he, isHTTP := err.(*echo.HTTPError)
			require.True(t, isHTTP)
			assert.Equal(t, tt.wantCode, he.Code)
		})
	}
}

func TestRequireSuperuser(t *testing.T) {
	e := echo.New()

	c, _ := newContext(e, httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(ContextKeyUser, &models.User{Role: models.RoleAdmin})
	err := RequireSuperuser()(ok)(c)
	he, isHTTP := err.(*echo.HTTPError)
	require.True(t, isHTTP)
	assert.Equal(t, http.StatusForbidden, he.Code)

	c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(ContextKeyUser, &models.User{IsSuperuser: true})
	require.NoError(t, RequireSuperuser()(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContextHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, GetCurrentUser(c))
	assert.Nil(t, GetConfig(c))
	assert.True(t, GetScope(c).IsNone())

	require.NoError(t, WithConfig(testConfig)(func(c echo.Context) error { return nil })(c))
	assert.Same(t, testConfig, GetConfig(c))
}
