package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legalflow/config"
	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/observability"
	"legalflow/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testConfig = &config.Config{
	Environment:     "test",
	JWTSecret:       "handlers-test-secret-0123456789abcdef",
	AccessTokenTTL:  time.Hour,
	RefreshTokenTTL: 24 * time.Hour,
	PageSize:        20,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory name isolates tests while letting async audit writes see the same database
	dsn := "file:mem_" + uuid.New().String() + "?mode=memory&cache=shared&_busy_timeout=5000"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))

	// Set global DB
	db.DB = testDB

	if services.Storage == nil {
		services.Storage = services.NewDiskStore(t.TempDir())
	}
	return testDB
}

// setupEcho builds a context for calling a handler directly.
func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextKeyConfig, testConfig)
	return e, c, rec
}

// newServer wires the full router the way the server binary does.
func newServer(t *testing.T) (*echo.Echo, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	services.Metrics = metrics
	t.Cleanup(func() { services.Metrics = nil })

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.WithConfig(testConfig))
	SetupRoutes(e, nil, metrics)
	return e, metrics
}

type fixture struct {
	office  *models.Office
	admin   *models.User
	lawyer  *models.User
	finance *models.User
	intern  *models.User
	client  *models.Client
}

const testPassword = "senha-segura-123"

func seedOffice(t *testing.T, database *gorm.DB, name string) fixture {
	t.Helper()
	office := &models.Office{Name: name, IsActive: true}
	require.NoError(t, database.Create(office).Error)

	hash, err := services.HashPassword(testPassword)
	require.NoError(t, err)
	mk := func(role string) *models.User {
		u := &models.User{
			Name:     name + " " + role,
			Email:    strings.ToLower(name) + "." + role + "@example.com",
			Password: hash,
			OfficeID: &office.ID,
			Role:     role,
			IsActive: true,
		}
		require.NoError(t, database.Create(u).Error)
		return u
	}

	client := &models.Client{OfficeID: office.ID, Name: name + " Cliente", Phone: "(11) 98765-4321"}
	require.NoError(t, database.Create(client).Error)

	return fixture{
		office:  office,
		admin:   mk(models.RoleAdmin),
		lawyer:  mk(models.RoleLawyer),
		finance: mk(models.RoleFinance),
		intern:  mk(models.RoleIntern),
		client:  client,
	}
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	pair, err := services.IssueTokens(testConfig, user, time.Now())
	require.NoError(t, err)
	return pair.Access
}

// do sends a request through the router, optionally authenticated and with a JSON body.
func do(t *testing.T, e *echo.Echo, method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = strings.NewReader(string(raw))
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokenFor(t, user))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	Now = func() time.Time { return at }
	t.Cleanup(func() { Now = time.Now })
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
}

func seedCase(t *testing.T, database *gorm.DB, f fixture, filingNumber string) *models.Case {
	t.Helper()
	c := &models.Case{
		OfficeID:      f.office.ID,
		ClientID:      f.client.ID,
		ResponsibleID: f.lawyer.ID,
		FilingNumber:  filingNumber,
		Reference:     "PROC-" + filingNumber[:7],
	}
	require.NoError(t, database.Create(c).Error)
	return c
}
