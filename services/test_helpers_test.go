package services

import (
	"context"
	"testing"
	"time"

	"legalflow/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with every model migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:mem_" + uuid.New().String() + "?mode=memory&cache=shared&_busy_timeout=5000"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := testDB.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return testDB
}

type fixture struct {
	office *models.Office
	admin  *models.User
	lawyer *models.User
	intern *models.User
	client *models.Client
}

func strPtr(s string) *string { return &s }

// seedOffice creates an office with an admin, a lawyer, an intern and a client.
func seedOffice(t *testing.T, database *gorm.DB, name string) fixture {
	t.Helper()
	office := &models.Office{Name: name}
	mustCreate(t, database, office)

	mk := func(role string) *models.User {
		u := &models.User{
			Name:     name + " " + role,
			Email:    uuid.New().String() + "@example.com",
			Password: "x",
			OfficeID: &office.ID,
			Role:     role,
			IsActive: true,
		}
		mustCreate(t, database, u)
		return u
	}

	client := &models.Client{OfficeID: office.ID, Name: name + " Cliente", Phone: "(11) 98765-4321"}
	mustCreate(t, database, client)

	return fixture{
		office: office,
		admin:  mk(models.RoleAdmin),
		lawyer: mk(models.RoleLawyer),
		intern: mk(models.RoleIntern),
		client: client,
	}
}

func seedCase(t *testing.T, database *gorm.DB, f fixture) *models.Case {
	t.Helper()
	c := &models.Case{
		OfficeID:      f.office.ID,
		ClientID:      f.client.ID,
		ResponsibleID: f.lawyer.ID,
		FilingNumber:  uuid.New().String()[:25],
		Reference:     "PROC-T-" + uuid.New().String()[:8],
		Type:          models.CaseTypeCivil,
		Situation:     models.CaseActive,
	}
	mustCreate(t, database, c)
	return c
}

func mustCreate(t *testing.T, database *gorm.DB, value interface{}) {
	t.Helper()
	if err := database.Create(value).Error; err != nil {
		t.Fatalf("failed to create %T: %v", value, err)
	}
}

// fixedNow is a Wednesday, mid-month.
func fixedNow() time.Time {
	return time.Date(2026, time.April, 15, 10, 30, 0, 0, time.UTC)
}

// seedConfig creates an active evolution channel for the office.
func seedConfig(t *testing.T, database *gorm.DB, f fixture, phone string) *models.WhatsAppConfig {
	t.Helper()
	cfg := &models.WhatsAppConfig{
		OfficeID:     f.office.ID,
		Name:         f.office.Name + " WhatsApp",
		PhoneNumber:  phone,
		Provider:     models.ProviderEvolution,
		APIURL:       "http://provider.invalid",
		InstanceName: "main",
		Status:       models.ConnConnected,
		Active:       true,
	}
	mustCreate(t, database, cfg)
	return cfg
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, cfg *models.WhatsAppConfig, to, text string) (string, error) {
	args := m.Called(ctx, cfg, to, text)
	return args.String(0), args.Error(1)
}

func (m *mockSender) Status(ctx context.Context, cfg *models.WhatsAppConfig) (string, error) {
	args := m.Called(ctx, cfg)
	return args.String(0), args.Error(1)
}
