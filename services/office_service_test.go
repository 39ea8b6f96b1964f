package services

import (
	"testing"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOffice_OnlySuperuser(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	_, err := CreateOffice(database, tenant.ForOffice(f.office.ID), OfficeInput{Name: "Nova"})
	assert.True(t, IsAccessDenied(err))

	office, err := CreateOffice(database, tenant.Unrestricted(), OfficeInput{Name: "Nova", State: "sp"})
	require.NoError(t, err)
	assert.Equal(t, "SP", office.State)
	assert.True(t, office.IsActive)
}

func TestListOffices_MembersSeeOwnOffice(t *testing.T) {
	database := setupTestDB(t)
	a := seedOffice(t, database, "Silva")
	seedOffice(t, database, "Souza")

	offices, total, err := ListOffices(database, tenant.ForOffice(a.office.ID), Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, a.office.ID, offices[0].ID)

	_, total, err = ListOffices(database, tenant.Unrestricted(), Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestDeleteOffice_RefusedWhileOwningRecords(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	_, err := DeleteOffice(database, tenant.ForOffice(f.office.ID), f.office.ID)
	assert.True(t, IsAccessDenied(err))

	_, err = DeleteOffice(database, tenant.Unrestricted(), f.office.ID)
	assert.True(t, IsConflict(err))

	empty, err := CreateOffice(database, tenant.Unrestricted(), OfficeInput{Name: "Vazio"})
	require.NoError(t, err)
	_, err = DeleteOffice(database, tenant.Unrestricted(), empty.ID)
	require.NoError(t, err)
}

func TestGetOfficeStats(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	other := seedOffice(t, database, "Souza")
	c := seedCase(t, database, f)
	seedCase(t, database, other)
	now := fixedNow()
	today := models.DateOf(now)

	mustCreate(t, database, &models.Deadline{OfficeID: f.office.ID, CaseID: c.ID, Title: "a", DueDate: today.AddDate(0, 0, 2)})
	mustCreate(t, database, &models.Deadline{OfficeID: f.office.ID, CaseID: c.ID, Title: "b", DueDate: today.AddDate(0, 0, -2)})
	mustCreate(t, database, &models.Hearing{OfficeID: f.office.ID, CaseID: c.ID, Date: today.AddDate(0, 0, 1), Location: "Fórum"})
	mustCreate(t, database, &models.FinancialEntry{OfficeID: f.office.ID, Type: models.EntryRevenue, Description: "r", Amount: 1000, DueDate: today})
	mustCreate(t, database, &models.FinancialEntry{OfficeID: f.office.ID, Type: models.EntryExpense, Description: "e", Amount: 250, DueDate: today})

	stats, err := GetOfficeStats(database, tenant.ForOffice(f.office.ID), f.office.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Users)
	assert.Equal(t, int64(1), stats.Clients)
	assert.Equal(t, int64(1), stats.ActiveCases)
	assert.Equal(t, int64(2), stats.PendingDeadlines)
	assert.Equal(t, int64(1), stats.OverdueDeadlines)
	assert.Equal(t, int64(1), stats.UpcomingHearings)
	assert.Equal(t, 1000.0, stats.MonthRevenue)
	assert.Equal(t, 250.0, stats.MonthExpense)
	assert.Equal(t, int64(1), stats.CasesByType[models.CaseTypeCivil])

	_, err = GetOfficeStats(database, tenant.ForOffice(f.office.ID), other.office.ID, now)
	assert.True(t, IsNotFound(err))
}
