package services

import (
	"testing"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHearing(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	c := seedCase(t, database, f)
	scope := tenant.ForOffice(f.office.ID)

	h, err := CreateHearing(database, scope, HearingInput{CaseID: c.ID, Date: "2026-05-02", Time: "14:30", Location: "1ª Vara do Trabalho"})
	require.NoError(t, err)
	assert.Equal(t, models.HearingScheduled, h.Status)
	assert.Equal(t, f.office.ID, h.OfficeID)

	_, err = CreateHearing(database, scope, HearingInput{CaseID: c.ID, Date: "2026-05-02", Time: "25:99", Location: "x"})
	assert.True(t, IsValidation(err))

	_, err = CreateHearing(database, scope, HearingInput{CaseID: c.ID, Date: "2026-05-02", Status: "lost", Location: "x"})
	assert.True(t, IsValidation(err))
}

func TestUpcomingHearings_LimitAndStatus(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	c := seedCase(t, database, f)
	now := fixedNow()
	today := models.DateOf(now)

	for i := 0; i < 12; i++ {
		mustCreate(t, database, &models.Hearing{OfficeID: f.office.ID, CaseID: c.ID, Date: today.AddDate(0, 0, i), Time: "10:00", Location: "Fórum"})
	}
	mustCreate(t, database, &models.Hearing{OfficeID: f.office.ID, CaseID: c.ID, Date: today.AddDate(0, 0, -1), Location: "Fórum"})
	mustCreate(t, database, &models.Hearing{OfficeID: f.office.ID, CaseID: c.ID, Date: today, Status: models.HearingCanceled, Location: "Fórum"})

	hearings, err := UpcomingHearings(database, tenant.ForOffice(f.office.ID), now)
	require.NoError(t, err)
	require.Len(t, hearings, UpcomingHearingsLimit)
	assert.Equal(t, today, models.DateOf(hearings[0].Date))
	for _, h := range hearings {
		assert.NotEqual(t, models.HearingCanceled, h.Status)
	}
}
