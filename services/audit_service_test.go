package services

import (
	"encoding/json"
	"testing"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAudit(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	actor := ActorFor(f.admin, "10.0.0.1", "curl/8")
	err := RecordAudit(database, actor, AuditRecord{
		Action:       models.AuditActionUpdate,
		ResourceType: "Case",
		ResourceID:   "case-123",
		ResourceName: "PROC-2026-00001",
		Description:  "Updated situation",
		Old:          map[string]interface{}{"situation": "active"},
		New:          map[string]interface{}{"situation": "archived"},
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, database.First(&row, "resource_id = ?", "case-123").Error)
	assert.Equal(t, f.admin.ID, *row.UserID)
	assert.Equal(t, f.office.ID, *row.OfficeID)
	assert.Equal(t, "Silva", row.OfficeName)
	assert.Equal(t, "10.0.0.1", row.IPAddress)

	var oldValues, newValues map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(row.OldValues), &oldValues))
	require.NoError(t, json.Unmarshal([]byte(row.NewValues), &newValues))
	assert.Equal(t, "active", oldValues["situation"])
	assert.Equal(t, "archived", newValues["situation"])
}

func TestRecordAudit_SystemActor(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	err := RecordAudit(database, AuditActor{}, AuditRecord{
		Action:       models.AuditActionGenerate,
		OfficeID:     f.office.ID,
		ResourceType: "FeeContract",
		ResourceID:   "fc-1",
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, database.First(&row, "resource_id = ?", "fc-1").Error)
	assert.Nil(t, row.UserID)
	assert.Equal(t, "system", row.UserName)
	assert.Empty(t, row.OldValues)
}

func TestAuditLogIsAppendOnly(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	require.NoError(t, RecordAudit(database, ActorFor(f.admin, "", ""), AuditRecord{
		Action: models.AuditActionCreate, ResourceType: "Client", ResourceID: "client-1", Description: "Created client",
	}))
	var row models.AuditLog
	require.NoError(t, database.First(&row, "resource_id = ?", "client-1").Error)

	err := database.Model(&row).Update("description", "rewritten").Error
	assert.ErrorIs(t, err, models.ErrAuditAppendOnly)
	assert.ErrorIs(t, database.Delete(&row).Error, models.ErrAuditAppendOnly)

	var reread models.AuditLog
	require.NoError(t, database.First(&reread, "id = ?", row.ID).Error)
	assert.Equal(t, "Created client", reread.Description)
}

func TestRecordAuditAsync(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	RecordAuditAsync(database, ActorFor(f.admin, "", ""), AuditRecord{Action: models.AuditActionDelete, ResourceType: "Client", ResourceID: "client-9"})

	assert.Eventually(t, func() bool {
		var count int64
		database.Model(&models.AuditLog{}).Where("resource_id = ?", "client-9").Count(&count)
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestListAuditLogs_ScopedAndFiltered(t *testing.T) {
	database := setupTestDB(t)
	a := seedOffice(t, database, "Silva")
	b := seedOffice(t, database, "Souza")

	records := []struct {
		actor AuditActor
		rec   AuditRecord
	}{
		{ActorFor(a.admin, "", ""), AuditRecord{Action: models.AuditActionCreate, ResourceType: "Case", ResourceID: "c1"}},
		{ActorFor(a.admin, "", ""), AuditRecord{Action: models.AuditActionUpdate, ResourceType: "Case", ResourceID: "c1"}},
		{ActorFor(a.lawyer, "", ""), AuditRecord{Action: models.AuditActionCreate, ResourceType: "Client", ResourceID: "cl1", ResourceName: "Maria"}},
		{ActorFor(b.admin, "", ""), AuditRecord{Action: models.AuditActionCreate, ResourceType: "Case", ResourceID: "c2"}},
	}
	for _, r := range records {
		require.NoError(t, RecordAudit(database, r.actor, r.rec))
	}

	logs, total, err := ListAuditLogs(database, tenant.ForOffice(a.office.ID), AuditLogFilters{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)

	_, total, err = ListAuditLogs(database, tenant.ForOffice(a.office.ID), AuditLogFilters{ResourceType: "Case", ResourceID: "c1"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	logs, _, err = ListAuditLogs(database, tenant.ForOffice(a.office.ID), AuditLogFilters{Search: "Maria"}, Page{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "cl1", logs[0].ResourceID)

	_, total, err = ListAuditLogs(database, tenant.Unrestricted(), AuditLogFilters{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
