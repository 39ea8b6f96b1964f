package services

import (
	"encoding/json"
	"fmt"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuditActor identifies who performed an operation
type AuditActor struct {
	UserID    string
	UserName  string
	UserRole  string
	OfficeID  string
	IPAddress string
	UserAgent string
}

// ActorFor builds an actor from an authenticated user.
func ActorFor(user *models.User, ip, userAgent string) AuditActor {
	a := AuditActor{IPAddress: ip, UserAgent: userAgent}
	if user == nil {
		return a
	}
	a.UserID = user.ID
	a.UserName = user.Name
	a.UserRole = user.Role
	if user.HasOffice() {
		a.OfficeID = *user.OfficeID
	}
	return a
}

// AuditRecord describes one audited change
type AuditRecord struct {
	Action       models.AuditAction
	OfficeID     string // owning office of the resource; falls back to the actor's
	ResourceType string
	ResourceID   string
	ResourceName string
	Description  string
	Old          interface{}
	New          interface{}
}

// RecordAudit writes one audit row.
func RecordAudit(database *gorm.DB, actor AuditActor, rec AuditRecord) error {
	officeID := rec.OfficeID
	if officeID == "" {
		officeID = actor.OfficeID
	}
	var officeName string
	if officeID != "" {
		database.Model(&models.Office{}).Where("id = ?", officeID).Pluck("name", &officeName)
	}

	userName := actor.UserName
	if userName == "" {
		userName = "system"
	}

	row := models.AuditLog{
		UserID:       ptrIfNotEmpty(actor.UserID),
		UserName:     userName,
		UserRole:     actor.UserRole,
		OfficeID:     ptrIfNotEmpty(officeID),
		OfficeName:   officeName,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		ResourceName: rec.ResourceName,
		Action:       rec.Action,
		Description:  rec.Description,
		OldValues:    marshalAudit(rec.Old),
		NewValues:    marshalAudit(rec.New),
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	}
	if err := database.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// RecordAuditAsync writes the row in the background so requests never wait on it.
func RecordAuditAsync(database *gorm.DB, actor AuditActor, rec AuditRecord) {
	go func() {
		if err := RecordAudit(database, actor, rec); err != nil {
			log.Error().Err(err).
				Str("resource_type", rec.ResourceType).
				Str("resource_id", rec.ResourceID).
				Msg("Audit write failed")
		}
	}()
}

func marshalAudit(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	Search       string
}

// ListAuditLogs returns audit rows visible in scope, newest first.
func ListAuditLogs(database *gorm.DB, scope tenant.Scope, filters AuditLogFilters, page Page) ([]models.AuditLog, int64, error) {
	query := scope.Apply(database.Model(&models.AuditLog{}))

	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("resource_name LIKE ? OR description LIKE ? OR user_name LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	err := page.Apply(query.Order("created_at DESC")).Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
