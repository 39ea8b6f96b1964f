package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditActionCreate           AuditAction = "CREATE"
	AuditActionUpdate           AuditAction = "UPDATE"
	AuditActionDelete           AuditAction = "DELETE"
	AuditActionDownload         AuditAction = "DOWNLOAD"
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionGenerate         AuditAction = "GENERATE"
	AuditActionAssign           AuditAction = "ASSIGN"
	AuditActionPermissionChange AuditAction = "PERMISSION_CHANGE"
)

// ErrAuditAppendOnly is returned by any attempt to rewrite or remove an audit row.
var ErrAuditAppendOnly = errors.New("audit log is append-only")

// AuditLog is one entry in an office's activity trail. Actor and office
// names are copied in at write time so the trail still reads correctly
// after a user or office is renamed or removed. OldValues and NewValues
// hold the JSON snapshots passed by the caller, either may be empty.
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_office_time,priority:2" json:"created_at"`

	OfficeID   *string `gorm:"type:uuid;index:idx_audit_office_time,priority:1" json:"office_id,omitempty"`
	OfficeName string  `gorm:"size:200" json:"office_name,omitempty"`

	UserID   *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	UserName string  `gorm:"size:200;not null" json:"user_name"`
	UserRole string  `gorm:"size:20" json:"user_role"`

	Action       AuditAction `gorm:"size:30;not null;index" json:"action"`
	ResourceType string      `gorm:"size:50;not null;index:idx_audit_target" json:"resource_type"`
	ResourceID   string      `gorm:"size:64;not null;index:idx_audit_target" json:"resource_id"`
	ResourceName string      `gorm:"size:255" json:"resource_name,omitempty"`
	Description  string      `gorm:"type:text" json:"description,omitempty"`
	OldValues    string      `gorm:"type:text" json:"old_values,omitempty"`
	NewValues    string      `gorm:"type:text" json:"new_values,omitempty"`

	IPAddress string `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent string `gorm:"type:text" json:"user_agent,omitempty"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error { return ErrAuditAppendOnly }

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error { return ErrAuditAppendOnly }

func (AuditLog) TableName() string {
	return "audit_logs"
}
