package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deadline statuses. DeadlineOverdue is only ever stored by the overdue
// sweep; readers should use IsOverdue.
const (
	DeadlinePending    = "pending"
	DeadlineInProgress = "in_progress"
	DeadlineDone       = "done"
	DeadlineOverdue    = "overdue"
	DeadlineCanceled   = "canceled"
)

// Deadline priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// DefaultAlertLeadDays applies when a deadline leaves its lead time unset.
// An explicit zero alerts on the due day only.
const DefaultAlertLeadDays = 3

// Deadline is a date-bound obligation tied to a case (prazo)
type Deadline struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	CaseID   string `gorm:"type:uuid;not null;index:idx_deadline_case_status" json:"case_id" validate:"required"`
	Case     *Case  `gorm:"foreignKey:CaseID" json:"case,omitempty"`

	DocketEntryID *string `gorm:"type:uuid" json:"docket_entry_id,omitempty"`

	Title       string `gorm:"not null" json:"title" validate:"required,max=200"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"not null;default:procedural" json:"type"`
	Priority    string `gorm:"not null;default:medium" json:"priority"`
	Status      string `gorm:"not null;default:pending;index:idx_deadline_case_status;index:idx_deadline_status_due" json:"status"`

	DueDate         time.Time  `gorm:"not null;index:idx_deadline_status_due" json:"due_date" validate:"required"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	AlertLeadDays   *int       `gorm:"not null;default:3" json:"alert_lead_days"`
	AlertsSent      int        `gorm:"not null;default:0" json:"alerts_sent"`
	LastAlertSentAt *time.Time `json:"last_alert_sent_at,omitempty"`

	ResponsibleID *string `gorm:"type:uuid;index" json:"responsible_id,omitempty"`
	Responsible   *User   `gorm:"foreignKey:ResponsibleID" json:"responsible,omitempty"`
	AssignedByID  *string `gorm:"type:uuid" json:"assigned_by_id,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`
}

// BeforeCreate hook to generate UUID and fill an unset alert lead time
func (d *Deadline) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.AlertLeadDays == nil {
		lead := DefaultAlertLeadDays
		d.AlertLeadDays = &lead
	}
	if d.Status == "" {
		d.Status = DeadlinePending
	}
	return nil
}

// TableName specifies the table name for Deadline model
func (Deadline) TableName() string {
	return "deadlines"
}

// IsOverdue is true only for pending deadlines whose due date is before today.
func (d *Deadline) IsOverdue(now time.Time) bool {
	return d.Status == DeadlinePending && DaysBetween(now, d.DueDate) < 0
}

// DaysRemaining is nil unless the deadline is pending.
func (d *Deadline) DaysRemaining(now time.Time) *int {
	if d.Status != DeadlinePending {
		return nil
	}
	days := DaysBetween(now, d.DueDate)
	return &days
}

// NeedsAlert covers overdue deadlines too, since the remaining days go negative.
func (d *Deadline) NeedsAlert(now time.Time) bool {
	days := d.DaysRemaining(now)
	if days == nil {
		return false
	}
	lead := DefaultAlertLeadDays
	if d.AlertLeadDays != nil {
		lead = *d.AlertLeadDays
	}
	return *days <= lead
}

// Complete marks the deadline done as of now.
func (d *Deadline) Complete(now time.Time) {
	today := DateOf(now)
	d.Status = DeadlineDone
	d.CompletedAt = &today
}

// IsValidDeadlineStatus checks if a status is valid
func IsValidDeadlineStatus(s string) bool {
	switch s {
	case DeadlinePending, DeadlineInProgress, DeadlineDone, DeadlineOverdue, DeadlineCanceled:
		return true
	}
	return false
}

// IsValidPriority checks if a priority is valid
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
