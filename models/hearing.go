package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hearing statuses
const (
	HearingScheduled = "scheduled"
	HearingConfirmed = "confirmed"
	HearingHeld      = "held"
	HearingPostponed = "postponed"
	HearingCanceled  = "canceled"
)

// Hearing types
const (
	HearingConciliation = "conciliation"
	HearingInstruction  = "instruction"
	HearingTrial        = "trial"
	HearingOralArgument = "oral_argument"
	HearingOther        = "other"
)

// Hearing is a court session on a case (audiência)
type Hearing struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	CaseID   string `gorm:"type:uuid;not null;index" json:"case_id" validate:"required"`
	Case     *Case  `gorm:"foreignKey:CaseID" json:"case,omitempty"`

	Type     string    `gorm:"not null;default:conciliation" json:"type"`
	Status   string    `gorm:"not null;default:scheduled;index:idx_hearing_status_date" json:"status"`
	Date     time.Time `gorm:"not null;index:idx_hearing_status_date" json:"date" validate:"required"`
	Time     string    `gorm:"size:5" json:"time"` // HH:MM
	Location string    `gorm:"not null" json:"location" validate:"required"`
	Room     string    `json:"room"`
	Judge    string    `json:"judge"`
	Outcome  string    `gorm:"type:text" json:"outcome"`
	Notes    string    `gorm:"type:text" json:"notes"`

	ResponsibleID *string `gorm:"type:uuid" json:"responsible_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (h *Hearing) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Status == "" {
		h.Status = HearingScheduled
	}
	return nil
}

// TableName specifies the table name for Hearing model
func (Hearing) TableName() string {
	return "hearings"
}

// IsUpcoming reports whether the hearing is still expected to happen.
func (h *Hearing) IsUpcoming(now time.Time) bool {
	return (h.Status == HearingScheduled || h.Status == HearingConfirmed) && DaysBetween(now, h.Date) >= 0
}

// IsValidHearingStatus checks if a status is valid
func IsValidHearingStatus(s string) bool {
	switch s {
	case HearingScheduled, HearingConfirmed, HearingHeld, HearingPostponed, HearingCanceled:
		return true
	}
	return false
}
