package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Docket entry types
const (
	DocketHearing     = "hearing"
	DocketDecision    = "decision"
	DocketJudgment    = "judgment"
	DocketAppeal      = "appeal"
	DocketNotice      = "notice"
	DocketSummons     = "summons"
	DocketPublication = "publication"
	DocketFiling      = "filing"
	DocketOther       = "other"
)

// DocketEntry is one movement recorded on a case (andamento)
type DocketEntry struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	CaseID   string `gorm:"type:uuid;not null;index:idx_docket_case_date" json:"case_id" validate:"required"`
	Case     *Case  `gorm:"foreignKey:CaseID" json:"-"`

	Type         string     `gorm:"not null;default:other" json:"type"`
	Date         time.Time  `gorm:"not null;index:idx_docket_case_date" json:"date"`
	Description  string     `gorm:"type:text;not null" json:"description" validate:"required"`
	Judge        string     `json:"judge"`
	Outcome      string     `gorm:"type:text" json:"outcome"`
	NextDeadline *time.Time `json:"next_deadline,omitempty"`
	Important    bool       `gorm:"not null;default:false" json:"important"`

	// Attached document in object storage
	DocumentKey  *string `json:"document_key,omitempty"`
	DocumentName *string `json:"document_name,omitempty"`
	DocumentSize int64   `json:"document_size,omitempty"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *DocketEntry) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for DocketEntry model
func (DocketEntry) TableName() string {
	return "docket_entries"
}

// Summary returns a short description, truncated to 100 runes.
func (d *DocketEntry) Summary() string {
	runes := []rune(d.Description)
	if len(runes) <= 100 {
		return d.Description
	}
	return string(runes[:100]) + "..."
}

// IsValidDocketType checks if a docket entry type is valid
func IsValidDocketType(t string) bool {
	switch t {
	case DocketHearing, DocketDecision, DocketJudgment, DocketAppeal, DocketNotice,
		DocketSummons, DocketPublication, DocketFiling, DocketOther:
		return true
	}
	return false
}
