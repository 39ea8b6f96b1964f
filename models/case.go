package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case types
const (
	CaseTypeLabor          = "labor"
	CaseTypeCivil          = "civil"
	CaseTypeCriminal       = "criminal"
	CaseTypeSocialSecurity = "social_security"
	CaseTypeTax            = "tax"
	CaseTypeFamily         = "family"
	CaseTypeConsumer       = "consumer"
	CaseTypeAdministrative = "administrative"
	CaseTypeEnvironmental  = "environmental"
	CaseTypeOther          = "other"
)

// Case situations. No transition graph is enforced.
const (
	CaseActive        = "active"
	CaseArchived      = "archived"
	CaseSuspended     = "suspended"
	CaseDischarged    = "discharged"
	CaseClosed        = "closed"
	CaseFinalJudgment = "final_judgment"
)

// Case represents a lawsuit tracked for a client
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index:idx_case_office_situation;uniqueIndex:idx_case_office_reference" json:"office_id"`

	// Client is deletion-protected while cases reference it
	ClientID string  `gorm:"type:uuid;not null;index" json:"client_id" validate:"required"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ResponsibleID string `gorm:"type:uuid;not null;index" json:"responsible_id" validate:"required"`
	Responsible   *User  `gorm:"foreignKey:ResponsibleID" json:"responsible,omitempty"`

	// Court filing number (CNJ), unique across the system
	FilingNumber string `gorm:"size:30;not null;uniqueIndex" json:"filing_number" validate:"required,max=30"`
	// Internal office reference, e.g. PROC-2026-00042
	Reference string `gorm:"size:40;uniqueIndex:idx_case_office_reference" json:"reference"`

	Type      string `gorm:"not null;default:civil" json:"type"`
	Situation string `gorm:"not null;default:active;index:idx_case_office_situation" json:"situation"`

	CourtDivision string     `json:"court_division"` // vara
	District      string     `json:"district"`       // comarca
	Court         string     `json:"court"`          // tribunal
	ClaimValue    float64    `gorm:"not null;default:0" json:"claim_value"`
	FiledAt       *time.Time `json:"filed_at,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	Plaintiff     string     `gorm:"type:text" json:"plaintiff"`
	Defendant     string     `gorm:"type:text" json:"defendant"`
	Subject       string     `gorm:"type:text" json:"subject"`
	Fees          float64    `gorm:"not null;default:0" json:"fees"`
	Notes         string     `gorm:"type:text" json:"notes"`
	Tags          string     `json:"tags"`

	// Relationships
	Hearings      []Hearing     `gorm:"foreignKey:CaseID" json:"hearings,omitempty"`
	DocketEntries []DocketEntry `gorm:"foreignKey:CaseID" json:"-"`
	Deadlines     []Deadline    `gorm:"foreignKey:CaseID" json:"-"`
	FeeContract   *FeeContract  `gorm:"foreignKey:CaseID" json:"fee_contract,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// DaysUntilNextHearing uses the loaded Hearings and returns the days until
// the next scheduled or confirmed one dated today or later.
func (c *Case) DaysUntilNextHearing(now time.Time) *int {
	var next *Hearing
	today := DateOf(now)
	for i := range c.Hearings {
		h := &c.Hearings[i]
		if h.Status != HearingScheduled && h.Status != HearingConfirmed {
			continue
		}
		if DateOf(h.Date).Before(today) {
			continue
		}
		if next == nil || h.Date.Before(next.Date) {
			next = h
		}
	}
	if next == nil {
		return nil
	}
	days := DaysBetween(now, next.Date)
	return &days
}

// IsValidCaseType checks if a case type is valid
func IsValidCaseType(t string) bool {
	switch t {
	case CaseTypeLabor, CaseTypeCivil, CaseTypeCriminal, CaseTypeSocialSecurity, CaseTypeTax,
		CaseTypeFamily, CaseTypeConsumer, CaseTypeAdministrative, CaseTypeEnvironmental, CaseTypeOther:
		return true
	}
	return false
}

// IsValidCaseSituation checks if a situation is valid
func IsValidCaseSituation(s string) bool {
	switch s {
	case CaseActive, CaseArchived, CaseSuspended, CaseDischarged, CaseClosed, CaseFinalJudgment:
		return true
	}
	return false
}
