package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fee contract types
const (
	FeeSuccess = "success"
	FeeFixed   = "fixed"
	FeeHourly  = "hourly"
	FeeMixed   = "mixed"
)

// DefaultInstallmentDay is the day of month used when none is configured.
const DefaultInstallmentDay = 10

// FeeContract is the fee agreement of a case. One per case.
type FeeContract struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	CaseID   string `gorm:"type:uuid;not null;uniqueIndex" json:"case_id" validate:"required"`
	Case     *Case  `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`

	Type           string  `gorm:"not null;default:success" json:"type"`
	PaymentPlan    string  `gorm:"not null;default:installments" json:"payment_plan"`
	TotalAmount    float64 `gorm:"not null" json:"total_amount" validate:"gt=0"`
	SuccessPercent float64 `gorm:"not null;default:0" json:"success_percent"`
	HourlyRate     float64 `gorm:"not null;default:0" json:"hourly_rate"`

	Installments int `gorm:"not null;default:1" json:"installments" validate:"gte=0"`
	DueDay       int `gorm:"not null;default:10" json:"due_day" validate:"gte=0,lte=31"`

	Clauses string `gorm:"type:text" json:"clauses"`
	Notes   string `gorm:"type:text" json:"notes"`

	PDFKey   *string    `json:"pdf_key,omitempty"`
	Signed   bool       `gorm:"not null;default:false" json:"signed"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
	Active   bool       `gorm:"not null;default:true" json:"active"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (f *FeeContract) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for FeeContract model
func (FeeContract) TableName() string {
	return "fee_contracts"
}

// InstallmentAmount splits the total evenly. With no installments it is the total.
func (f *FeeContract) InstallmentAmount() float64 {
	if f.Installments > 0 {
		return f.TotalAmount / float64(f.Installments)
	}
	return f.TotalAmount
}

// InstallmentDueDates returns one due date per installment. The first is
// today; each following one falls on DueDay of the next month, clamped to
// the month's last day, rolling the year over after December.
func InstallmentDueDates(now time.Time, count, dueDay int) []time.Time {
	if dueDay <= 0 {
		dueDay = DefaultInstallmentDay
	}
	today := DateOf(now)
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		if i == 0 {
			dates = append(dates, today)
			continue
		}
		monthIndex := int(today.Month()) - 1 + i
		year := today.Year() + monthIndex/12
		month := time.Month(monthIndex%12 + 1)
		day := dueDay
		if last := LastDayOfMonth(year, month); day > last {
			day = last
		}
		dates = append(dates, time.Date(year, month, day, 0, 0, 0, 0, today.Location()))
	}
	return dates
}
