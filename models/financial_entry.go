package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Financial entry types
const (
	EntryRevenue  = "revenue"
	EntryExpense  = "expense"
	EntryTransfer = "transfer"
)

// Financial entry statuses
const (
	EntryPending  = "pending"
	EntryPaid     = "paid"
	EntryOverdue  = "overdue"
	EntryCanceled = "canceled"
	EntryPartial  = "partial"
)

// Default categories per type
const (
	CategoryFees       = "fees"
	CategoryCourtCosts = "court_costs"
)

// Recurrence values
const (
	RecurrenceOnce    = "once"
	RecurrenceMonthly = "monthly"
)

// DefaultReminderLeadDays applies when an entry leaves its lead time unset.
// An explicit zero reminds on the due day only.
const DefaultReminderLeadDays = 3

// FinancialEntry is a single revenue/expense/transfer ledger line
type FinancialEntry struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OfficeID string `gorm:"type:uuid;not null;index:idx_fin_office_type_status" json:"office_id"`

	ClientID *string `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CaseID   *string `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Case     *Case   `gorm:"foreignKey:CaseID" json:"case,omitempty"`

	// Set on installments generated from a fee contract
	FeeContractID *string `gorm:"type:uuid;index" json:"fee_contract_id,omitempty"`

	Type        string  `gorm:"not null;index:idx_fin_office_type_status" json:"type" validate:"required,oneof=revenue expense transfer"`
	Category    string  `gorm:"not null" json:"category"`
	Description string  `gorm:"not null" json:"description" validate:"required,max=300"`
	Amount      float64 `gorm:"not null" json:"amount" validate:"gte=0"`
	AmountPaid  float64 `gorm:"not null;default:0" json:"amount_paid" validate:"gte=0"`

	DueDate        time.Time  `gorm:"not null;index:idx_fin_due_status" json:"due_date" validate:"required"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CompetenceDate *time.Time `json:"competence_date,omitempty"`

	Status        string `gorm:"not null;default:pending;index:idx_fin_office_type_status;index:idx_fin_due_status" json:"status"`
	PaymentMethod string `json:"payment_method"`
	Recurrence    string `gorm:"not null;default:once" json:"recurrence"`

	Installment       int `gorm:"not null;default:1" json:"installment"`
	TotalInstallments int `gorm:"not null;default:1" json:"total_installments"`

	SendReminder     bool       `gorm:"not null;default:true" json:"send_reminder"`
	ReminderLeadDays *int       `gorm:"not null;default:3" json:"reminder_lead_days"`
	LastReminderAt   *time.Time `json:"last_reminder_at,omitempty"`

	ReceiptKey *string `json:"receipt_key,omitempty"`
	Notes      string  `gorm:"type:text" json:"notes"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID and fill an unset reminder lead time
func (f *FinancialEntry) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ReminderLeadDays == nil {
		lead := DefaultReminderLeadDays
		f.ReminderLeadDays = &lead
	}
	return nil
}

// BeforeSave applies the category default and payment status rules.
func (f *FinancialEntry) BeforeSave(tx *gorm.DB) error {
	f.ApplyPaymentRules(time.Now())
	return nil
}

// TableName specifies the table name for FinancialEntry model
func (FinancialEntry) TableName() string {
	return "financial_entries"
}

// ApplyPaymentRules sets the default category, then derives status from
// the paid amount: fully paid becomes paid (payment date defaults to today),
// partially paid becomes partial, anything else keeps the caller's status.
func (f *FinancialEntry) ApplyPaymentRules(now time.Time) {
	if f.Category == "" {
		switch f.Type {
		case EntryRevenue:
			f.Category = CategoryFees
		case EntryExpense:
			f.Category = CategoryCourtCosts
		}
	}
	if f.Status == "" {
		f.Status = EntryPending
	}

	if f.AmountPaid >= f.Amount && f.Amount > 0 {
		f.Status = EntryPaid
		if f.PaidAt == nil {
			today := DateOf(now)
			f.PaidAt = &today
		}
	} else if f.AmountPaid > 0 {
		f.Status = EntryPartial
	}
}

// Outstanding returns the amount still to be paid.
func (f *FinancialEntry) Outstanding() float64 {
	return f.Amount - f.AmountPaid
}

// PercentPaid is 100 when the target amount is zero.
func (f *FinancialEntry) PercentPaid() float64 {
	if f.Amount == 0 {
		return 100
	}
	return f.AmountPaid / f.Amount * 100
}

// IsOverdue is true for pending or partial entries due before today.
func (f *FinancialEntry) IsOverdue(now time.Time) bool {
	return (f.Status == EntryPending || f.Status == EntryPartial) && DaysBetween(now, f.DueDate) < 0
}

// NeedsReminder only fires for upcoming entries, never for overdue ones.
func (f *FinancialEntry) NeedsReminder(now time.Time) bool {
	if !f.SendReminder || f.Status == EntryPaid {
		return false
	}
	lead := DefaultReminderLeadDays
	if f.ReminderLeadDays != nil {
		lead = *f.ReminderLeadDays
	}
	days := DaysBetween(now, f.DueDate)
	return days >= 0 && days <= lead
}

// IsValidEntryType checks if an entry type is valid
func IsValidEntryType(t string) bool {
	return t == EntryRevenue || t == EntryExpense || t == EntryTransfer
}

// IsValidEntryStatus checks if an entry status is valid
func IsValidEntryStatus(s string) bool {
	switch s {
	case EntryPending, EntryPaid, EntryOverdue, EntryCanceled, EntryPartial:
		return true
	}
	return false
}
