package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client person types
const (
	PersonIndividual = "individual" // CPF
	PersonCompany    = "company"    // CNPJ
)

type Client struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OfficeID   string     `gorm:"type:uuid;not null;index" json:"office_id"`
	PersonType string     `gorm:"not null;default:individual" json:"person_type" validate:"omitempty,oneof=individual company"`
	Name       string     `gorm:"not null;index" json:"name" validate:"required,max=200"`
	TaxID      string     `gorm:"index" json:"tax_id"` // CPF or CNPJ, canonical punctuation
	Email      string     `json:"email" validate:"omitempty,email"`
	Phone      string     `gorm:"index" json:"phone"`
	Mobile     string     `json:"mobile"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	ZipCode    string     `json:"zip_code"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`

	// Digits of Phone and Mobile, used to match inbound WhatsApp senders
	PhoneDigits string `gorm:"index" json:"-"`

	// Relationships
	Office *Office `gorm:"foreignKey:OfficeID" json:"-"`
	Cases  []Case  `gorm:"foreignKey:ClientID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave formats the tax id into its canonical punctuated form and
// refreshes the phone digits index.
func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.TaxID = FormatTaxID(c.TaxID)
	c.PhoneDigits = strings.TrimSpace(OnlyDigits(c.Phone) + " " + OnlyDigits(c.Mobile))
	return nil
}

// TableName specifies the table name for Client model
func (Client) TableName() string {
	return "clients"
}

// FormatTaxID renders 11 digits as a CPF (NNN.NNN.NNN-NN) and 14 digits as
// a CNPJ (NN.NNN.NNN/NNNN-NN). Any other digit count returns the input as is.
func FormatTaxID(value string) string {
	digits := OnlyDigits(value)
	switch len(digits) {
	case 11:
		return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
	case 14:
		return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
	default:
		return value
	}
}

// OnlyDigits strips every non-digit rune.
func OnlyDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
