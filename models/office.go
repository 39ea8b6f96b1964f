package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Office is the tenant unit. Every other record belongs to exactly one office.
type Office struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"not null" json:"name" validate:"required,max=200"`
	TaxID    string `gorm:"index" json:"tax_id"` // CNPJ
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Users []User `gorm:"foreignKey:OfficeID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (o *Office) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave normalizes the CNPJ the same way client tax ids are stored.
func (o *Office) BeforeSave(tx *gorm.DB) error {
	o.TaxID = FormatTaxID(o.TaxID)
	return nil
}

// TableName specifies the table name for Office model
func (Office) TableName() string {
	return "offices"
}
