package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	OfficeID    *string    `gorm:"type:uuid;index" json:"office_id"` // Nullable only for superusers
	Role        string     `gorm:"not null;default:other" json:"role"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"is_superuser"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	Phone       string     `json:"phone"`
	BarNumber   string     `json:"bar_number"` // OAB registration
	LastLoginAt *time.Time `json:"last_login_at"`

	// Relationships
	Office *Office `gorm:"foreignKey:OfficeID" json:"office,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// HasOffice checks if the user has an office assigned
func (u *User) HasOffice() bool {
	return u.OfficeID != nil && *u.OfficeID != ""
}

// BelongsTo reports whether the user is a member of the given office.
func (u *User) BelongsTo(officeID string) bool {
	return u.HasOffice() && *u.OfficeID == officeID
}

// Capabilities derives the permission set from role and superuser flag.
func (u *User) Capabilities() Capabilities {
	return CapabilitiesFor(u.Role, u.IsSuperuser)
}

// Can reports whether the user holds the given capability.
func (u *User) Can(c Capability) bool {
	return u.Capabilities().Has(c)
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
