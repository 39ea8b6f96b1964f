package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoCloseAfter is how long after the last outbound message a conversation
// with nothing unread is closed.
const AutoCloseAfter = 24 * time.Hour

// Conversation aggregates the messages of one contact under one config
type Conversation struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string          `gorm:"type:uuid;not null;index" json:"office_id"`
	ConfigID string          `gorm:"type:uuid;not null;uniqueIndex:idx_conv_config_contact" json:"config_id"`
	Config   *WhatsAppConfig `gorm:"foreignKey:ConfigID" json:"-"`

	ClientID *string `gorm:"type:uuid;index" json:"client_id,omitempty"`
	CaseID   *string `gorm:"type:uuid" json:"case_id,omitempty"`

	ContactNumber string `gorm:"size:20;not null;uniqueIndex:idx_conv_config_contact" json:"contact_number"`
	ContactName   string `json:"contact_name"`

	Open     bool `gorm:"not null;default:true" json:"open"`
	Archived bool `gorm:"not null;default:false" json:"archived"`
	Resolved bool `gorm:"not null;default:false" json:"resolved"`

	AssignedUserID *string `gorm:"type:uuid;index" json:"assigned_user_id,omitempty"`
	AssignedUser   *User   `gorm:"foreignKey:AssignedUserID" json:"assigned_user,omitempty"`

	TotalMessages  int        `gorm:"not null;default:0" json:"total_messages"`
	UnreadCount    int        `gorm:"not null;default:0" json:"unread_count"`
	FirstMessageAt *time.Time `json:"first_message_at,omitempty"`
	LastMessageAt  *time.Time `gorm:"index" json:"last_message_at,omitempty"`

	Tags string `json:"tags"`
}

// BeforeCreate hook to generate UUID
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// NeedsAttention is true for open, unassigned conversations with unread messages.
func (c *Conversation) NeedsAttention() bool {
	return c.Open && c.AssignedUserID == nil && c.UnreadCount > 0
}

// ShouldAutoClose applies the 24h rule given the last outbound message time.
func (c *Conversation) ShouldAutoClose(lastOutbound *time.Time, now time.Time) bool {
	if lastOutbound == nil || c.UnreadCount != 0 {
		return false
	}
	return now.Sub(*lastOutbound) > AutoCloseAfter
}
