package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WhatsApp providers
const (
	ProviderEvolution  = "evolution"
	ProviderWhapi      = "whapi"
	ProviderWPPConnect = "wppconnect"
	ProviderOfficial   = "official"
	ProviderVenom      = "venom"
	ProviderOther      = "other"
)

// Connection statuses
const (
	ConnDisconnected = "disconnected"
	ConnConnecting   = "connecting"
	ConnConnected    = "connected"
	ConnQRCode       = "qr_code"
	ConnError        = "error"
	ConnUnknown      = "unknown"
)

// DefaultGreeting is the fallback chatbot and greeting text.
const DefaultGreeting = "Olá! Como posso ajudar?"

// WhatsAppConfig holds one office channel and its provider credentials
type WhatsAppConfig struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OfficeID    string `gorm:"type:uuid;not null;uniqueIndex:idx_wa_office_phone" json:"office_id"`
	Name        string `gorm:"not null" json:"name" validate:"required,max=100"`
	PhoneNumber string `gorm:"size:20;not null;uniqueIndex:idx_wa_office_phone" json:"phone_number" validate:"required,max=20"`
	Provider    string `gorm:"not null;default:evolution" json:"provider"`

	APIURL        string `json:"api_url"`
	APIKey        string `json:"-"`
	InstanceName  string `json:"instance_name"`
	InstanceID    string `json:"instance_id"`
	WebhookURL    string `json:"webhook_url"`
	WebhookSecret string `json:"-"`

	Status              string     `gorm:"not null;default:disconnected" json:"status"`
	LastError           string     `gorm:"type:text" json:"last_error"`
	LastErrorAt         *time.Time `json:"last_error_at,omitempty"`
	ConnectionAttempts  int        `gorm:"not null;default:0" json:"connection_attempts"`
	LastConnectedAt     *time.Time `json:"last_connected_at,omitempty"`
	MessagesSent        int        `gorm:"not null;default:0" json:"messages_sent"`
	MessagesReceived    int        `gorm:"not null;default:0" json:"messages_received"`
	AverageResponseTime float64    `gorm:"not null;default:0" json:"average_response_ms"`

	Active          bool   `gorm:"not null;default:true" json:"active"`
	AutoReply       bool   `gorm:"not null;default:false" json:"auto_reply"`
	SendGreeting    bool   `gorm:"not null;default:true" json:"send_greeting"`
	GreetingMessage string `gorm:"type:text" json:"greeting_message"`

	// Business hours, HH:MM
	OpensAt      string `gorm:"size:5;not null;default:09:00" json:"opens_at"`
	ClosesAt     string `gorm:"size:5;not null;default:18:00" json:"closes_at"`
	OpenWeekends bool   `gorm:"not null;default:false" json:"open_weekends"`

	// Empty allow-list means any user with manage_whatsapp may use it
	AllowedUsers []User `gorm:"many2many:whatsapp_config_users;joinForeignKey:ConfigID;joinReferences:UserID" json:"allowed_users,omitempty"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (w *WhatsAppConfig) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.GreetingMessage == "" {
		w.GreetingMessage = DefaultGreeting
	}
	return nil
}

// TableName specifies the table name for WhatsAppConfig model
func (WhatsAppConfig) TableName() string {
	return "whatsapp_configs"
}

// IsConnected reports whether the provider session is up.
func (w *WhatsAppConfig) IsConnected() bool {
	return w.Status == ConnConnected
}

// WithinBusinessHours checks weekday and the opening window, both inclusive.
func (w *WhatsAppConfig) WithinBusinessHours(now time.Time) bool {
	if (now.Weekday() == time.Saturday || now.Weekday() == time.Sunday) && !w.OpenWeekends {
		return false
	}
	opens, ok := clockSeconds(w.OpensAt, "09:00")
	if !ok {
		return false
	}
	closes, ok := clockSeconds(w.ClosesAt, "18:00")
	if !ok {
		return false
	}
	current := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return opens <= current && current <= closes
}

// CanBeUsedBy applies the channel permission rules. AllowedUsers must be loaded.
func (w *WhatsAppConfig) CanBeUsedBy(user *User) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	if !user.BelongsTo(w.OfficeID) {
		return false
	}
	if len(w.AllowedUsers) > 0 {
		for _, allowed := range w.AllowedUsers {
			if allowed.ID == user.ID {
				return true
			}
		}
		return false
	}
	return user.Can(CapManageWhatsApp)
}

// IsValidProvider checks if a provider is valid
func IsValidProvider(p string) bool {
	switch p {
	case ProviderEvolution, ProviderWhapi, ProviderWPPConnect, ProviderOfficial, ProviderVenom, ProviderOther:
		return true
	}
	return false
}

// IsValidClock checks an HH:MM value.
func IsValidClock(value string) bool {
	_, ok := clockSeconds(value, "")
	return ok
}

func clockSeconds(value, fallback string) (int, bool) {
	if value == "" {
		value = fallback
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	s := 0
	if len(parts) == 3 {
		s, err = strconv.Atoi(parts[2])
		if err != nil || s < 0 || s > 59 {
			return 0, false
		}
	}
	return h*3600 + m*60 + s, true
}
