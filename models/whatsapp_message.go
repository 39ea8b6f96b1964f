package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types
const (
	MessageText     = "text"
	MessageImage    = "image"
	MessageVideo    = "video"
	MessageAudio    = "audio"
	MessageDocument = "document"
	MessageSticker  = "sticker"
	MessageContact  = "contact"
	MessageLocation = "location"
	MessageLink     = "link"
	MessageOther    = "other"
)

// Message delivery statuses
const (
	MessageSending   = "sending"
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "error"
	MessageWaiting   = "waiting"
)

// phoneSuffixLength is how many trailing digits are used to guess the client.
const phoneSuffixLength = 8

// WhatsAppMessage is one message exchanged through a config
type WhatsAppMessage struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_wa_msg_contact" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string          `gorm:"type:uuid;not null;index" json:"office_id"`
	ConfigID string          `gorm:"type:uuid;not null;index:idx_wa_msg_contact" json:"config_id"`
	Config   *WhatsAppConfig `gorm:"foreignKey:ConfigID" json:"-"`

	ClientID *string `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CaseID   *string `gorm:"type:uuid" json:"case_id,omitempty"`

	ContactNumber string `gorm:"size:20;not null;index:idx_wa_msg_contact" json:"contact_number"`
	ContactName   string `json:"contact_name"`
	ContactID     string `json:"contact_id"`

	Type      string `gorm:"not null;default:text" json:"type"`
	Direction string `gorm:"not null;index:idx_wa_msg_direction" json:"direction"`
	Status    string `gorm:"not null;default:sent" json:"status"`

	Content   string `gorm:"type:text" json:"content"`
	Caption   string `gorm:"type:text" json:"caption"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
	MediaSize int64  `json:"media_size"`

	Read          bool    `gorm:"not null;default:false;index:idx_wa_msg_direction" json:"read"`
	AnsweredByBot bool    `gorm:"not null;default:false" json:"answered_by_bot"`
	ResponsibleID *string `gorm:"type:uuid" json:"responsible_id,omitempty"`

	MessageID  string  `gorm:"index" json:"message_id"`
	ExternalID string  `json:"external_id"`
	ReplyToID  *string `gorm:"type:uuid" json:"reply_to_id,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (m *WhatsAppMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave links inbound messages without a client to the first client of
// the same office whose phone digits contain the sender's trailing digits.
// This is an approximate match; phone numbers are not unique across clients.
func (m *WhatsAppMessage) BeforeSave(tx *gorm.DB) error {
	if m.Direction != DirectionInbound || m.ClientID != nil {
		return nil
	}
	suffix := OnlyDigits(m.ContactNumber)
	if len(suffix) > phoneSuffixLength {
		suffix = suffix[len(suffix)-phoneSuffixLength:]
	}
	if suffix == "" {
		return nil
	}

	var client Client
	err := tx.Session(&gorm.Session{NewDB: true}).
		Where("office_id = ? AND phone_digits LIKE ?", m.OfficeID, "%"+suffix+"%").
		Order("created_at ASC").
		Limit(1).
		Find(&client).Error
	if err == nil && client.ID != "" {
		m.ClientID = &client.ID
	}
	return nil
}

// TableName specifies the table name for WhatsAppMessage model
func (WhatsAppMessage) TableName() string {
	return "whatsapp_messages"
}

// MarkRead flags the message as read at now.
func (m *WhatsAppMessage) MarkRead(now time.Time) {
	m.Read = true
	m.ReadAt = &now
}

// Preview returns a short label for list views.
func (m *WhatsAppMessage) Preview() string {
	switch m.Type {
	case MessageText, "":
		runes := []rune(m.Content)
		if len(runes) > 100 {
			return string(runes[:100]) + "..."
		}
		return m.Content
	case MessageImage:
		if m.Caption != "" {
			return "Imagem: " + m.Caption
		}
		return "Imagem"
	default:
		return m.Type
	}
}
