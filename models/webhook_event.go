package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent marks one provider delivery. The unique (ConfigID, EventID)
// pair is the only idempotency gate for inbound message ingestion, so ids
// seen on one channel never suppress deliveries to another.
type WebhookEvent struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	ReceivedAt time.Time `gorm:"not null;index" json:"received_at"`

	EventID  string `gorm:"size:200;not null;uniqueIndex:idx_webhook_config_event,priority:2" json:"event_id"`
	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	ConfigID string `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_config_event,priority:1" json:"config_id"`
	Provider string `json:"provider"`

	// Synthesized marks ids derived from a content hash
	Synthesized bool   `gorm:"not null;default:false" json:"synthesized"`
	Payload     string `gorm:"type:text" json:"payload"`

	Processed   bool       `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	MessageID   *string    `gorm:"type:uuid" json:"message_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.ReceivedAt.IsZero() {
		w.ReceivedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for WebhookEvent model
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
