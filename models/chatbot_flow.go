package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Flow types
const (
	FlowGreeting   = "greeting"
	FlowService    = "service"
	FlowCases      = "cases"
	FlowFinance    = "finance"
	FlowScheduling = "scheduling"
	FlowFAQ        = "faq"
	FlowOther      = "other"
)

// FlowStep is one message of a chatbot flow.
type FlowStep struct {
	Message string `json:"mensagem"`
	Expects string `json:"espera,omitempty"`
}

// FlowDefinition is stored as JSON on the flow row.
type FlowDefinition struct {
	Steps []FlowStep `json:"steps"`
}

// ChatbotFlow is a keyword or regex triggered canned response
type ChatbotFlow struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string  `gorm:"type:uuid;not null;index:idx_flow_office_active" json:"office_id"`
	ConfigID *string `gorm:"type:uuid;index" json:"config_id,omitempty"` // nil applies to every config

	Name        string `gorm:"not null" json:"name" validate:"required,max=100"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"not null;default:service" json:"type"`

	// One entry per line. "x*" is a prefix, "*x" a suffix, otherwise substring.
	Keywords string `gorm:"type:text" json:"keywords"`
	// One case-insensitive pattern per line; invalid patterns are skipped.
	Patterns string `gorm:"type:text" json:"patterns"`
	Active   bool   `gorm:"not null;default:true;index:idx_flow_office_active" json:"active"`
	Order    int    `gorm:"column:sort_order;not null;default:0" json:"order"`

	Flow FlowDefinition `gorm:"type:text;serializer:json" json:"flow"`

	AutoReply       bool    `gorm:"not null;default:true" json:"auto_reply"`
	TransferToHuman bool    `gorm:"not null;default:false" json:"transfer_to_human"`
	TransferUserID  *string `gorm:"type:uuid" json:"transfer_user_id,omitempty"`
	TransferMessage string  `gorm:"type:text" json:"transfer_message"`

	Executions     int        `gorm:"not null;default:0" json:"executions"`
	Successes      int        `gorm:"not null;default:0" json:"successes"`
	Failures       int        `gorm:"not null;default:0" json:"failures"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (f *ChatbotFlow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for ChatbotFlow model
func (ChatbotFlow) TableName() string {
	return "chatbot_flows"
}

// Matches reports whether text triggers this flow.
func (f *ChatbotFlow) Matches(text string) bool {
	lower := strings.ToLower(text)

	for _, line := range strings.Split(f.Keywords, "\n") {
		keyword := strings.ToLower(strings.TrimSpace(line))
		if keyword == "" {
			continue
		}
		switch {
		case strings.HasSuffix(keyword, "*"):
			if strings.HasPrefix(lower, strings.TrimSuffix(keyword, "*")) {
				return true
			}
		case strings.HasPrefix(keyword, "*"):
			if strings.HasSuffix(lower, strings.TrimPrefix(keyword, "*")) {
				return true
			}
		default:
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}

	for _, line := range strings.Split(f.Patterns, "\n") {
		pattern := strings.TrimSpace(line)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Execute returns the reply for this flow and updates its counters. A flow
// without steps counts as a failure and returns ok=false.
func (f *ChatbotFlow) Execute(now time.Time) (reply string, ok bool) {
	f.Executions++
	f.LastExecutedAt = &now

	if len(f.Flow.Steps) == 0 {
		f.Failures++
		return "", false
	}
	f.Successes++
	reply = f.Flow.Steps[0].Message
	if reply == "" {
		reply = DefaultGreeting
	}
	return reply, true
}
