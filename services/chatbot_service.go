package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ChatbotFlowInput is the writable part of a ChatbotFlow
type ChatbotFlowInput struct {
	OfficeID        string                `json:"office_id"`
	ConfigID        *string               `json:"config_id"`
	Name            string                `json:"name" validate:"required,max=100"`
	Description     string                `json:"description"`
	Type            string                `json:"type"`
	Keywords        string                `json:"keywords"`
	Patterns        string                `json:"patterns"`
	Active          *bool                 `json:"active"`
	Order           int                   `json:"order"`
	Flow            models.FlowDefinition `json:"flow"`
	AutoReply       *bool                 `json:"auto_reply"`
	TransferToHuman bool                  `json:"transfer_to_human"`
	TransferUserID  *string               `json:"transfer_user_id"`
	TransferMessage string                `json:"transfer_message"`
}

// FlowMatch is the outcome of running text through the flows of a config
type FlowMatch struct {
	Flow  *models.ChatbotFlow `json:"flow"`
	Reply string              `json:"reply"`
}

var flowTypes = map[string]bool{
	models.FlowGreeting:   true,
	models.FlowService:    true,
	models.FlowCases:      true,
	models.FlowFinance:    true,
	models.FlowScheduling: true,
	models.FlowFAQ:        true,
	models.FlowOther:      true,
}

func (in ChatbotFlowInput) apply(database *gorm.DB, f *models.ChatbotFlow) error {
	if in.Type == "" {
		in.Type = models.FlowService
	}
	if !flowTypes[in.Type] {
		return invalid("type", "unknown flow type")
	}
	if strings.TrimSpace(in.Keywords) == "" && strings.TrimSpace(in.Patterns) == "" {
		return invalid("keywords", "a flow needs keywords or patterns")
	}
	if in.ConfigID != nil && *in.ConfigID != "" {
		var count int64
		database.Model(&models.WhatsAppConfig{}).Where("id = ? AND office_id = ?", *in.ConfigID, f.OfficeID).Count(&count)
		if count == 0 {
			return invalid("config_id", "config not found in this office")
		}
	} else {
		in.ConfigID = nil
	}
	if in.TransferUserID != nil && *in.TransferUserID != "" {
		if _, err := officeMember(database, f.OfficeID, *in.TransferUserID, "transfer_user_id"); err != nil {
			return err
		}
	} else {
		in.TransferUserID = nil
	}

	f.ConfigID = in.ConfigID
	f.Name = strings.TrimSpace(in.Name)
	f.Description = in.Description
	f.Type = in.Type
	f.Keywords = in.Keywords
	f.Patterns = in.Patterns
	if in.Active != nil {
		f.Active = *in.Active
	}
	f.Order = in.Order
	f.Flow = in.Flow
	if in.AutoReply != nil {
		f.AutoReply = *in.AutoReply
	}
	f.TransferToHuman = in.TransferToHuman
	f.TransferUserID = in.TransferUserID
	f.TransferMessage = in.TransferMessage
	return nil
}

// InvalidPatterns lists the pattern lines that do not compile. They are
// skipped when matching.
func InvalidPatterns(patterns string) []string {
	var bad []string
	for _, line := range strings.Split(patterns, "\n") {
		p := strings.TrimSpace(line)
		if p == "" {
			continue
		}
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			bad = append(bad, p)
		}
	}
	return bad
}

// ListChatbotFlows returns flows in scope in matching order.
func ListChatbotFlows(database *gorm.DB, scope tenant.Scope, configID string, page Page) ([]models.ChatbotFlow, int64, error) {
	query := scope.Apply(database.Model(&models.ChatbotFlow{}))
	if configID != "" {
		query = query.Where("config_id = ? OR config_id IS NULL", configID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count chatbot flows: %w", err)
	}
	var flows []models.ChatbotFlow
	if err := page.Apply(query.Order("sort_order ASC, name ASC")).Find(&flows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list chatbot flows: %w", err)
	}
	return flows, total, nil
}

func GetChatbotFlow(database *gorm.DB, scope tenant.Scope, id string) (*models.ChatbotFlow, error) {
	var f models.ChatbotFlow
	if err := findScoped(database, scope, &f, "ChatbotFlow", id); err != nil {
		return nil, err
	}
	return &f, nil
}

func CreateChatbotFlow(database *gorm.DB, scope tenant.Scope, actor *models.User, in ChatbotFlowInput) (*models.ChatbotFlow, error) {
	officeID, err := officeForWrite(database, scope, in.OfficeID)
	if err != nil {
		return nil, err
	}
	f := models.ChatbotFlow{OfficeID: officeID, Active: true, AutoReply: true}
	if actor != nil {
		f.CreatedByID = &actor.ID
	}
	if err := in.apply(database, &f); err != nil {
		return nil, err
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&f).Error; err != nil {
			return saveError(err, "ChatbotFlow", "create")
		}
		updates := map[string]interface{}{}
		if !f.Active {
			updates["active"] = false
		}
		if !f.AutoReply {
			updates["auto_reply"] = false
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&f).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func UpdateChatbotFlow(database *gorm.DB, scope tenant.Scope, id string, in ChatbotFlowInput) (*models.ChatbotFlow, error) {
	f, err := GetChatbotFlow(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, f); err != nil {
		return nil, err
	}
	if err := database.Save(f).Error; err != nil {
		return nil, saveError(err, "ChatbotFlow", "update")
	}
	return f, nil
}

func DeleteChatbotFlow(database *gorm.DB, scope tenant.Scope, id string) (*models.ChatbotFlow, error) {
	f, err := GetChatbotFlow(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(f).Error; err != nil {
		return nil, fmt.Errorf("failed to delete chatbot flow: %w", err)
	}
	return f, nil
}

// MatchFlow returns the first active flow, in sort order, whose keywords or
// patterns match text. Flows bound to another config are ignored.
func MatchFlow(database *gorm.DB, cfg *models.WhatsAppConfig, text string) (*models.ChatbotFlow, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var flows []models.ChatbotFlow
	err := database.
		Where("office_id = ? AND active = ?", cfg.OfficeID, true).
		Where("config_id = ? OR config_id IS NULL", cfg.ID).
		Order("sort_order ASC, created_at ASC").
		Find(&flows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chatbot flows: %w", err)
	}
	for i := range flows {
		if flows[i].Matches(text) {
			return &flows[i], nil
		}
	}
	return nil, nil
}

// ExecuteFlow runs a flow and persists its counters.
func ExecuteFlow(database *gorm.DB, flow *models.ChatbotFlow, now time.Time) (string, bool, error) {
	reply, ok := flow.Execute(now)
	err := database.Model(&models.ChatbotFlow{}).Where("id = ?", flow.ID).Updates(map[string]interface{}{
		"executions":       flow.Executions,
		"successes":        flow.Successes,
		"failures":         flow.Failures,
		"last_executed_at": now,
	}).Error
	if err != nil {
		return "", false, fmt.Errorf("failed to store flow counters: %w", err)
	}
	return reply, ok, nil
}

// TestChatbotFlows reports which flow of a config would answer text, without
// touching counters.
func TestChatbotFlows(database *gorm.DB, scope tenant.Scope, configID, text string) (*FlowMatch, error) {
	cfg, err := GetWhatsAppConfig(database, scope, configID)
	if err != nil {
		return nil, err
	}
	flow, err := MatchFlow(database, cfg, text)
	if err != nil || flow == nil {
		return nil, err
	}
	match := &FlowMatch{Flow: flow, Reply: models.DefaultGreeting}
	if len(flow.Flow.Steps) > 0 && flow.Flow.Steps[0].Message != "" {
		match.Reply = flow.Flow.Steps[0].Message
	}
	return match, nil
}

// AutoReply answers an inbound message with the matching flow when the config
// has auto-reply on and is inside business hours. It returns the sent message,
// or nil when no reply was due.
func AutoReply(ctx context.Context, database *gorm.DB, sender MessageSender, cfg *models.WhatsAppConfig, inbound *models.WhatsAppMessage, now time.Time) (*models.WhatsAppMessage, error) {
	if !cfg.AutoReply || !cfg.WithinBusinessHours(now) {
		return nil, nil
	}
	flow, err := MatchFlow(database, cfg, inbound.Content)
	if err != nil || flow == nil || !flow.AutoReply {
		return nil, err
	}
	reply, ok, err := ExecuteFlow(database, flow, now)
	if err != nil || !ok {
		return nil, err
	}
	if flow.TransferToHuman {
		if flow.TransferMessage != "" {
			reply = flow.TransferMessage
		}
		if flow.TransferUserID != nil {
			database.Model(&models.Conversation{}).
				Where("config_id = ? AND contact_number = ?", cfg.ID, inbound.ContactNumber).
				Update("assigned_user_id", *flow.TransferUserID)
		}
	}

	msg, err := deliver(ctx, database, sender, cfg, nil, inbound.ContactNumber, SendMessageInput{
		ContactName: inbound.ContactName,
		Content:     reply,
		ClientID:    inbound.ClientID,
		ReplyToID:   &inbound.ID,
	}, true, now)
	var extErr *ExternalServiceError
	if errors.As(err, &extErr) {
		log.Warn().Err(err).Str("flow_id", flow.ID).Msg("Chatbot reply could not be delivered")
		return msg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := database.Model(inbound).Update("answered_by_bot", true).Error; err != nil {
		return nil, fmt.Errorf("failed to flag answered message: %w", err)
	}
	inbound.AnsweredByBot = true
	return msg, nil
}
