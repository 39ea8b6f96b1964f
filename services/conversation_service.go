package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationFilters narrows conversation listings
type ConversationFilters struct {
	ConfigID       string
	Open           *bool
	Archived       *bool
	UnreadOnly     bool
	AssignedUserID string
	Search         string
}

// ConversationView adds the derived state of a conversation
type ConversationView struct {
	models.Conversation
	NeedsAttention bool `json:"needs_attention"`
}

func NewConversationViews(cs []models.Conversation) []ConversationView {
	out := make([]ConversationView, 0, len(cs))
	for _, c := range cs {
		out = append(out, ConversationView{Conversation: c, NeedsAttention: c.NeedsAttention()})
	}
	return out
}

// NormalizeContact reduces a provider contact id such as
// "5511987654321@s.whatsapp.net" to its digits.
func NormalizeContact(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		raw = raw[:colon]
	}
	return models.OnlyDigits(raw)
}

// GetOrCreateConversation returns the conversation keyed by (config, contact).
// A concurrent insert of the same key is resolved by reading the winner.
func GetOrCreateConversation(tx *gorm.DB, cfg *models.WhatsAppConfig, contact, name string) (*models.Conversation, bool, error) {
	var conv models.Conversation
	err := tx.Where("config_id = ? AND contact_number = ?", cfg.ID, contact).First(&conv).Error
	if err == nil {
		if name != "" && conv.ContactName == "" {
			conv.ContactName = name
			tx.Model(&conv).Update("contact_name", name)
		}
		return &conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}
	return createConversation(tx, cfg, contact, name)
}

// createConversation inserts with ON CONFLICT DO NOTHING so a lost race
// leaves the surrounding transaction usable on postgres, then reads the
// row that won.
func createConversation(tx *gorm.DB, cfg *models.WhatsAppConfig, contact, name string) (*models.Conversation, bool, error) {
	conv := models.Conversation{
		OfficeID:      cfg.OfficeID,
		ConfigID:      cfg.ID,
		ContactNumber: contact,
		ContactName:   name,
		Open:          true,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_id"}, {Name: "contact_number"}},
		DoNothing: true,
	}).Create(&conv)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &conv, true, nil
	}

	var winner models.Conversation
	if err := tx.Where("config_id = ? AND contact_number = ?", cfg.ID, contact).First(&winner).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &winner, false, nil
}

// RecomputeConversation recounts the aggregate fields from the message rows
// and applies the auto-close rule. It only ever closes; reopening is done by
// inbound traffic.
func RecomputeConversation(tx *gorm.DB, conv *models.Conversation, now time.Time) error {
	messages := tx.Model(&models.WhatsAppMessage{}).
		Where("config_id = ? AND contact_number = ?", conv.ConfigID, conv.ContactNumber)

	var total, unread int64
	if err := messages.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}
	if err := messages.Session(&gorm.Session{}).
		Where("direction = ? AND read = ?", models.DirectionInbound, false).
		Count(&unread).Error; err != nil {
		return fmt.Errorf("failed to count unread messages: %w", err)
	}

	first, err := edgeMessage(messages, "created_at ASC", "")
	if err != nil {
		return err
	}
	last, err := edgeMessage(messages, "created_at DESC", "")
	if err != nil {
		return err
	}
	lastOutbound, err := edgeMessage(messages, "created_at DESC", models.DirectionOutbound)
	if err != nil {
		return err
	}

	conv.TotalMessages = int(total)
	conv.UnreadCount = int(unread)
	conv.FirstMessageAt = nil
	conv.LastMessageAt = nil
	if first != nil {
		conv.FirstMessageAt = &first.CreatedAt
	}
	if last != nil {
		conv.LastMessageAt = &last.CreatedAt
	}

	var lastOutboundAt *time.Time
	if lastOutbound != nil {
		lastOutboundAt = &lastOutbound.CreatedAt
	}
	if conv.ShouldAutoClose(lastOutboundAt, now) {
		conv.Open = false
	}

	err = tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
		"total_messages":   conv.TotalMessages,
		"unread_count":     conv.UnreadCount,
		"first_message_at": conv.FirstMessageAt,
		"last_message_at":  conv.LastMessageAt,
		"open":             conv.Open,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

func edgeMessage(messages *gorm.DB, order, direction string) (*models.WhatsAppMessage, error) {
	query := messages.Session(&gorm.Session{}).Select("id", "created_at")
	if direction != "" {
		query = query.Where("direction = ?", direction)
	}
	var found []models.WhatsAppMessage
	if err := query.Order(order).Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// recomputeFor recomputes the conversation of a message, when one exists.
func recomputeFor(tx *gorm.DB, configID, contact string, now time.Time) (*models.Conversation, error) {
	var conv models.Conversation
	err := tx.Where("config_id = ? AND contact_number = ?", configID, contact).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if err := RecomputeConversation(tx, &conv, now); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns conversations of configs the user may use,
// most recent first.
func ListConversations(database *gorm.DB, scope tenant.Scope, user *models.User, filters ConversationFilters, page Page) ([]models.Conversation, int64, error) {
	configIDs, err := usableConfigIDs(database, scope, user)
	if err != nil {
		return nil, 0, err
	}
	if filters.ConfigID != "" {
		if !containsString(configIDs, filters.ConfigID) {
			return nil, 0, notFound("WhatsAppConfig", filters.ConfigID)
		}
		configIDs = []string{filters.ConfigID}
	}
	if len(configIDs) == 0 {
		return []models.Conversation{}, 0, nil
	}

	query := scope.Apply(database.Model(&models.Conversation{})).Where("config_id IN ?", configIDs)
	if filters.Open != nil {
		query = query.Where("open = ?", *filters.Open)
	}
	if filters.Archived != nil {
		query = query.Where("archived = ?", *filters.Archived)
	}
	if filters.UnreadOnly {
		query = query.Where("unread_count > 0")
	}
	if filters.AssignedUserID != "" {
		query = query.Where("assigned_user_id = ?", filters.AssignedUserID)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("contact_name LIKE ? OR contact_number LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	var conversations []models.Conversation
	if err := page.Apply(query.Preload("AssignedUser").Order("last_message_at DESC")).Find(&conversations).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, total, nil
}

// GetConversation loads a conversation the user may use.
func GetConversation(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := findScoped(database, scope, &conv, "Conversation", id, "AssignedUser"); err != nil {
		return nil, err
	}
	if _, err := usableConfig(database, scope, user, conv.ConfigID); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ConversationMessages returns the latest limit messages of a conversation in
// chronological order.
func ConversationMessages(database *gorm.DB, scope tenant.Scope, user *models.User, id string, limit int) ([]models.WhatsAppMessage, error) {
	conv, err := GetConversation(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var messages []models.WhatsAppMessage
	err = database.Where("config_id = ? AND contact_number = ?", conv.ConfigID, conv.ContactNumber).
		Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AssignConversation hands the conversation to userID, or to the caller when
// userID is empty. The assignee must belong to the conversation's office.
func AssignConversation(database *gorm.DB, scope tenant.Scope, actor *models.User, id, userID string) (*models.Conversation, error) {
	conv, err := GetConversation(database, scope, actor, id)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		if actor == nil {
			return nil, invalid("user_id", "is required")
		}
		userID = actor.ID
	}
	assignee, err := officeMember(database, conv.OfficeID, userID, "user_id")
	if err != nil {
		return nil, err
	}
	if err := database.Model(conv).Update("assigned_user_id", assignee.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to assign conversation: %w", err)
	}
	conv.AssignedUserID = &assignee.ID
	conv.AssignedUser = assignee

	Events.Publish(Event{Type: EventConversationUpdated, OfficeID: conv.OfficeID, Data: conv})
	return conv, nil
}

// ArchiveConversation archives and closes a conversation.
func ArchiveConversation(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Conversation, error) {
	return closeConversation(database, scope, user, id, "archived")
}

// ResolveConversation marks a conversation resolved and closes it.
func ResolveConversation(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Conversation, error) {
	return closeConversation(database, scope, user, id, "resolved")
}

func closeConversation(database *gorm.DB, scope tenant.Scope, user *models.User, id, flag string) (*models.Conversation, error) {
	conv, err := GetConversation(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	err = database.Model(conv).Updates(map[string]interface{}{flag: true, "open": false}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	conv.Open = false
	if flag == "archived" {
		conv.Archived = true
	} else {
		conv.Resolved = true
	}
	Events.Publish(Event{Type: EventConversationUpdated, OfficeID: conv.OfficeID, Data: conv})
	return conv, nil
}

// PendingConversations lists open conversations with unread messages, oldest
// activity first.
func PendingConversations(database *gorm.DB, scope tenant.Scope, user *models.User) ([]models.Conversation, error) {
	configIDs, err := usableConfigIDs(database, scope, user)
	if err != nil {
		return nil, err
	}
	if len(configIDs) == 0 {
		return []models.Conversation{}, nil
	}
	var conversations []models.Conversation
	err = scope.Apply(database).
		Where("config_id IN ?", configIDs).
		Where("open = ? AND unread_count > 0", true).
		Preload("AssignedUser").
		Order("last_message_at ASC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending conversations: %w", err)
	}
	return conversations, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
