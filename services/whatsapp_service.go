package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WhatsAppConfigInput is the writable part of a WhatsAppConfig. Secrets are
// write-only: an empty value keeps the stored one.
type WhatsAppConfigInput struct {
	OfficeID        string `json:"office_id"`
	Name            string `json:"name" validate:"required,max=100"`
	PhoneNumber     string `json:"phone_number" validate:"required,max=20"`
	Provider        string `json:"provider"`
	APIURL          string `json:"api_url" validate:"omitempty,url"`
	APIKey          string `json:"api_key"`
	InstanceName    string `json:"instance_name"`
	InstanceID      string `json:"instance_id"`
	WebhookURL      string `json:"webhook_url" validate:"omitempty,url"`
	WebhookSecret   string `json:"webhook_secret"`
	Active          *bool  `json:"active"`
	AutoReply       bool   `json:"auto_reply"`
	SendGreeting    *bool  `json:"send_greeting"`
	GreetingMessage string `json:"greeting_message"`
	OpensAt         string `json:"opens_at"`
	ClosesAt        string `json:"closes_at"`
	OpenWeekends    bool   `json:"open_weekends"`
}

// WhatsAppConfigView adds the derived state of a config
type WhatsAppConfigView struct {
	models.WhatsAppConfig
	Connected           bool `json:"connected"`
	WithinBusinessHours bool `json:"within_business_hours"`
	HasAPIKey           bool `json:"has_api_key"`
	HasWebhookSecret    bool `json:"has_webhook_secret"`
}

func NewWhatsAppConfigView(cfg models.WhatsAppConfig, now time.Time) WhatsAppConfigView {
	return WhatsAppConfigView{
		WhatsAppConfig:      cfg,
		Connected:           cfg.IsConnected(),
		WithinBusinessHours: cfg.WithinBusinessHours(now),
		HasAPIKey:           cfg.APIKey != "",
		HasWebhookSecret:    cfg.WebhookSecret != "",
	}
}

// SendMessageInput is an outbound text message
type SendMessageInput struct {
	ContactNumber string  `json:"contact_number" validate:"required,max=30"`
	ContactName   string  `json:"contact_name"`
	Content       string  `json:"content" validate:"required,max=4096"`
	ClientID      *string `json:"client_id"`
	CaseID        *string `json:"case_id"`
	ReplyToID     *string `json:"-"`
}

// MessageFilters narrows message listings
type MessageFilters struct {
	ConfigID      string
	ContactNumber string
	Direction     string
	UnreadOnly    bool
	ClientID      string
}

func (in WhatsAppConfigInput) apply(cfg *models.WhatsAppConfig) error {
	if in.Provider == "" {
		in.Provider = models.ProviderEvolution
	}
	if !models.IsValidProvider(in.Provider) {
		return invalid("provider", "unknown provider")
	}
	if in.OpensAt == "" {
		in.OpensAt = "09:00"
	}
	if in.ClosesAt == "" {
		in.ClosesAt = "18:00"
	}
	if !models.IsValidClock(in.OpensAt) {
		return invalid("opens_at", "must be HH:MM")
	}
	if !models.IsValidClock(in.ClosesAt) {
		return invalid("closes_at", "must be HH:MM")
	}
	phone := models.OnlyDigits(in.PhoneNumber)
	if phone == "" {
		return invalid("phone_number", "must contain digits")
	}

	cfg.Name = strings.TrimSpace(in.Name)
	cfg.PhoneNumber = phone
	cfg.Provider = in.Provider
	cfg.APIURL = strings.TrimSpace(in.APIURL)
	if in.APIKey != "" {
		sealed, err := SealSecret(in.APIKey)
		if err != nil {
			return err
		}
		cfg.APIKey = sealed
	}
	cfg.InstanceName = in.InstanceName
	cfg.InstanceID = in.InstanceID
	cfg.WebhookURL = in.WebhookURL
	if in.WebhookSecret != "" {
		sealed, err := SealSecret(in.WebhookSecret)
		if err != nil {
			return err
		}
		cfg.WebhookSecret = sealed
	}
	if in.Active != nil {
		cfg.Active = *in.Active
	}
	cfg.AutoReply = in.AutoReply
	if in.SendGreeting != nil {
		cfg.SendGreeting = *in.SendGreeting
	}
	if in.GreetingMessage != "" {
		cfg.GreetingMessage = in.GreetingMessage
	}
	cfg.OpensAt = in.OpensAt
	cfg.ClosesAt = in.ClosesAt
	cfg.OpenWeekends = in.OpenWeekends
	return nil
}

// ListWhatsAppConfigs returns the configs the user may see: every office
// config for managers, otherwise only configs listing the user.
func ListWhatsAppConfigs(database *gorm.DB, scope tenant.Scope, user *models.User, activeOnly bool) ([]models.WhatsAppConfig, error) {
	query := scope.Apply(database.Model(&models.WhatsAppConfig{}))
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if user != nil && !user.IsSuperuser && !user.Can(models.CapManageWhatsApp) {
		query = query.Where("id IN (?)",
			database.Table("whatsapp_config_users").Select("config_id").Where("user_id = ?", user.ID))
	}

	var configs []models.WhatsAppConfig
	if err := query.Preload("AllowedUsers").Order("name ASC").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to list whatsapp configs: %w", err)
	}
	return configs, nil
}

func GetWhatsAppConfig(database *gorm.DB, scope tenant.Scope, id string) (*models.WhatsAppConfig, error) {
	var cfg models.WhatsAppConfig
	if err := findScoped(database, scope, &cfg, "WhatsAppConfig", id, "AllowedUsers"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// usableConfig loads a config in scope and checks the channel permission rule.
func usableConfig(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.WhatsAppConfig, error) {
	cfg, err := GetWhatsAppConfig(database, scope, id)
	if err != nil {
		return nil, err
	}
	if user != nil && !cfg.CanBeUsedBy(user) {
		return nil, denied("not allowed to use this WhatsApp channel")
	}
	return cfg, nil
}

// usableConfigIDs lists the ids of every config in scope the user may use.
// A nil user stands for internal callers and sees the whole scope.
func usableConfigIDs(database *gorm.DB, scope tenant.Scope, user *models.User) ([]string, error) {
	var configs []models.WhatsAppConfig
	if err := scope.Apply(database).Preload("AllowedUsers").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to list whatsapp configs: %w", err)
	}
	ids := make([]string, 0, len(configs))
	for i := range configs {
		if user == nil || configs[i].CanBeUsedBy(user) {
			ids = append(ids, configs[i].ID)
		}
	}
	return ids, nil
}

// CreateWhatsAppConfig stores a new channel for the scope's office.
func CreateWhatsAppConfig(database *gorm.DB, scope tenant.Scope, actor *models.User, in WhatsAppConfigInput) (*models.WhatsAppConfig, error) {
	officeID, err := officeForWrite(database, scope, in.OfficeID)
	if err != nil {
		return nil, err
	}
	cfg := models.WhatsAppConfig{
		OfficeID:     officeID,
		Status:       models.ConnDisconnected,
		Active:       true,
		SendGreeting: true,
	}
	if actor != nil {
		cfg.CreatedByID = &actor.ID
	}
	if err := in.apply(&cfg); err != nil {
		return nil, err
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cfg).Error; err != nil {
			return saveError(err, "WhatsAppConfig", "create")
		}
		updates := map[string]interface{}{}
		if !cfg.Active {
			updates["active"] = false
		}
		if !cfg.SendGreeting {
			updates["send_greeting"] = false
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&cfg).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func UpdateWhatsAppConfig(database *gorm.DB, scope tenant.Scope, id string, in WhatsAppConfigInput) (*models.WhatsAppConfig, error) {
	cfg, err := GetWhatsAppConfig(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(cfg); err != nil {
		return nil, err
	}
	if err := database.Omit(clause.Associations).Save(cfg).Error; err != nil {
		return nil, saveError(err, "WhatsAppConfig", "update")
	}
	return cfg, nil
}

// DeleteWhatsAppConfig soft-deletes a channel. Messages and conversations are
// kept for history.
func DeleteWhatsAppConfig(database *gorm.DB, scope tenant.Scope, id string) (*models.WhatsAppConfig, error) {
	cfg, err := GetWhatsAppConfig(database, scope, id)
	if err != nil {
		return nil, err
	}
	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(cfg).Association("AllowedUsers").Clear(); err != nil {
			return err
		}
		return tx.Delete(cfg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete whatsapp config: %w", err)
	}
	return cfg, nil
}

// Allow-list actions
const (
	PermissionAdd    = "add"
	PermissionRemove = "remove"
)

// ChangeWhatsAppPermission adds or removes userID from the allow-list.
func ChangeWhatsAppPermission(database *gorm.DB, scope tenant.Scope, id, userID, action string) (*models.WhatsAppConfig, error) {
	cfg, err := GetWhatsAppConfig(database, scope, id)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	user, err := officeMember(database, cfg.OfficeID, userID, "user_id")
	if err != nil {
		return nil, err
	}

	association := database.Model(cfg).Association("AllowedUsers")
	switch action {
	case PermissionAdd:
		err = association.Append(user)
	case PermissionRemove:
		err = association.Delete(user)
	default:
		return nil, invalid("action", `must be "add" or "remove"`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to change whatsapp permission: %w", err)
	}
	return GetWhatsAppConfig(database, scope, id)
}

// TestWhatsAppConnection asks the provider for the session state and stores it.
func TestWhatsAppConnection(ctx context.Context, database *gorm.DB, sender MessageSender, scope tenant.Scope, id string, now time.Time) (*models.WhatsAppConfig, error) {
	cfg, err := GetWhatsAppConfig(database, scope, id)
	if err != nil {
		return nil, err
	}

	status, checkErr := sender.Status(ctx, cfg)
	updates := map[string]interface{}{
		"status":              status,
		"connection_attempts": gorm.Expr("connection_attempts + 1"),
	}
	cfg.Status = status
	cfg.ConnectionAttempts++
	if checkErr != nil {
		updates["last_error"] = checkErr.Error()
		updates["last_error_at"] = now
		cfg.LastError = checkErr.Error()
		cfg.LastErrorAt = &now
	} else if status == models.ConnConnected {
		updates["last_connected_at"] = now
		cfg.LastConnectedAt = &now
	}
	if err := database.Model(&models.WhatsAppConfig{}).Where("id = ?", cfg.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to store connection status: %w", err)
	}
	return cfg, checkErr
}

// ListMessages returns messages of configs the user may use, newest first.
func ListMessages(database *gorm.DB, scope tenant.Scope, user *models.User, filters MessageFilters, page Page) ([]models.WhatsAppMessage, int64, error) {
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
		return []models.WhatsAppMessage{}, 0, nil
	}

	query := scope.Apply(database.Model(&models.WhatsAppMessage{})).Where("config_id IN ?", configIDs)
	if filters.ContactNumber != "" {
		query = query.Where("contact_number = ?", NormalizeContact(filters.ContactNumber))
	}
	if filters.Direction != "" {
		query = query.Where("direction = ?", filters.Direction)
	}
	if filters.UnreadOnly {
		query = query.Where("direction = ? AND read = ?", models.DirectionInbound, false)
	}
	if filters.ClientID != "" {
		query = query.Where("client_id = ?", filters.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}
	var messages []models.WhatsAppMessage
	if err := page.Apply(query.Preload("Client").Order("created_at DESC")).Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

// GetMessage loads a message whose config the user may use.
func GetMessage(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.WhatsAppMessage, error) {
	var msg models.WhatsAppMessage
	if err := findScoped(database, scope, &msg, "WhatsAppMessage", id, "Client"); err != nil {
		return nil, err
	}
	if _, err := usableConfig(database, scope, user, msg.ConfigID); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkMessageRead flags a message read and recomputes its conversation.
func MarkMessageRead(database *gorm.DB, scope tenant.Scope, user *models.User, id string, now time.Time) (*models.WhatsAppMessage, error) {
	msg, err := GetMessage(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	if msg.Read {
		return msg, nil
	}
	msg.MarkRead(now)
	if msg.Direction == models.DirectionInbound && msg.Status != models.MessageFailed {
		msg.Status = models.MessageRead
	}

	var conv *models.Conversation
	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(msg).Updates(map[string]interface{}{
			"read":    true,
			"read_at": now,
			"status":  msg.Status,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark message read: %w", err)
		}
		var err error
		conv, err = recomputeFor(tx, msg.ConfigID, msg.ContactNumber, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if conv != nil {
		Events.Publish(Event{Type: EventConversationUpdated, OfficeID: conv.OfficeID, Data: conv})
	}
	return msg, nil
}

// SendMessage stores an outbound message, hands it to the provider and
// recomputes the conversation. A provider failure leaves the message with
// status error and is returned as an ExternalServiceError.
func SendMessage(ctx context.Context, database *gorm.DB, sender MessageSender, scope tenant.Scope, user *models.User, configID string, in SendMessageInput, now time.Time) (*models.WhatsAppMessage, error) {
	cfg, err := usableConfig(database, scope, user, configID)
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, invalid("config_id", "channel is inactive")
	}
	contact := NormalizeContact(in.ContactNumber)
	if contact == "" {
		return nil, invalid("contact_number", "must contain digits")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, invalid("content", "is required")
	}
	if in.ClientID != nil && *in.ClientID != "" {
		if _, err := GetClient(database, tenant.ForOffice(cfg.OfficeID), *in.ClientID); err != nil {
			return nil, invalid("client_id", "client not found in this office")
		}
	} else {
		in.ClientID = nil
	}

	return deliver(ctx, database, sender, cfg, user, contact, in, false, now)
}

// deliver persists, sends and recounts one outbound text. It is shared by the
// API and the chatbot auto-reply.
func deliver(ctx context.Context, database *gorm.DB, sender MessageSender, cfg *models.WhatsAppConfig, user *models.User, contact string, in SendMessageInput, bot bool, now time.Time) (*models.WhatsAppMessage, error) {
	msg := models.WhatsAppMessage{
		OfficeID:      cfg.OfficeID,
		ConfigID:      cfg.ID,
		ClientID:      in.ClientID,
		CaseID:        emptyToNil(in.CaseID),
		ContactNumber: contact,
		ContactName:   in.ContactName,
		Type:          models.MessageText,
		Direction:     models.DirectionOutbound,
		Status:        models.MessageSending,
		Content:       in.Content,
		Read:          true,
		AnsweredByBot: bot,
		ReplyToID:     in.ReplyToID,
	}
	if user != nil {
		msg.ResponsibleID = &user.ID
	}

	err := database.Transaction(func(tx *gorm.DB) error {
		if _, _, err := GetOrCreateConversation(tx, cfg, contact, in.ContactName); err != nil {
			return err
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	externalID, sendErr := sender.Send(ctx, cfg, contact, in.Content)
	Metrics.IncrMessageSent(sendErr == nil)
	updates := map[string]interface{}{}
	if sendErr != nil {
		msg.Status = models.MessageFailed
		updates["status"] = msg.Status
		database.Model(&models.WhatsAppConfig{}).Where("id = ?", cfg.ID).Updates(map[string]interface{}{
			"last_error":    sendErr.Error(),
			"last_error_at": now,
		})
		log.Warn().Err(sendErr).Str("config_id", cfg.ID).Str("message_id", msg.ID).Msg("WhatsApp send failed")
	} else {
		msg.Status = models.MessageSent
		msg.SentAt = &now
		msg.ExternalID = externalID
		msg.MessageID = externalID
		updates["status"] = msg.Status
		updates["sent_at"] = now
		updates["external_id"] = externalID
		updates["message_id"] = externalID
		database.Model(&models.WhatsAppConfig{}).Where("id = ?", cfg.ID).
			Update("messages_sent", gorm.Expr("messages_sent + 1"))
	}
	if err := database.Model(&msg).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}

	conv, err := recomputeFor(database, cfg.ID, contact, now)
	if err != nil {
		return nil, err
	}
	Events.Publish(Event{Type: EventMessageSent, OfficeID: cfg.OfficeID, Data: msg})
	if conv != nil {
		Events.Publish(Event{Type: EventConversationUpdated, OfficeID: conv.OfficeID, Data: conv})
	}

	if sendErr != nil {
		return &msg, sendErr
	}
	return &msg, nil
}

// ReplyToMessage answers an inbound message on the same channel and contact.
func ReplyToMessage(ctx context.Context, database *gorm.DB, sender MessageSender, scope tenant.Scope, user *models.User, id, content string, now time.Time) (*models.WhatsAppMessage, error) {
	original, err := GetMessage(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	return SendMessage(ctx, database, sender, scope, user, original.ConfigID, SendMessageInput{
		ContactNumber: original.ContactNumber,
		ContactName:   original.ContactName,
		Content:       content,
		ClientID:      original.ClientID,
		CaseID:        original.CaseID,
		ReplyToID:     &original.ID,
	}, now)
}
