package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/db"
	"legalflow/models"
	"legalflow/observability"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Webhook response statuses
const (
	WebhookStatusOK               = "ok"
	WebhookStatusAlreadyProcessed = "already_processed"
	WebhookStatusErrorLogged      = "error_logged"
)

// SignatureHeader carries the optional HMAC of the raw body.
const SignatureHeader = "X-Hub-Signature-256"

// Candidate field paths, tried in order. The payload shape alone decides
// which one answers.
var (
	eventIDPaths = []string{
		"data.key.id",
		"id",
		"messages.0.id",
		"entry.0.changes.0.value.messages.0.id",
		"data.id",
		"payload.id",
	}
	timestampPaths = []string{
		"data.messageTimestamp",
		"timestamp",
		"messages.0.timestamp",
		"entry.0.changes.0.value.messages.0.timestamp",
		"data.timestamp",
	}
	senderPaths = []string{
		"data.key.remoteJid",
		"messages.0.from",
		"entry.0.changes.0.value.messages.0.from",
		"data.from",
		"from",
		"sender",
		"phone",
		"payload.sender.phone",
		"contact.number",
	}
	senderNamePaths = []string{
		"data.pushName",
		"messages.0.from_name",
		"entry.0.changes.0.value.contacts.0.profile.name",
		"data.notifyName",
		"notifyName",
		"pushName",
		"senderName",
		"sender_name",
		"payload.sender.name",
		"name",
	}
	bodyPaths = []string{
		"data.message.conversation",
		"data.message.extendedTextMessage.text",
		"data.message.imageMessage.caption",
		"data.message.videoMessage.caption",
		"data.message.documentMessage.caption",
		"messages.0.text.body",
		"entry.0.changes.0.value.messages.0.text.body",
		"data.body",
		"body",
		"message",
		"text",
		"content",
		"payload.payload.text",
	}
	typePaths = []string{
		"data.messageType",
		"messages.0.type",
		"entry.0.changes.0.value.messages.0.type",
		"type",
	}
	fromMePaths = []string{
		"data.key.fromMe",
		"messages.0.from_me",
		"fromMe",
	}
)

// InboundMessage is the provider-independent reading of one delivery.
type InboundMessage struct {
	Sender     string
	SenderName string
	Body       string
	Type       string
	FromMe     bool
}

// WebhookResult is what the provider gets back.
type WebhookResult struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// DecodeWebhookPayload parses the raw body, which must be a JSON object.
func DecodeWebhookPayload(raw []byte) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, invalid("body", "malformed JSON payload")
	}
	return payload, nil
}

// ExtractEventID returns the provider's message id, or a hash of the body and
// its timestamp when none of the known fields carry one. The hash is stable
// across redeliveries of the same body.
func ExtractEventID(payload map[string]interface{}, raw []byte) (string, bool) {
	if id := extractString(payload, eventIDPaths...); id != "" {
		return truncate(id, 200), false
	}
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{0})
	h.Write([]byte(extractString(payload, timestampPaths...)))
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), true
}

// InterpretPayload reads sender, name, body and type. A missing sender is a
// ValidationError.
func InterpretPayload(payload map[string]interface{}) (*InboundMessage, error) {
	msg := &InboundMessage{
		Sender:     NormalizeContact(extractString(payload, senderPaths...)),
		SenderName: extractString(payload, senderNamePaths...),
		Body:       extractString(payload, bodyPaths...),
		Type:       messageType(extractString(payload, typePaths...)),
		FromMe:     extractString(payload, fromMePaths...) == "true",
	}
	if msg.Sender == "" {
		return nil, invalid("sender", "payload carries no sender number")
	}
	return msg, nil
}

func messageType(raw string) string {
	t := strings.ToLower(strings.TrimSuffix(raw, "Message"))
	switch t {
	case "", "conversation", "extendedtext", "text", "chat":
		return models.MessageText
	case "image", "video", "audio", "document", "sticker", "contact", "location", "link":
		return t
	case "ptt", "voice":
		return models.MessageAudio
	default:
		return models.MessageOther
	}
}

// VerifyWebhookSignature checks a "sha256=<hex>" HMAC of body.
func VerifyWebhookSignature(secret string, body []byte, header string) bool {
	sig := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	expected, err := hex.DecodeString(sig)
	if err != nil || len(expected) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// SignWebhookBody computes the header value VerifyWebhookSignature accepts.
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Ingestor applies inbound provider deliveries at most once.
type Ingestor struct {
	DB     *gorm.DB
	Sender MessageSender
	Now    func() time.Time
}

func NewIngestor(database *gorm.DB, sender MessageSender) *Ingestor {
	return &Ingestor{DB: database, Sender: sender, Now: time.Now}
}

// webhookConfig loads the target channel. Missing and inactive configs are
// both reported as not found.
func (ing *Ingestor) webhookConfig(configID string) (*models.WhatsAppConfig, error) {
	var cfg models.WhatsAppConfig
	err := ing.DB.First(&cfg, "id = ?", configID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !cfg.Active) {
		return nil, notFound("WhatsAppConfig", configID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load whatsapp config: %w", err)
	}
	return &cfg, nil
}

// Ingest handles one delivery. Only an unknown or inactive config, a bad
// signature or a body that is not a JSON object return an error; everything
// after the event marker is written is logged and acknowledged.
func (ing *Ingestor) Ingest(ctx context.Context, configID string, raw []byte, signature string) (*WebhookResult, error) {
	cfg, err := ing.webhookConfig(configID)
	if err != nil {
		Metrics.IncrWebhook(observability.WebhookRejected)
		return nil, err
	}
	if cfg.WebhookSecret != "" {
		secret, err := OpenSecret(cfg.WebhookSecret)
		if err != nil {
			return nil, err
		}
		if !VerifyWebhookSignature(secret, raw, signature) {
			Metrics.IncrWebhook(observability.WebhookSignatureInvalid)
			return nil, denied("invalid webhook signature")
		}
	}
	payload, err := DecodeWebhookPayload(raw)
	if err != nil {
		Metrics.IncrWebhook(observability.WebhookRejected)
		return nil, err
	}

	eventID, synthesized := ExtractEventID(payload, raw)
	now := ing.Now()
	event := models.WebhookEvent{
		ReceivedAt:  now,
		EventID:     eventID,
		OfficeID:    cfg.OfficeID,
		ConfigID:    cfg.ID,
		Provider:    cfg.Provider,
		Synthesized: synthesized,
		Payload:     string(raw),
	}
	if err := ing.DB.Create(&event).Error; err != nil {
		if db.IsUniqueViolation(err) {
			Metrics.IncrWebhook(observability.WebhookDuplicate)
			log.Debug().Str("config_id", cfg.ID).Str("event_id", eventID).Msg("Webhook already processed")
			return &WebhookResult{Status: WebhookStatusAlreadyProcessed, EventID: eventID}, nil
		}
		Metrics.IncrWebhook(observability.WebhookFailed)
		log.Error().Err(err).Str("config_id", cfg.ID).Str("event_id", eventID).Msg("Failed to record webhook event")
		return &WebhookResult{Status: WebhookStatusErrorLogged, EventID: eventID}, nil
	}

	return ing.apply(ctx, cfg, &event, payload, now), nil
}

func (ing *Ingestor) apply(ctx context.Context, cfg *models.WhatsAppConfig, event *models.WebhookEvent, payload map[string]interface{}, now time.Time) (result *WebhookResult) {
	logger := log.With().Str("config_id", cfg.ID).Str("event_id", event.EventID).Logger()

	fail := func(outcome string, err error) *WebhookResult {
		Metrics.IncrWebhook(outcome)
		logger.Error().Err(err).Msg("Webhook delivery not applied")
		ing.DB.Model(&models.WebhookEvent{}).Where("id = ?", event.ID).Update("error", truncate(err.Error(), 1000))
		return &WebhookResult{Status: WebhookStatusErrorLogged, EventID: event.EventID}
	}
	defer func() {
		if r := recover(); r != nil {
			result = fail(observability.WebhookFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	inbound, err := InterpretPayload(payload)
	if err != nil {
		return fail(observability.WebhookInvalidPayload, err)
	}

	// Echoes of our own outbound messages carry no new inbound content
	if inbound.FromMe {
		ing.markProcessed(event.ID, nil, now)
		Metrics.IncrWebhook(observability.WebhookProcessed)
		return &WebhookResult{Status: WebhookStatusOK, EventID: event.EventID}
	}

	msg := models.WhatsAppMessage{
		OfficeID:      cfg.OfficeID,
		ConfigID:      cfg.ID,
		ContactNumber: inbound.Sender,
		ContactName:   inbound.SenderName,
		ContactID:     inbound.Sender,
		Type:          inbound.Type,
		Direction:     models.DirectionInbound,
		Status:        models.MessageDelivered,
		Content:       inbound.Body,
		MessageID:     event.EventID,
		DeliveredAt:   &now,
	}
	if !event.Synthesized {
		msg.ExternalID = event.EventID
	}

	var conv *models.Conversation
	err = ing.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		conv, _, err = GetOrCreateConversation(tx, cfg, inbound.Sender, inbound.SenderName)
		if err != nil {
			return err
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to store inbound message: %w", err)
		}
		linkClient := conv.ClientID == nil && msg.ClientID != nil
		if !conv.Open || linkClient {
			updates := map[string]interface{}{"open": true}
			if linkClient {
				updates["client_id"] = *msg.ClientID
				conv.ClientID = msg.ClientID
			}
			if err := tx.Model(conv).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to reopen conversation: %w", err)
			}
			conv.Open = true
		}
		if err := tx.Model(&models.WhatsAppConfig{}).Where("id = ?", cfg.ID).
			Update("messages_received", gorm.Expr("messages_received + 1")).Error; err != nil {
			return fmt.Errorf("failed to count inbound message: %w", err)
		}
		if err := RecomputeConversation(tx, conv, now); err != nil {
			return err
		}
		return ing.markProcessedTx(tx, event.ID, &msg.ID, now)
	})
	if err != nil {
		return fail(observability.WebhookFailed, err)
	}

	Metrics.IncrWebhook(observability.WebhookProcessed)
	Events.Publish(Event{Type: EventMessageReceived, OfficeID: cfg.OfficeID, Data: msg})
	Events.Publish(Event{Type: EventConversationUpdated, OfficeID: cfg.OfficeID, Data: conv})

	if ing.Sender != nil {
		if _, err := AutoReply(ctx, ing.DB, ing.Sender, cfg, &msg, now); err != nil {
			logger.Warn().Err(err).Msg("Chatbot auto-reply failed")
		}
	}

	return &WebhookResult{Status: WebhookStatusOK, EventID: event.EventID, MessageID: msg.ID}
}

func (ing *Ingestor) markProcessed(eventID string, messageID *string, now time.Time) {
	if err := ing.markProcessedTx(ing.DB, eventID, messageID, now); err != nil {
		log.Error().Err(err).Str("webhook_event", eventID).Msg("Failed to mark webhook processed")
	}
}

func (ing *Ingestor) markProcessedTx(tx *gorm.DB, eventID string, messageID *string, now time.Time) error {
	return tx.Model(&models.WebhookEvent{}).Where("id = ?", eventID).Updates(map[string]interface{}{
		"processed":    true,
		"processed_at": now,
		"message_id":   messageID,
	}).Error
}
