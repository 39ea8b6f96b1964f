package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legalflow/models"
	"legalflow/observability"
	"legalflow/services"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, cfg *models.WhatsAppConfig, to, text string) (string, error) {
	args := m.Called(ctx, cfg, to, text)
	return args.String(0), args.Error(1)
}

func (m *mockSender) Status(ctx context.Context, cfg *models.WhatsAppConfig) (string, error) {
	args := m.Called(ctx, cfg)
	return args.String(0), args.Error(1)
}

func useSender(t *testing.T, sender services.MessageSender) {
	t.Helper()
	previous := services.WhatsApp
	services.WhatsApp = sender
	t.Cleanup(func() { services.WhatsApp = previous })
}

func seedConfig(t *testing.T, database *gorm.DB, f fixture, phone string) *models.WhatsAppConfig {
	t.Helper()
	cfg := &models.WhatsAppConfig{
		OfficeID:     f.office.ID,
		Name:         f.office.Name + " WhatsApp",
		PhoneNumber:  phone,
		Provider:     models.ProviderEvolution,
		APIURL:       "http://provider.invalid",
		InstanceName: "main",
		Status:       models.ConnConnected,
		Active:       true,
	}
	require.NoError(t, database.Create(cfg).Error)
	return cfg
}

const inboundPayload = `{"event":"messages.upsert","data":{"key":{"id":"3EB0C767D26A","remoteJid":"5511987654321@s.whatsapp.net","fromMe":false},"pushName":"Maria","messageType":"conversation","message":{"conversation":"Olá, preciso de ajuda"}}}`

func postWebhook(e http.Handler, configID, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp/"+configID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(services.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookIsIdempotent(t *testing.T) {
	database := setupTestDB(t)
	e, metrics := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")

	rec := postWebhook(e, cfg.ID, inboundPayload, "")
	expectStatus(t, rec, http.StatusOK)
	var first services.WebhookResult
	decode(t, rec, &first)
	assert.Equal(t, services.WebhookStatusOK, first.Status)
	assert.Equal(t, "3EB0C767D26A", first.EventID)

	rec = postWebhook(e, cfg.ID, inboundPayload, "")
	expectStatus(t, rec, http.StatusOK)
	var second services.WebhookResult
	decode(t, rec, &second)
	assert.Equal(t, services.WebhookStatusAlreadyProcessed, second.Status)

	var messages int64
	database.Model(&models.WhatsAppMessage{}).Count(&messages)
	assert.Equal(t, int64(1), messages)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WebhookCounter(observability.WebhookDuplicate)))

	// The inbound message opens a conversation waiting for an answer
	rec = do(t, e, http.MethodGet, "/api/whatsapp/conversations/pending", f.lawyer, nil)
	expectStatus(t, rec, http.StatusOK)
	var pending []services.ConversationView
	decode(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "5511987654321", pending[0].ContactNumber)
	assert.Equal(t, 1, pending[0].UnreadCount)

	// Interns hold no WhatsApp capability and the channel has no allow-list
	rec = do(t, e, http.MethodGet, "/api/whatsapp/conversations/pending", f.intern, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &pending)
	assert.Empty(t, pending)
}

func TestWebhookRejections(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	signed := seedConfig(t, database, f, "5511900000002")
	require.NoError(t, database.Model(signed).Update("webhook_secret", "s3cr3t").Error)

	t.Run("unknown config", func(t *testing.T) {
		rec := postWebhook(e, "00000000-0000-0000-0000-000000000000", inboundPayload, "")
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("not a JSON object", func(t *testing.T) {
		rec := postWebhook(e, cfg.ID, `["a","b"]`, "")
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("bad signature", func(t *testing.T) {
		rec := postWebhook(e, signed.ID, inboundPayload, "sha256=00ff")
		expectStatus(t, rec, http.StatusForbidden)
	})

	t.Run("good signature", func(t *testing.T) {
		rec := postWebhook(e, signed.ID, inboundPayload, services.SignWebhookBody("s3cr3t", []byte(inboundPayload)))
		expectStatus(t, rec, http.StatusOK)
	})
}

func TestSendMessage(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")

	sender := new(mockSender)
	useSender(t, sender)
	sender.On("Send", mock.Anything, mock.Anything, "5511987654321", "Sua audiência foi confirmada").
		Return("wamid.1", nil).Once()

	body := map[string]interface{}{
		"contact_number": "+55 (11) 98765-4321",
		"content":        "Sua audiência foi confirmada",
	}

	rec := do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/send-message", f.intern, body)
	expectStatus(t, rec, http.StatusForbidden)

	rec = do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/send-message", f.lawyer, body)
	expectStatus(t, rec, http.StatusCreated)
	var msg models.WhatsAppMessage
	decode(t, rec, &msg)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, "wamid.1", msg.ExternalID)
	assert.Equal(t, models.DirectionOutbound, msg.Direction)

	sender.AssertExpectations(t)
}

func TestSendMessageProviderFailure(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")

	sender := new(mockSender)
	useSender(t, sender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", &services.ExternalServiceError{Service: "whatsapp", Err: errors.New("instance offline")})

	rec := do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/send-message", f.lawyer, map[string]interface{}{
		"contact_number": "5511987654321",
		"content":        "Bom dia",
	})
	expectStatus(t, rec, http.StatusBadGateway)

	var stored models.WhatsAppMessage
	require.NoError(t, database.First(&stored).Error)
	assert.Equal(t, models.MessageFailed, stored.Status)
}

func TestWhatsAppPermissions(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")

	sender := new(mockSender)
	useSender(t, sender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("wamid.2", nil)

	// Only WhatsApp managers change the allow-list
	rec := do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/permissions", f.intern, map[string]string{
		"user_id": f.intern.ID,
		"action":  services.PermissionAdd,
	})
	expectStatus(t, rec, http.StatusForbidden)

	rec = do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/permissions", f.admin, map[string]string{
		"user_id": f.intern.ID,
		"action":  services.PermissionAdd,
	})
	expectStatus(t, rec, http.StatusOK)

	send := map[string]interface{}{"contact_number": "5511987654321", "content": "Olá"}
	rec = do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/send-message", f.intern, send)
	expectStatus(t, rec, http.StatusCreated)

	// With an allow-list in place, managers outside it lose access
	rec = do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/send-message", f.lawyer, send)
	expectStatus(t, rec, http.StatusForbidden)

	rec = do(t, e, http.MethodPost, "/api/whatsapp/configs/"+cfg.ID+"/permissions", f.admin, map[string]string{
		"user_id": f.intern.ID,
		"action":  "grant",
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestBusinessHoursFollowOfficeTimezone(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	require.NoError(t, database.Model(cfg).Updates(map[string]interface{}{"opens_at": "09:00", "closes_at": "18:00"}).Error)

	// Friday 20:30 UTC is 17:30 in São Paulo
	pinClock(t, time.Date(2026, 10, 16, 20, 30, 0, 0, time.UTC))

	var view services.WhatsAppConfigView
	rec := do(t, e, http.MethodGet, "/api/whatsapp/configs/"+cfg.ID, f.admin, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &view)
	assert.False(t, view.WithinBusinessHours)

	UseLocation(time.FixedZone("BRT", -3*60*60))
	rec = do(t, e, http.MethodGet, "/api/whatsapp/configs/"+cfg.ID, f.admin, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &view)
	assert.True(t, view.WithinBusinessHours)
}
