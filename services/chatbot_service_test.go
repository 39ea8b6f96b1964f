package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func steps(messages ...string) models.FlowDefinition {
	def := models.FlowDefinition{}
	for _, m := range messages {
		def.Steps = append(def.Steps, models.FlowStep{Message: m})
	}
	return def
}

func seedFlow(t *testing.T, database *gorm.DB, cfg *models.WhatsAppConfig, flow models.ChatbotFlow) *models.ChatbotFlow {
	t.Helper()
	flow.OfficeID = cfg.OfficeID
	if flow.Name == "" {
		flow.Name = "Fluxo"
	}
	flow.Active = true
	flow.AutoReply = true
	mustCreate(t, database, &flow)
	return &flow
}

func TestCreateChatbotFlow(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	other := seedOffice(t, database, "Souza")
	cfg := seedConfig(t, database, f, "5511900000001")
	otherCfg := seedConfig(t, database, other, "5511900000002")
	scope := tenant.ForOffice(f.office.ID)

	off := false
	flow, err := CreateChatbotFlow(database, scope, f.admin, ChatbotFlowInput{
		Name:      "Horário",
		ConfigID:  &cfg.ID,
		Keywords:  "horário\nfuncionamento",
		AutoReply: &off,
		Flow:      steps("Atendemos das 9h às 18h."),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FlowService, flow.Type)
	assert.True(t, flow.Active)

	var stored models.ChatbotFlow
	require.NoError(t, database.First(&stored, "id = ?", flow.ID).Error)
	assert.False(t, stored.AutoReply)
	assert.Equal(t, "Atendemos das 9h às 18h.", stored.Flow.Steps[0].Message)

	tests := []struct {
		name  string
		in    ChatbotFlowInput
		field string
	}{
		{"no triggers", ChatbotFlowInput{Name: "Vazio"}, "keywords"},
		{"bad type", ChatbotFlowInput{Name: "Tipo", Type: "sales", Keywords: "x"}, "type"},
		{"foreign config", ChatbotFlowInput{Name: "Outro", Keywords: "x", ConfigID: &otherCfg.ID}, "config_id"},
		{"foreign transfer user", ChatbotFlowInput{Name: "Outro", Keywords: "x", TransferUserID: &other.lawyer.ID}, "transfer_user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateChatbotFlow(database, scope, f.admin, tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err = GetChatbotFlow(database, tenant.ForOffice(other.office.ID), flow.ID)
	assert.True(t, IsNotFound(err))
}

func TestInvalidPatterns(t *testing.T) {
	assert.Empty(t, InvalidPatterns("^oi\nbom (dia|tarde)"))
	assert.Equal(t, []string{"(aberto", "[z-a]"}, InvalidPatterns("ok\n(aberto\n\n[z-a]"))
}

func TestMatchFlowOrder(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	otherCfg := seedConfig(t, database, f, "5511900000002")

	seedFlow(t, database, cfg, models.ChatbotFlow{Name: "Outro canal", Keywords: "processo", ConfigID: &otherCfg.ID})
	late := seedFlow(t, database, cfg, models.ChatbotFlow{Name: "Genérico", Keywords: "processo", Order: 5})
	early := seedFlow(t, database, cfg, models.ChatbotFlow{Name: "Andamento", Patterns: `andamento.*process`, Order: 1})
	disabled := seedFlow(t, database, cfg, models.ChatbotFlow{Name: "Desligado", Keywords: "boleto"})
	require.NoError(t, database.Model(disabled).Update("active", false).Error)

	match, err := MatchFlow(database, cfg, "Qual o ANDAMENTO do meu processo?")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, early.ID, match.ID)

	match, err = MatchFlow(database, cfg, "meu processo")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, late.ID, match.ID)

	match, err = MatchFlow(database, cfg, "segunda via do boleto")
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = MatchFlow(database, cfg, "   ")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestTestChatbotFlows(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	flow := seedFlow(t, database, cfg, models.ChatbotFlow{Keywords: "oi*"})

	result, err := TestChatbotFlows(database, tenant.ForOffice(f.office.ID), cfg.ID, "oi, tudo bem?")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, flow.ID, result.Flow.ID)
	assert.Equal(t, models.DefaultGreeting, result.Reply)

	var stored models.ChatbotFlow
	require.NoError(t, database.First(&stored, "id = ?", flow.ID).Error)
	assert.Zero(t, stored.Executions)
}

func inboundFor(t *testing.T, database *gorm.DB, cfg *models.WhatsAppConfig, text string) *models.WhatsAppMessage {
	t.Helper()
	msg := addMessage(t, database, cfg, "5511987654321", models.DirectionInbound, false, fixedNow())
	require.NoError(t, database.Model(msg).Update("content", text).Error)
	msg.Content = text
	return msg
}

func TestAutoReply(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	cfg.AutoReply = true
	flow := seedFlow(t, database, cfg, models.ChatbotFlow{Keywords: "honorários", Flow: steps("Vou verificar seus honorários.", "Algo mais?")})
	inbound := inboundFor(t, database, cfg, "Dúvida sobre honorários")

	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything, "5511987654321", "Vou verificar seus honorários.").Return("BOT-1", nil).Once()

	reply, err := AutoReply(context.Background(), database, sender, cfg, inbound, fixedNow())
	require.NoError(t, err)
	require.NotNil(t, reply)
	sender.AssertExpectations(t)
	assert.True(t, reply.AnsweredByBot)
	assert.Nil(t, reply.ResponsibleID)
	assert.True(t, inbound.AnsweredByBot)

	var stored models.ChatbotFlow
	require.NoError(t, database.First(&stored, "id = ?", flow.ID).Error)
	assert.Equal(t, 1, stored.Executions)
	assert.Equal(t, 1, stored.Successes)
	require.NotNil(t, stored.LastExecutedAt)
}

func TestAutoReplySkips(t *testing.T) {
	saturday := time.Date(2026, time.April, 18, 10, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.April, 15, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		autoReply bool
		flowReply bool
		now       time.Time
	}{
		{"auto reply off", false, true, fixedNow()},
		{"weekend", true, true, saturday},
		{"after hours", true, true, evening},
		{"flow without auto reply", true, false, fixedNow()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := setupTestDB(t)
			f := seedOffice(t, database, "Silva")
			cfg := seedConfig(t, database, f, "5511900000001")
			cfg.AutoReply = tt.autoReply
			flow := seedFlow(t, database, cfg, models.ChatbotFlow{Keywords: "oi", Flow: steps("Olá!")})
			if !tt.flowReply {
				require.NoError(t, database.Model(flow).Update("auto_reply", false).Error)
			}
			inbound := inboundFor(t, database, cfg, "oi")

			sender := new(mockSender)
			reply, err := AutoReply(context.Background(), database, sender, cfg, inbound, tt.now)
			require.NoError(t, err)
			assert.Nil(t, reply)
			sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAutoReplyFlowWithoutSteps(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	cfg.AutoReply = true
	flow := seedFlow(t, database, cfg, models.ChatbotFlow{Keywords: "oi"})
	inbound := inboundFor(t, database, cfg, "oi")

	sender := new(mockSender)
	reply, err := AutoReply(context.Background(), database, sender, cfg, inbound, fixedNow())
	require.NoError(t, err)
	assert.Nil(t, reply)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	var stored models.ChatbotFlow
	require.NoError(t, database.First(&stored, "id = ?", flow.ID).Error)
	assert.Equal(t, 1, stored.Executions)
	assert.Equal(t, 1, stored.Failures)
}

func TestAutoReplyTransfersToHuman(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	cfg.AutoReply = true
	seedFlow(t, database, cfg, models.ChatbotFlow{
		Keywords:        "advogado",
		Flow:            steps("Um momento."),
		TransferToHuman: true,
		TransferUserID:  &f.lawyer.ID,
		TransferMessage: "Vou chamar um advogado.",
	})
	conv := openConversation(t, database, cfg, "5511987654321")
	inbound := inboundFor(t, database, cfg, "quero falar com um advogado")

	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything, "5511987654321", "Vou chamar um advogado.").Return("BOT-2", nil).Once()

	_, err := AutoReply(context.Background(), database, sender, cfg, inbound, fixedNow())
	require.NoError(t, err)
	sender.AssertExpectations(t)

	var stored models.Conversation
	require.NoError(t, database.First(&stored, "id = ?", conv.ID).Error)
	require.NotNil(t, stored.AssignedUserID)
	assert.Equal(t, f.lawyer.ID, *stored.AssignedUserID)
}

func TestAutoReplyDeliveryFailureIsSwallowed(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	cfg := seedConfig(t, database, f, "5511900000001")
	cfg.AutoReply = true
	seedFlow(t, database, cfg, models.ChatbotFlow{Keywords: "oi", Flow: steps("Olá!")})
	inbound := inboundFor(t, database, cfg, "oi")

	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", &ExternalServiceError{Service: "whatsapp", Err: errors.New("circuit open")})

	reply, err := AutoReply(context.Background(), database, sender, cfg, inbound, fixedNow())
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, models.MessageFailed, reply.Status)
	assert.False(t, inbound.AnsweredByBot)
}
