package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"legalflow/config"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers emails. Jobs receive one so tests can record instead of send.
type Mailer interface {
	Send(email *Email) error
}

// ResendMailer sends through the Resend API, or logs when EmailTestMode is on.
type ResendMailer struct {
	cfg    *config.Config
	client *resend.Client
}

func NewResendMailer(cfg *config.Config) *ResendMailer {
	m := &ResendMailer{cfg: cfg}
	if cfg.ResendAPIKey != "" {
		m.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return m
}

func (m *ResendMailer) Send(email *Email) error {
	if email.HTMLBody == "" && email.TextBody == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	if m.cfg.EmailTestMode {
		log.Info().
			Strs("to", email.To).
			Str("subject", email.Subject).
			Str("body", truncate(email.TextBody, 500)).
			Msg("Email logged (test mode, not sent)")
		return nil
	}
	if m.client == nil {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	sent, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.EmailFromName, m.cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	})
	if err != nil {
		return &ExternalServiceError{Service: "email", Err: err}
	}

	log.Info().Str("id", sent.Id).Strs("to", email.To).Msg("Email sent via Resend")
	return nil
}

// SendEmailAsync sends a copy of email in the background.
func SendEmailAsync(m Mailer, email *Email) {
	cp := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}
	go func() {
		if err := m.Send(cp); err != nil {
			log.Error().Err(err).Strs("to", cp.To).Msg("Error sending async email")
		}
	}()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

const deadlineAlertText = `Olá {{.UserName}},

O prazo "{{.Title}}" do processo {{.Reference}} vence em {{.DueDate}}{{if ge .DaysRemaining 0}} ({{.DaysRemaining}} dia(s) restante(s)){{end}}.
Prioridade: {{.Priority}}

{{.Link}}
`

const deadlineAlertHTML = `<p>Olá {{.UserName}},</p>
<p>O prazo <strong>{{.Title}}</strong> do processo {{.Reference}} vence em <strong>{{.DueDate}}</strong>.</p>
<p>Prioridade: {{.Priority}}</p>
<p><a href="{{.Link}}">Abrir prazo</a></p>`

const financialReminderText = `Olá {{.UserName}},

O lançamento "{{.Description}}" de {{.Amount}} vence em {{.DueDate}}.
Valor em aberto: {{.Outstanding}}

{{.Link}}
`

const financialReminderHTML = `<p>Olá {{.UserName}},</p>
<p>O lançamento <strong>{{.Description}}</strong> de {{.Amount}} vence em <strong>{{.DueDate}}</strong>.</p>
<p>Valor em aberto: {{.Outstanding}}</p>
<p><a href="{{.Link}}">Abrir lançamento</a></p>`

var (
	deadlineAlertTemplates     = mustParseEmail("deadline_alert", deadlineAlertHTML, deadlineAlertText)
	financialReminderTemplates = mustParseEmail("financial_reminder", financialReminderHTML, financialReminderText)
)

type emailTemplates struct {
	html *template.Template
	text *texttemplate.Template
}

func mustParseEmail(name, html, text string) emailTemplates {
	return emailTemplates{
		html: template.Must(template.New(name + ".html").Parse(html)),
		text: texttemplate.Must(texttemplate.New(name + ".txt").Parse(text)),
	}
}

func (t emailTemplates) render(to, subject string, data interface{}) (*Email, error) {
	var html, text bytes.Buffer
	if err := t.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", t.html.Name(), err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", t.text.Name(), err)
	}
	return &Email{To: []string{to}, Subject: subject, HTMLBody: html.String(), TextBody: text.String()}, nil
}

// DeadlineAlertEmailData feeds the deadline alert template
type DeadlineAlertEmailData struct {
	UserName      string
	Title         string
	Reference     string
	DueDate       string
	DaysRemaining int
	Priority      string
	Link          string
}

// BuildDeadlineAlertEmail creates the alert sent to a deadline's responsible user
func BuildDeadlineAlertEmail(to string, data DeadlineAlertEmailData) (*Email, error) {
	subject := "Prazo se aproximando: " + data.Title
	if strings.EqualFold(data.Priority, "urgent") {
		subject = "[URGENTE] " + subject
	}
	return deadlineAlertTemplates.render(to, subject, data)
}

// FinancialReminderEmailData feeds the financial reminder template
type FinancialReminderEmailData struct {
	UserName    string
	Description string
	Amount      string
	Outstanding string
	DueDate     string
	Link        string
}

// BuildFinancialReminderEmail creates a due-date reminder for finance users
func BuildFinancialReminderEmail(to string, data FinancialReminderEmailData) (*Email, error) {
	return financialReminderTemplates.render(to, "Lembrete de vencimento: "+data.Description, data)
}

// FormatBRL renders an amount as R$ 1.234,56.
func FormatBRL(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	cents := int64(amount*100 + 0.5)
	whole := fmt.Sprintf("%d", cents/100)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	out := fmt.Sprintf("R$ %s,%02d", grouped.String(), cents%100)
	if negative {
		return "-" + out
	}
	return out
}
