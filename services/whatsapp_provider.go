package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"legalflow/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("legalflow/services")

// MessageSender delivers outbound WhatsApp messages through a config's provider.
type MessageSender interface {
	Send(ctx context.Context, cfg *models.WhatsAppConfig, to, text string) (externalID string, err error)
	Status(ctx context.Context, cfg *models.WhatsAppConfig) (string, error)
}

// WhatsApp is the sender used by handlers and the webhook auto-reply.
var WhatsApp MessageSender = NewProviderClient(&http.Client{Timeout: 15 * time.Second})

// ErrProviderNotConfigured is returned for configs without an API URL.
var ErrProviderNotConfigured = errors.New("provider API URL is not configured")

// NewProviderBreaker builds the circuit breaker guarding one config's provider.
func NewProviderBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// ProviderClient talks HTTP to the supported providers. Each config gets its
// own breaker so one broken instance does not block the others.
type ProviderClient struct {
	httpClient *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewProviderClient(httpClient *http.Client) *ProviderClient {
	return &ProviderClient{
		httpClient: httpClient,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (p *ProviderClient) breaker(configID string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	cb, ok := p.breakers[configID]
	if !ok {
		cb = NewProviderBreaker("whatsapp:" + configID)
		p.breakers[configID] = cb
	}
	return cb
}

type providerRequest struct {
	method  string
	url     string
	headers map[string]string
	body    interface{}
}

func sendRequest(cfg *models.WhatsAppConfig, to, text string) (providerRequest, error) {
	base := strings.TrimRight(cfg.APIURL, "/")
	if base == "" {
		return providerRequest{}, ErrProviderNotConfigured
	}
	key, err := OpenSecret(cfg.APIKey)
	if err != nil {
		return providerRequest{}, err
	}
	number := models.OnlyDigits(to)

	switch cfg.Provider {
	case models.ProviderEvolution:
		return providerRequest{
			method:  http.MethodPost,
			url:     fmt.Sprintf("%s/message/sendText/%s", base, cfg.InstanceName),
			headers: map[string]string{"apikey": key},
			body:    map[string]string{"number": number, "text": text},
		}, nil
	case models.ProviderWhapi:
		return providerRequest{
			method:  http.MethodPost,
			url:     base + "/messages/text",
			headers: map[string]string{"Authorization": "Bearer " + key},
			body:    map[string]string{"to": number, "body": text},
		}, nil
	case models.ProviderOfficial:
		return providerRequest{
			method:  http.MethodPost,
			url:     fmt.Sprintf("%s/%s/messages", base, cfg.InstanceID),
			headers: map[string]string{"Authorization": "Bearer " + key},
			body: map[string]interface{}{
				"messaging_product": "whatsapp",
				"to":                number,
				"type":              "text",
				"text":              map[string]string{"body": text},
			},
		}, nil
	default:
		session := cfg.InstanceName
		if session == "" {
			session = cfg.InstanceID
		}
		return providerRequest{
			method:  http.MethodPost,
			url:     fmt.Sprintf("%s/api/%s/send-message", base, session),
			headers: map[string]string{"Authorization": "Bearer " + key},
			body:    map[string]string{"phone": number, "message": text},
		}, nil
	}
}

func statusRequest(cfg *models.WhatsAppConfig) (providerRequest, error) {
	base := strings.TrimRight(cfg.APIURL, "/")
	if base == "" {
		return providerRequest{}, ErrProviderNotConfigured
	}
	key, err := OpenSecret(cfg.APIKey)
	if err != nil {
		return providerRequest{}, err
	}
	switch cfg.Provider {
	case models.ProviderEvolution:
		return providerRequest{
			method:  http.MethodGet,
			url:     fmt.Sprintf("%s/instance/connectionState/%s", base, cfg.InstanceName),
			headers: map[string]string{"apikey": key},
		}, nil
	case models.ProviderWhapi:
		return providerRequest{
			method:  http.MethodGet,
			url:     base + "/health",
			headers: map[string]string{"Authorization": "Bearer " + key},
		}, nil
	case models.ProviderOfficial:
		return providerRequest{
			method:  http.MethodGet,
			url:     fmt.Sprintf("%s/%s", base, cfg.InstanceID),
			headers: map[string]string{"Authorization": "Bearer " + key},
		}, nil
	default:
		session := cfg.InstanceName
		if session == "" {
			session = cfg.InstanceID
		}
		return providerRequest{
			method:  http.MethodGet,
			url:     fmt.Sprintf("%s/api/%s/check-connection-session", base, session),
			headers: map[string]string{"Authorization": "Bearer " + key},
		}, nil
	}
}

func (p *ProviderClient) do(ctx context.Context, req providerRequest) (map[string]interface{}, error) {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode provider request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	out := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return out, nil
}

// Send posts a text message and returns the provider's message id, which may
// be empty when the provider does not report one.
func (p *ProviderClient) Send(ctx context.Context, cfg *models.WhatsAppConfig, to, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.Send")
	defer span.End()
	span.SetAttributes(
		attribute.String("whatsapp.config_id", cfg.ID),
		attribute.String("whatsapp.provider", cfg.Provider),
	)

	req, err := sendRequest(cfg, to, text)
	if err != nil {
		return "", &ExternalServiceError{Service: "whatsapp", Err: err}
	}

	result, err := p.breaker(cfg.ID).Execute(func() (any, error) {
		return p.do(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &ExternalServiceError{Service: "whatsapp", Err: err}
	}

	return extractString(result.(map[string]interface{}),
		"key.id",
		"message.id",
		"messages.0.id",
		"id",
		"response.id",
	), nil
}

// Status asks the provider for the session state and maps it onto the
// connection statuses stored on the config.
func (p *ProviderClient) Status(ctx context.Context, cfg *models.WhatsAppConfig) (string, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.Status")
	defer span.End()
	span.SetAttributes(attribute.String("whatsapp.config_id", cfg.ID))

	req, err := statusRequest(cfg)
	if err != nil {
		return models.ConnError, &ExternalServiceError{Service: "whatsapp", Err: err}
	}

	result, err := p.breaker(cfg.ID).Execute(func() (any, error) {
		return p.do(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.ConnError, &ExternalServiceError{Service: "whatsapp", Err: err}
	}

	state := strings.ToLower(extractString(result.(map[string]interface{}),
		"instance.state",
		"state",
		"status.text",
		"status",
	))
	switch state {
	case "open", "connected", "auth", "authenticated", "inchat", "islogged", "true":
		return models.ConnConnected, nil
	case "connecting", "init", "launch":
		return models.ConnConnecting, nil
	case "qr", "qrcode", "qr_code", "notlogged":
		return models.ConnQRCode, nil
	case "close", "closed", "disconnected", "logout", "false":
		return models.ConnDisconnected, nil
	case "":
		// Graph API answers the phone object without a state field
		if cfg.Provider == models.ProviderOfficial {
			return models.ConnConnected, nil
		}
		return models.ConnUnknown, nil
	default:
		return models.ConnUnknown, nil
	}
}

// extractString returns the first non-empty string found at one of the
// dotted paths. Numeric segments index into arrays.
func extractString(doc map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := lookupPath(doc, path); ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case bool:
				return strconv.FormatBool(s)
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}
	return ""
}

func lookupPath(doc map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
