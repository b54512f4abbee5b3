package integrations

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WhatsAppMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type WhatsAppResult struct {
	Sent    bool   `json:"sent"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// WhatsAppSender delivers WhatsApp messages.
type WhatsAppSender interface {
	Send(ctx context.Context, msg WhatsAppMessage) (*WhatsAppResult, error)
}

// UltraMsgClient sends messages through the UltraMsg chat API.
type UltraMsgClient struct {
	baseURL string
	token   string
	http    *httpDoer
}

func NewUltraMsgClient(baseURL, token string, client *http.Client, log *zap.Logger) *UltraMsgClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &UltraMsgClient{
		baseURL: baseURL,
		token:   token,
		http:    newHTTPDoer("ultramsg", client, log),
	}
}

func (c *UltraMsgClient) Send(ctx context.Context, msg WhatsAppMessage) (*WhatsAppResult, error) {
	resp, err := c.http.do(ctx, http.MethodPost, c.baseURL+"messages/chat", nil, map[string]string{
		"token": c.token,
		"to":    msg.To,
		"body":  msg.Body,
	})
	if err != nil {
		return nil, err
	}

	// UltraMsg reports "sent" either as a bool or as the string "true".
	var raw map[string]any
	if err := decodeJSON("ultramsg", resp, &raw); err != nil {
		return nil, err
	}
	result := &WhatsAppResult{Sent: truthy(raw["sent"])}
	if v, ok := raw["id"]; ok && v != nil {
		result.ID = fmt.Sprint(v)
	}
	if v, ok := raw["message"].(string); ok {
		result.Message = v
	}
	if v, ok := raw["error"]; ok && v != nil && result.Message == "" {
		result.Message = fmt.Sprint(v)
	}
	return result, nil
}

// SimulatedWhatsApp accepts every message without calling UltraMsg.
type SimulatedWhatsApp struct {
	log *zap.Logger
}

func NewSimulatedWhatsApp(log *zap.Logger) *SimulatedWhatsApp {
	return &SimulatedWhatsApp{log: log}
}

func (s *SimulatedWhatsApp) Send(_ context.Context, msg WhatsAppMessage) (*WhatsAppResult, error) {
	s.log.Info("whatsapp not configured, simulating send", zap.String("to", msg.To))
	return &WhatsAppResult{Sent: true, ID: simulatedID(), Message: "simulated"}, nil
}

func simulatedID() string {
	return "sim-" + uuid.NewString()
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(x, "true")
	default:
		return false
	}
}
