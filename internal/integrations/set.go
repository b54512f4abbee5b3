package integrations

import (
	"net/http"
	"time"

	"github.com/estate-crm/backend/internal/config"
	"go.uber.org/zap"
)

// Set bundles the outbound clients used by automation actions.
type Set struct {
	WhatsApp WhatsAppSender
	N8n      N8nRunner
	Make     MakeRunner
	Webhook  WebhookCaller
}

// New selects the live or simulated strategy for each vendor from cfg.
// Generic webhooks are always live.
func New(cfg *config.Config, log *zap.Logger) Set {
	client := &http.Client{
		Timeout: cfg.IntegrationTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	set := Set{Webhook: NewHTTPWebhookCaller(client, log)}

	if cfg.WhatsAppLive() {
		set.WhatsApp = NewUltraMsgClient(cfg.UltraMsgAPIURL, cfg.UltraMsgToken, client, log)
	} else {
		set.WhatsApp = NewSimulatedWhatsApp(log)
	}

	if cfg.N8nLive() {
		set.N8n = NewN8nClient(cfg.N8nBaseURL, cfg.N8nAPIKey, client, log)
	} else {
		set.N8n = NewSimulatedN8n(log)
	}

	if cfg.MakeLive() {
		set.Make = NewMakeClient(cfg.MakeBaseURL, cfg.MakeAPIURL, cfg.MakeAPIKey, cfg.MakeTeamID, client, log)
	} else {
		set.Make = NewSimulatedMake(log)
	}

	log.Info("integrations configured",
		zap.Bool("whatsapp_live", cfg.WhatsAppLive()),
		zap.Bool("n8n_live", cfg.N8nLive()),
		zap.Bool("make_live", cfg.MakeLive()),
	)
	return set
}
