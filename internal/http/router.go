package http

import (
	"time"

	"github.com/estate-crm/backend/internal/config"
	"github.com/estate-crm/backend/internal/http/handlers"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/middleware"
	"github.com/estate-crm/backend/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewApp builds the Fiber app with the JSON error handler used by every
// route that returns an error instead of writing a response.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
}

// SetupOpsRouter registers /health and, when m is set, /metrics. Background
// processes mount only these routes.
func SetupOpsRouter(app *fiber.App, m *metrics.Registry) {
	if m != nil {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			m.Handler()(c.Context())
			return nil
		})
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

type Deps struct {
	Config            *config.Config
	Log               *zap.Logger
	Redis             *redis.Client // nil disables rate limiting
	Metrics           *metrics.Registry
	AutomationService *services.AutomationService
	WSHub             *handlers.WSHub // nil disables /ws
}

func SetupRouter(app *fiber.App, d Deps) {
	cfg, log := d.Config, d.Log

	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	if d.Metrics != nil {
		app.Use(middleware.MetricsMiddleware(d.Metrics))
	}
	SetupOpsRouter(app, d.Metrics)

	api := app.Group("/api")
	if d.Redis != nil {
		api.Use(middleware.RateLimitMiddleware(d.Redis, cfg.RateLimitPerMinute, time.Minute, log))
	}
	api.Use(middleware.AuthMiddleware(cfg, log))

	automationHandler := handlers.NewAutomationHandler(d.AutomationService, log)
	integrationHandler := handlers.NewIntegrationHandler(d.AutomationService, log)
	webhookHandler := handlers.NewWebhookHandler(d.AutomationService, log)
	metaHandler := handlers.NewMetaHandler()

	// Catalogs and generation are registered before /:id routes.
	api.Get("/automations/triggers", metaHandler.GetTriggers)
	api.Get("/automations/actions", metaHandler.GetActions)
	api.Post("/automations/generate", automationHandler.GenerateAutomation)

	// Automations
	api.Get("/automations", automationHandler.ListAutomations)
	api.Post("/automations", automationHandler.CreateAutomation)
	api.Get("/automations/:id", automationHandler.GetAutomation)
	api.Put("/automations/:id", automationHandler.UpdateAutomation)
	api.Patch("/automations/:id/toggle", automationHandler.ToggleAutomation)
	api.Delete("/automations/:id", automationHandler.DeleteAutomation)
	api.Get("/automations/:id/logs", automationHandler.GetLogs)
	api.Get("/automations/:id/audit", automationHandler.GetAuditTrail)
	api.Post("/automations/:id/test", automationHandler.TestAutomation)
	api.Post("/automations/:id/export/n8n", automationHandler.ExportN8n)
	api.Post("/automations/:id/export/make", automationHandler.ExportMake)
	api.Post("/automations/:id/deploy/n8n", automationHandler.DeployN8n)
	api.Post("/automations/:id/deploy/make", automationHandler.DeployMake)

	// Integrations
	api.Get("/integrations/n8n/workflows", integrationHandler.ListN8nWorkflows)
	api.Get("/integrations/make/scenarios", integrationHandler.ListMakeScenarios)

	// Inbound triggers
	api.Post("/webhooks/automation-trigger", webhookHandler.TriggerAutomations)

	// WebSocket
	if d.WSHub != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(d.WSHub.HandleWS))
	}
}
