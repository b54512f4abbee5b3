package handlers

import (
	"github.com/estate-crm/backend/internal/http/dto"
	"github.com/estate-crm/backend/internal/models"
	"github.com/estate-crm/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookHandler accepts trigger events pushed by other CRM components
// and external systems.
type WebhookHandler struct {
	automationService *services.AutomationService
	log               *zap.Logger
}

func NewWebhookHandler(automationService *services.AutomationService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{automationService: automationService, log: log}
}

// TriggerAutomations runs every active automation for the trigger type.
// Unknown trigger types simply match nothing.
func (h *WebhookHandler) TriggerAutomations(c *fiber.Ctx) error {
	var req dto.TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.TriggerType == "" {
		return badRequest(c, "triggerType is required")
	}

	runs, err := h.automationService.Dispatch(c.UserContext(), models.NewTriggerEvent(req.TriggerType, req.Payload))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.TriggerResponse{Triggered: len(runs), Results: runs})
}
