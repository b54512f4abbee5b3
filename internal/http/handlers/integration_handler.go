package handlers

import (
	"github.com/estate-crm/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type IntegrationHandler struct {
	automationService *services.AutomationService
	log               *zap.Logger
}

func NewIntegrationHandler(automationService *services.AutomationService, log *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{automationService: automationService, log: log}
}

func (h *IntegrationHandler) ListN8nWorkflows(c *fiber.Ctx) error {
	workflows, err := h.automationService.ListN8nWorkflows(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(workflows)
}

func (h *IntegrationHandler) ListMakeScenarios(c *fiber.Ctx) error {
	scenarios, err := h.automationService.ListMakeScenarios(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(scenarios)
}
