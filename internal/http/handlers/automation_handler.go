package handlers

import (
	"github.com/estate-crm/backend/internal/http/dto"
	"github.com/estate-crm/backend/internal/middleware"
	"github.com/estate-crm/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AutomationHandler struct {
	automationService *services.AutomationService
	log               *zap.Logger
}

func NewAutomationHandler(automationService *services.AutomationService, log *zap.Logger) *AutomationHandler {
	return &AutomationHandler{automationService: automationService, log: log}
}

func (h *AutomationHandler) ListAutomations(c *fiber.Ctx) error {
	automations, err := h.automationService.List(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(automations)
}

func (h *AutomationHandler) GetAutomation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	a, err := h.automationService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(a)
}

func (h *AutomationHandler) CreateAutomation(c *fiber.Ctx) error {
	var req dto.AutomationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	a, err := h.automationService.Create(c.UserContext(), middleware.GetOperatorID(c), req.Draft())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AutomationHandler) UpdateAutomation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	var req dto.AutomationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	a, err := h.automationService.Update(c.UserContext(), middleware.GetOperatorID(c), id, req.Draft())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(a)
}

func (h *AutomationHandler) ToggleAutomation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	var req dto.ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.IsActive == nil {
		return badRequest(c, "isActive is required")
	}

	if err := h.automationService.SetActive(c.UserContext(), middleware.GetOperatorID(c), id, *req.IsActive); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *AutomationHandler) DeleteAutomation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	if err := h.automationService.Delete(c.UserContext(), middleware.GetOperatorID(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *AutomationHandler) GetLogs(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	logs, err := h.automationService.Logs(c.UserContext(), id, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(logs)
}

func (h *AutomationHandler) GetAuditTrail(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	entries, err := h.automationService.AuditTrail(c.UserContext(), id, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(entries)
}

func (h *AutomationHandler) TestAutomation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	var req dto.TestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	results, err := h.automationService.Test(c.UserContext(), id, req.Payload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.TestResponse{Results: results})
}

func (h *AutomationHandler) GenerateAutomation(c *fiber.Ctx) error {
	var req dto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.Description == "" {
		return badRequest(c, "description is required")
	}

	return c.JSON(h.automationService.Generate(c.UserContext(), req.Description))
}

func (h *AutomationHandler) ExportN8n(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	wf, err := h.automationService.ExportN8n(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(wf)
}

func (h *AutomationHandler) ExportMake(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	bp, err := h.automationService.ExportMake(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(bp)
}

func (h *AutomationHandler) DeployN8n(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	res, err := h.automationService.DeployN8n(c.UserContext(), middleware.GetOperatorID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *AutomationHandler) DeployMake(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid automation id")
	}

	res, err := h.automationService.DeployMake(c.UserContext(), middleware.GetOperatorID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}
