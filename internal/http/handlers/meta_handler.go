package handlers

import (
	"github.com/estate-crm/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

// MetaHandler serves the static trigger and action catalogs.
type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

func (h *MetaHandler) GetTriggers(c *fiber.Ctx) error {
	return c.JSON(models.SortedTriggerDefinitions())
}

func (h *MetaHandler) GetActions(c *fiber.Ctx) error {
	return c.JSON(models.SortedActionDefinitions())
}
