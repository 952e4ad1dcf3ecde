package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// TemplateHandler handles document template library routes.
type TemplateHandler struct {
	Templates *services.TemplateService
}

// List handles GET /api/templates
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	result, err := h.Templates.List(c.Query("type"), c.Query("jurisdiction"), c.QueryBool("includeInactive", false))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listTemplates")
	}
	return ok(c, result)
}

// Get handles GET /api/templates/:id
func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	result, err := h.Templates.Get(c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getTemplate")
	}
	return ok(c, result)
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var input services.CreateTemplateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Templates.Create(principal(c), input)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createTemplate")
	}
	return created(c, result)
}

// Deactivate handles DELETE /api/templates/:id
func (h *TemplateHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.Templates.Deactivate(principal(c), c.Params("id")); err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "deactivateTemplate")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
