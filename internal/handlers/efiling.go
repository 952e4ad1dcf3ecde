package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/services"
)

// EFilingHandler handles court configuration and filing routes.
type EFilingHandler struct {
	EFiling *services.EFilingService
}

// ListCourts handles GET /api/courts
func (h *EFilingHandler) ListCourts(c *fiber.Ctx) error {
	return ok(c, services.CourtConfigs())
}

// Submit handles POST /api/cases/:id/file
func (h *EFilingHandler) Submit(c *fiber.Ctx) error {
	result, err := h.EFiling.Submit(c.Context(), principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusBadGateway, "submitFiling")
	}
	return ok(c, result)
}

// CheckStatus handles POST /api/cases/:id/filing-status
func (h *EFilingHandler) CheckStatus(c *fiber.Ctx) error {
	if err := h.EFiling.CheckStatus(c.Context(), c.Params("id")); err != nil {
		return svcError(c, err, fiber.StatusBadGateway, "checkFilingStatus")
	}
	return ok(c, fiber.Map{"checked": true})
}
