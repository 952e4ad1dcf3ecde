package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// FirmHandler handles firm, user, settings and audit routes.
type FirmHandler struct {
	Firm  *services.FirmService
	Audit *services.AuditService
}

// Get handles GET /api/firm
func (h *FirmHandler) Get(c *fiber.Ctx) error {
	result, err := h.Firm.GetFirm(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getFirm")
	}
	return ok(c, result)
}

// ListUsers handles GET /api/firm/users
func (h *FirmHandler) ListUsers(c *fiber.Ctx) error {
	result, err := h.Firm.ListFirmUsers(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listFirmUsers")
	}
	return ok(c, result)
}

// CreateUser handles POST /api/firm/users
func (h *FirmHandler) CreateUser(c *fiber.Ctx) error {
	var user models.FirmUser
	if err := c.BodyParser(&user); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Firm.CreateFirmUser(principal(c), user)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createFirmUser")
	}
	return created(c, result)
}

// DeactivateUser handles DELETE /api/firm/users/:id
func (h *FirmHandler) DeactivateUser(c *fiber.Ctx) error {
	if err := h.Firm.DeactivateFirmUser(principal(c), c.Params("id")); err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "deactivateFirmUser")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSettings handles GET /api/firm/settings
func (h *FirmHandler) GetSettings(c *fiber.Ctx) error {
	result, err := h.Firm.GetSettings(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getSettings")
	}
	return ok(c, result)
}

// UpdateSettings handles PUT /api/firm/settings
func (h *FirmHandler) UpdateSettings(c *fiber.Ctx) error {
	var input services.UpdateSettingsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Firm.UpdateSettings(principal(c), input)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "updateSettings")
	}
	return ok(c, result)
}

// ListAudit handles GET /api/audit
func (h *FirmHandler) ListAudit(c *fiber.Ctx) error {
	result, err := h.Audit.List(principal(c), c.Query("entityType"), c.Query("entityId"), c.QueryInt("limit", 100))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listAudit")
	}
	return ok(c, result)
}
