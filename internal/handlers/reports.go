package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/services"
)

// ReportHandler handles reporting routes.
type ReportHandler struct {
	Reports *services.ReportService
}

// Dashboard handles GET /api/reports/dashboard
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	result, err := h.Reports.BuildDashboard(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "dashboard")
	}
	return ok(c, result)
}

// CaseVolume handles GET /api/reports/case-volume
func (h *ReportHandler) CaseVolume(c *fiber.Ctx) error {
	result, err := h.Reports.CaseVolume(principal(c), c.QueryInt("months", 12))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "caseVolume")
	}
	return ok(c, result)
}

// Timeline handles GET /api/reports/timeline-metrics
func (h *ReportHandler) Timeline(c *fiber.Ctx) error {
	result, err := h.Reports.Timeline(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "timelineMetrics")
	}
	return ok(c, result)
}
