package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/types"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// CaseHandler handles case lifecycle routes.
type CaseHandler struct {
	Cases *services.CaseService
}

// List handles GET /api/cases
func (h *CaseHandler) List(c *fiber.Ctx) error {
	filter := services.ListFilter{
		Status:     c.Query("status"),
		ClientID:   c.Query("clientId"),
		PropertyID: c.Query("propertyId"),
		Search:     c.Query("search"),
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("pageSize", 50),
	}

	cases, total, err := h.Cases.List(principal(c), filter)
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listCases")
	}
	return ok(c, fiber.Map{
		"cases": cases,
		"total": total,
		"page":  filter.Page,
	})
}

// Get handles GET /api/cases/:id
func (h *CaseHandler) Get(c *fiber.Ctx) error {
	result, err := h.Cases.Get(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getCase")
	}
	return ok(c, result)
}

type createCaseRequest struct {
	services.CreateCaseInput
	AmountOwed *types.FlexFloat64 `json:"amountOwed"`
}

// Create handles POST /api/cases
func (h *CaseHandler) Create(c *fiber.Ctx) error {
	var req createCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	input := req.CreateCaseInput
	if req.AmountOwed != nil {
		amount := req.AmountOwed.Float64()
		input.AmountOwed = &amount
	}

	result, err := h.Cases.Create(principal(c), input)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createCase")
	}
	return created(c, result)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// SetStatus handles PUT /api/cases/:id/status
func (h *CaseHandler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Cases.SetStatus(principal(c), c.Params("id"), req.Status, req.Note)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "setCaseStatus")
	}
	return ok(c, result)
}

type closeRequest struct {
	Outcome string `json:"outcome"`
}

// Close handles POST /api/cases/:id/close
func (h *CaseHandler) Close(c *fiber.Ctx) error {
	var req closeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Cases.Close(principal(c), c.Params("id"), req.Outcome)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "closeCase")
	}
	return ok(c, result)
}

type bulkStatusRequest struct {
	CaseIDs types.FlexList[string] `json:"caseIds"`
	Status  string                 `json:"status"`
}

// BulkStatus handles POST /api/cases/bulk/status
func (h *CaseHandler) BulkStatus(c *fiber.Ctx) error {
	var req bulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Cases.BulkSetStatus(principal(c), req.CaseIDs.Slice(), req.Status)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "bulkSetStatus")
	}
	return ok(c, result)
}

// Import handles POST /api/cases/import with a multipart CSV file.
func (h *CaseHandler) Import(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ValidationResponse(c, "A CSV file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, "Could not read uploaded file", fiber.StatusBadRequest, "importCases")
	}
	defer f.Close()

	result, err := h.Cases.ImportCSV(principal(c), c.FormValue("clientId"), f)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "importCases")
	}
	return ok(c, result)
}

// AddEvent handles POST /api/cases/:id/events
func (h *CaseHandler) AddEvent(c *fiber.Ctx) error {
	var event models.CaseEvent
	if err := c.BodyParser(&event); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	if event.Title == "" || event.EventType == "" {
		return utils.ValidationResponse(c, "eventType and title are required")
	}
	result, err := h.Cases.AddEvent(principal(c), c.Params("id"), event)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "addCaseEvent")
	}
	return created(c, result)
}

// UpdateEvent handles PUT /api/cases/:id/events/:eventId
func (h *CaseHandler) UpdateEvent(c *fiber.Ctx) error {
	var input services.UpdateEventInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Cases.UpdateEvent(principal(c), c.Params("id"), c.Params("eventId"), input)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "updateCaseEvent")
	}
	return ok(c, result)
}

// UpcomingEvents handles GET /api/events/upcoming
func (h *CaseHandler) UpcomingEvents(c *fiber.Ctx) error {
	result, err := h.Cases.UpcomingEvents(principal(c), c.QueryInt("days", 30))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "upcomingEvents")
	}
	return ok(c, fiber.Map{"events": result})
}

// DeleteEvent handles DELETE /api/cases/:id/events/:eventId
func (h *CaseHandler) DeleteEvent(c *fiber.Ctx) error {
	err := h.Cases.DeleteEvent(principal(c), c.Params("id"), c.Params("eventId"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "deleteCaseEvent")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type commentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"isInternal"`
}

// AddComment handles POST /api/cases/:id/comments
func (h *CaseHandler) AddComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Cases.AddComment(principal(c), c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "addComment")
	}
	return created(c, result)
}

// ListComments handles GET /api/cases/:id/comments
func (h *CaseHandler) ListComments(c *fiber.Ctx) error {
	result, err := h.Cases.ListComments(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listComments")
	}
	return ok(c, result)
}
