package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/types"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// DocumentHandler handles document and approval routes.
type DocumentHandler struct {
	Documents   *services.DocumentService
	MaxFileSize int64
}

type generateRequest struct {
	Type string `json:"type"`
}

// Generate handles POST /api/cases/:id/documents/generate
func (h *DocumentHandler) Generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Documents.Generate(principal(c), c.Params("id"), req.Type)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "generateDocument")
	}
	return created(c, result)
}

type bulkGenerateRequest struct {
	CaseIDs types.FlexList[string] `json:"caseIds"`
	Type    string                 `json:"type"`
}

// BulkGenerate handles POST /api/documents/bulk/generate
func (h *DocumentHandler) BulkGenerate(c *fiber.Ctx) error {
	var req bulkGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	if len(req.CaseIDs.Slice()) == 0 || req.Type == "" {
		return utils.ValidationResponse(c, "caseIds and type are required")
	}
	result, err := h.Documents.BulkGenerate(principal(c), req.CaseIDs.Slice(), req.Type)
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "bulkGenerateDocuments")
	}
	return ok(c, result)
}

// Upload handles POST /api/cases/:id/documents with a multipart file.
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ValidationResponse(c, "A file is required")
	}
	if h.MaxFileSize > 0 && fileHeader.Size > h.MaxFileSize {
		return utils.ErrorResponse(c, "File exceeds the maximum allowed size", fiber.StatusRequestEntityTooLarge, "uploadDocument")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, "Could not read uploaded file", fiber.StatusBadRequest, "uploadDocument")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return utils.ErrorResponse(c, "Could not read uploaded file", fiber.StatusBadRequest, "uploadDocument")
	}

	result, err := h.Documents.Upload(
		principal(c),
		c.Params("id"),
		c.FormValue("type"),
		c.FormValue("name"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		content,
	)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "uploadDocument")
	}
	return created(c, result)
}

// ListByCase handles GET /api/cases/:id/documents
func (h *DocumentHandler) ListByCase(c *fiber.Ctx) error {
	result, err := h.Documents.ListByCase(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listDocuments")
	}
	return ok(c, result)
}

// Download handles GET /api/documents/:id/download
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	doc, err := h.Documents.Get(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "downloadDocument")
	}
	c.Set("Content-Type", doc.MimeType)
	return c.Download(doc.FilePath, doc.FileName)
}

// Delete handles DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.Documents.Delete(principal(c), c.Params("id")); err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "deleteDocument")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RequestApproval handles POST /api/documents/:id/request-approval
func (h *DocumentHandler) RequestApproval(c *fiber.Ctx) error {
	result, err := h.Documents.RequestApproval(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "requestApproval")
	}
	return ok(c, result)
}

// Approve handles POST /api/documents/:id/approve
func (h *DocumentHandler) Approve(c *fiber.Ctx) error {
	result, err := h.Documents.Approve(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "approveDocument")
	}
	return ok(c, result)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/documents/:id/reject
func (h *DocumentHandler) Reject(c *fiber.Ctx) error {
	var req rejectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Documents.Reject(principal(c), c.Params("id"), req.Reason)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "rejectDocument")
	}
	return ok(c, result)
}

// PendingApprovals handles GET /api/documents/pending-approvals
func (h *DocumentHandler) PendingApprovals(c *fiber.Ctx) error {
	result, err := h.Documents.PendingApprovals(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "pendingApprovals")
	}
	return ok(c, result)
}
