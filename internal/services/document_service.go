package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/docgen"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/policy"
	"github.com/propertilaw/propertilaw/internal/types"
)

// DocumentService owns document generation, uploads and the approval
// workflow.
type DocumentService struct {
	db        *gorm.DB
	cases     *CaseService
	generator *docgen.Generator
	notify    *NotificationService
	audit     *AuditService
	uploadDir string
}

// NewDocumentService returns a DocumentService writing files under
// uploadDir.
func NewDocumentService(db *gorm.DB, cases *CaseService, generator *docgen.Generator, notify *NotificationService, audit *AuditService, uploadDir string) *DocumentService {
	return &DocumentService{
		db:        db,
		cases:     cases,
		generator: generator,
		notify:    notify,
		audit:     audit,
		uploadDir: uploadDir,
	}
}

// buildFields assembles the merge values for a case. Missing relations
// leave their fields empty rather than failing the generation.
func (s *DocumentService) buildFields(c *models.Case) docgen.Fields {
	fields := docgen.Fields{
		"caseNumber":   c.CaseNumber,
		"reason":       c.Reason,
		"jurisdiction": c.Jurisdiction,
		"date":         time.Now().UTC().Format("January 2, 2006"),
	}
	if c.AmountOwed != nil {
		fields["amountOwed"] = strconv.FormatFloat(*c.AmountOwed, 'f', 2, 64)
	}
	if c.MonthsOwed != nil {
		fields["monthsOwed"] = strconv.Itoa(*c.MonthsOwed)
	}

	if c.Property != nil {
		fields["propertyAddress"] = c.Property.Address
		fields["county"] = c.Property.County
		fields["state"] = c.Property.State
	}

	for _, ct := range c.Tenants {
		if ct.IsPrimary && ct.Tenant != nil {
			fields["tenantName"] = ct.Tenant.FirstName + " " + ct.Tenant.LastName
			if ct.Tenant.UnitID != nil {
				var unit models.Unit
				if err := s.db.First(&unit, "id = ?", *ct.Tenant.UnitID).Error; err == nil {
					fields["unitNumber"] = unit.UnitNumber
				}
			}
			break
		}
	}

	var client models.PropertyMgmtClient
	if err := s.db.Preload("LawFirm").First(&client, "id = ?", c.ClientID).Error; err == nil {
		fields["clientName"] = client.Name
		if client.LawFirm != nil {
			fields["firmName"] = client.LawFirm.Name
		}
	}

	if c.AssignedAttorneyID != nil {
		var attorney models.FirmUser
		if err := s.db.First(&attorney, "id = ?", *c.AssignedAttorneyID).Error; err == nil {
			fields["attorneyName"] = attorney.FirstName + " " + attorney.LastName
		}
	}

	return fields
}

// render resolves the document body. The newest active library template
// for the case's jurisdiction wins; the built-in body is the fallback
// when no template matches or its file is unreadable.
func (s *DocumentService) render(c *models.Case, docType string) ([]byte, *string, error) {
	fields := s.buildFields(c)

	var tpl models.DocumentTemplate
	err := s.db.Where("type = ? AND jurisdiction = ? AND is_active = ?", docType, c.Jurisdiction, true).
		Order("version DESC").First(&tpl).Error
	if err == nil {
		if body, readErr := os.ReadFile(tpl.TemplatePath); readErr == nil {
			content, renderErr := s.generator.RenderTemplate(string(body), fields)
			if renderErr == nil {
				id := tpl.ID
				return content, &id, nil
			}
		}
	}

	content, err := s.generator.Render(docType, fields)
	return content, nil, err
}

// Generate renders a typed document for a case and records it as a
// generated document. Firm users only.
func (s *DocumentService) Generate(p *auth.Principal, caseID, docType string) (*models.Document, error) {
	c, err := s.cases.Get(p, caseID)
	if err != nil {
		return nil, err
	}

	content, templateID, err := s.render(c, docType)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s %s", docType, c.CaseNumber)
	fileName := fmt.Sprintf("%s-%s.pdf", c.CaseNumber, uuid.NewString()[:8])
	filePath := filepath.Join(s.uploadDir, fileName)
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return nil, fmt.Errorf("document write failed: %w", err)
	}

	doc := models.Document{
		CaseID:      c.ID,
		Type:        docType,
		Name:        name,
		FileName:    fileName,
		FilePath:    filePath,
		FileSize:    int64(len(content)),
		MimeType:    "application/pdf",
		IsGenerated: true,
		TemplateID:  templateID,
	}
	if p.IsFirm() {
		doc.UploadedByID = &p.ID
	} else {
		doc.UploadedByClientID = &p.ID
	}
	if err := s.db.Create(&doc).Error; err != nil {
		return nil, err
	}

	s.audit.Record(p, "document.generate", "document", doc.ID, map[string]interface{}{
		"caseId": c.ID, "type": docType,
	})
	return &doc, nil
}

// Upload stores raw file content as a case document. The uploader
// reference is exclusive: a firm user sets UploadedByID, a client user
// sets UploadedByClientID.
func (s *DocumentService) Upload(p *auth.Principal, caseID, docType, name, fileName, mimeType string, content []byte) (*models.Document, error) {
	c, err := s.cases.Get(p, caseID)
	if err != nil {
		return nil, err
	}

	stored := fmt.Sprintf("%s-%s", uuid.NewString()[:8], filepath.Base(fileName))
	filePath := filepath.Join(s.uploadDir, stored)
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return nil, fmt.Errorf("document write failed: %w", err)
	}

	if name == "" {
		name = fileName
	}
	doc := models.Document{
		CaseID:   c.ID,
		Type:     docType,
		Name:     name,
		FileName: stored,
		FilePath: filePath,
		FileSize: int64(len(content)),
		MimeType: mimeType,
	}
	if p.IsClient() {
		doc.UploadedByClientID = &p.ID
	} else {
		doc.UploadedByID = &p.ID
	}
	if err := s.db.Create(&doc).Error; err != nil {
		return nil, err
	}

	s.audit.Record(p, "document.upload", "document", doc.ID, map[string]interface{}{
		"caseId": c.ID, "fileName": fileName,
	})
	return &doc, nil
}

// getScoped loads a document through the case scope.
func (s *DocumentService) getScoped(p *auth.Principal, docID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.Preload("Case").First(&doc, "id = ?", docID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.cases.Get(p, doc.CaseID); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get returns one document visible to the principal.
func (s *DocumentService) Get(p *auth.Principal, docID string) (*models.Document, error) {
	return s.getScoped(p, docID)
}

// ListByCase returns a case's documents, newest first.
func (s *DocumentService) ListByCase(p *auth.Principal, caseID string) ([]models.Document, error) {
	if _, err := s.cases.Get(p, caseID); err != nil {
		return nil, err
	}
	var docs []models.Document
	if err := s.db.Where("case_id = ?", caseID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// RequestApproval puts a document into the approval flow and notifies
// the client's users. Requesting approval on a document already pending
// is a no-op refresh of the request.
func (s *DocumentService) RequestApproval(p *auth.Principal, docID string) (*models.Document, error) {
	doc, err := s.getScoped(p, docID)
	if err != nil {
		return nil, err
	}

	pending := models.ApprovalPending
	updates := map[string]interface{}{
		"approval_required": true,
		"approval_status":   pending,
		"approved_by_id":    nil,
		"approved_at":       nil,
		"rejection_reason":  nil,
	}
	if err := s.db.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	doc.ApprovalRequired = true
	doc.ApprovalStatus = &pending

	if doc.Case != nil {
		s.notify.NotifyApprovalRequested(doc, doc.Case.CaseNumber)
	}
	s.audit.Record(p, "document.approval_requested", "document", doc.ID, nil)
	return doc, nil
}

// Approve marks a document approved. The decision is permissive about
// prior state: a document outside the flow or already decided may still
// be approved. ApprovedByID records the decider only for firm users.
func (s *DocumentService) Approve(p *auth.Principal, docID string) (*models.Document, error) {
	doc, err := s.getScoped(p, docID)
	if err != nil {
		return nil, err
	}

	approved := models.ApprovalApproved
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"approval_status":  approved,
		"approved_at":      now,
		"rejection_reason": nil,
	}
	if p.IsFirm() {
		updates["approved_by_id"] = p.ID
	}
	if err := s.db.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	doc.ApprovalStatus = &approved
	doc.ApprovedAt = &now

	if doc.Case != nil {
		s.notify.NotifyApprovalDecision(doc, doc.Case.CaseNumber, "approved", "")
	}
	s.audit.Record(p, "document.approved", "document", doc.ID, nil)
	return doc, nil
}

// Reject marks a document rejected. A reason is required.
func (s *DocumentService) Reject(p *auth.Principal, docID, reason string) (*models.Document, error) {
	if reason == "" {
		return nil, &types.CustomError{Code: 400, Message: "a rejection reason is required", Type: "validation"}
	}
	doc, err := s.getScoped(p, docID)
	if err != nil {
		return nil, err
	}

	rejected := models.ApprovalRejected
	updates := map[string]interface{}{
		"approval_status":  rejected,
		"rejection_reason": reason,
		"approved_by_id":   nil,
		"approved_at":      nil,
	}
	if err := s.db.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	doc.ApprovalStatus = &rejected
	doc.RejectionReason = &reason

	if doc.Case != nil {
		s.notify.NotifyApprovalDecision(doc, doc.Case.CaseNumber, "rejected", reason)
	}
	s.audit.Record(p, "document.rejected", "document", doc.ID, map[string]interface{}{"reason": reason})
	return doc, nil
}

// BulkGenerateError reports one case that failed during bulk generation.
type BulkGenerateError struct {
	CaseID  string `json:"caseId"`
	Message string `json:"message"`
}

// BulkGenerateResult is the outcome of a bulk generation run.
type BulkGenerateResult struct {
	Documents []models.Document   `json:"documents"`
	Errors    []BulkGenerateError `json:"errors"`
}

// BulkGenerate renders the same document type for each case. Failures
// are collected per case; one bad case does not stop the rest.
func (s *DocumentService) BulkGenerate(p *auth.Principal, caseIDs []string, docType string) (*BulkGenerateResult, error) {
	result := &BulkGenerateResult{
		Documents: []models.Document{},
		Errors:    []BulkGenerateError{},
	}
	for _, id := range caseIDs {
		doc, err := s.Generate(p, id, docType)
		if err != nil {
			result.Errors = append(result.Errors, BulkGenerateError{CaseID: id, Message: err.Error()})
			continue
		}
		result.Documents = append(result.Documents, *doc)
	}
	return result, nil
}

// PendingApprovals lists documents awaiting a decision within the
// caller's scope.
func (s *DocumentService) PendingApprovals(p *auth.Principal) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.
		Joins("JOIN cases ON cases.id = documents.case_id").
		Scopes(func(db *gorm.DB) *gorm.DB { return policy.ScopeCases(db, p) }).
		Where("documents.approval_status = ?", models.ApprovalPending).
		Preload("Case").
		Order("documents.created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a document row and its file. Firm users only.
func (s *DocumentService) Delete(p *auth.Principal, docID string) error {
	doc, err := s.getScoped(p, docID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
		return err
	}
	if doc.FilePath != "" {
		_ = os.Remove(doc.FilePath)
	}
	s.audit.Record(p, "document.delete", "document", doc.ID, nil)
	return nil
}
