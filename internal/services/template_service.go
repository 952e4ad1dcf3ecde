package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
)

// TemplateService manages the document template library. Templates are
// versioned by (name, type, jurisdiction); saving an existing key bumps
// the version and deactivates the predecessor. Templates are never
// deleted, only deactivated.
type TemplateService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewTemplateService returns a TemplateService backed by db.
func NewTemplateService(db *gorm.DB, audit *AuditService) *TemplateService {
	return &TemplateService{db: db, audit: audit}
}

// CreateTemplateInput is the template save payload.
type CreateTemplateInput struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Jurisdiction string      `json:"jurisdiction"`
	TemplatePath string      `json:"templatePath"`
	MergeFields  models.JSON `json:"mergeFields"`
}

// Create saves a template. When the (name, type, jurisdiction) key
// already exists the new row carries version latest+1 and the active
// predecessor is deactivated.
func (s *TemplateService) Create(p *auth.Principal, input CreateTemplateInput) (*models.DocumentTemplate, error) {
	if input.Name == "" || input.Type == "" || input.Jurisdiction == "" || input.TemplatePath == "" {
		return nil, errors.New("name, type, jurisdiction and templatePath are required")
	}

	var created models.DocumentTemplate
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var latest models.DocumentTemplate
		version := 1
		err := tx.Where("name = ? AND type = ? AND jurisdiction = ?", input.Name, input.Type, input.Jurisdiction).
			Order("version DESC").
			First(&latest).Error
		switch {
		case err == nil:
			version = latest.Version + 1
			if err := tx.Model(&models.DocumentTemplate{}).
				Where("name = ? AND type = ? AND jurisdiction = ? AND is_active = ?",
					input.Name, input.Type, input.Jurisdiction, true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First version of this key
		default:
			return err
		}

		created = models.DocumentTemplate{
			Name:         input.Name,
			Type:         input.Type,
			Jurisdiction: input.Jurisdiction,
			Version:      version,
			TemplatePath: input.TemplatePath,
			MergeFields:  input.MergeFields,
			IsActive:     true,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(p, "template.create", "template", created.ID, map[string]interface{}{
		"name": created.Name, "version": created.Version,
	})
	return &created, nil
}

// List returns templates, optionally filtered by type and jurisdiction.
// By default only active versions are returned.
func (s *TemplateService) List(docType, jurisdiction string, includeInactive bool) ([]models.DocumentTemplate, error) {
	q := s.db.Order("name ASC, version DESC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if docType != "" {
		q = q.Where("type = ?", docType)
	}
	if jurisdiction != "" {
		q = q.Where("jurisdiction = ?", jurisdiction)
	}
	var templates []models.DocumentTemplate
	if err := q.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Get returns one template by ID.
func (s *TemplateService) Get(id string) (*models.DocumentTemplate, error) {
	var t models.DocumentTemplate
	if err := s.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Deactivate retires a template version without removing it. Prior
// generated documents keep their TemplateID reference.
func (s *TemplateService) Deactivate(p *auth.Principal, id string) error {
	res := s.db.Model(&models.DocumentTemplate{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit.Record(p, "template.deactivate", "template", id, nil)
	return nil
}
