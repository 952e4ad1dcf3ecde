package services

import (
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
)

// AuditService writes the audit trail for mutating operations. Writes
// are best effort; a failed audit insert never fails the operation it
// records.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService returns an AuditService backed by db.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one audit row. Details is marshaled to JSON; a nil
// map writes a null details column.
func (s *AuditService) Record(p *auth.Principal, action, entityType, entityID string, details map[string]interface{}) {
	s.write(s.entry(p, action, entityType, entityID, details))
}

// RecordRequest is Record plus the request client metadata.
func (s *AuditService) RecordRequest(p *auth.Principal, action, entityType, entityID, ip, userAgent string, details map[string]interface{}) {
	entry := s.entry(p, action, entityType, entityID, details)
	entry.IPAddress = ip
	entry.UserAgent = userAgent
	s.write(entry)
}

func (s *AuditService) entry(p *auth.Principal, action, entityType, entityID string, details map[string]interface{}) models.AuditLog {
	entry := models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if p != nil {
		entry.UserID = p.ID
		entry.UserType = p.UserType
		entry.LawFirmID = s.firmID(p)
		if p.IsFirm() {
			id := p.ID
			entry.FirmUserID = &id
		}
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = models.JSON{JSON: datatypes.JSON(raw)}
		}
	}
	return entry
}

// firmID resolves the firm an action belongs to. Client principals are
// attributed through their client's firm.
func (s *AuditService) firmID(p *auth.Principal) string {
	if p.IsFirm() {
		return p.LawFirmID
	}
	var client models.PropertyMgmtClient
	if err := s.db.Select("law_firm_id").First(&client, "id = ?", p.ClientID).Error; err != nil {
		return ""
	}
	return client.LawFirmID
}

func (s *AuditService) write(entry models.AuditLog) {
	if err := s.db.Create(&entry).Error; err != nil {
		slog.Warn("audit write failed", "action", entry.Action, "entityType", entry.EntityType, "error", err)
	}
}

// List returns the caller's firm's audit rows, newest first.
func (s *AuditService) List(p *auth.Principal, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.Where("law_firm_id = ?", s.firmID(p)).Order("created_at DESC").Limit(limit)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}
	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
