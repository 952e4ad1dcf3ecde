package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
)

// FirmService manages law firms, their users and per-firm settings.
type FirmService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewFirmService returns a FirmService backed by db.
func NewFirmService(db *gorm.DB, audit *AuditService) *FirmService {
	return &FirmService{db: db, audit: audit}
}

// GetFirm returns the principal's law firm.
func (s *FirmService) GetFirm(p *auth.Principal) (*models.LawFirm, error) {
	var firm models.LawFirm
	if err := s.db.First(&firm, "id = ?", p.LawFirmID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &firm, nil
}

// validFirmRole reports whether role names a firm-side role.
func validFirmRole(role string) bool {
	switch role {
	case models.RoleLawFirmAdmin, models.RoleAttorney, models.RoleParalegal, models.RoleStaff:
		return true
	}
	return false
}

// CreateFirmUser adds a user to the principal's firm.
func (s *FirmService) CreateFirmUser(p *auth.Principal, user models.FirmUser) (*models.FirmUser, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if !validFirmRole(user.Role) {
		return nil, fmt.Errorf("invalid firm role: %s", user.Role)
	}
	user.Model = models.Model{}
	user.LawFirmID = p.LawFirmID
	user.IsActive = true
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "firm_user.create", "firm_user", user.ID, map[string]interface{}{"email": user.Email})
	return &user, nil
}

// ListFirmUsers returns the firm's users.
func (s *FirmService) ListFirmUsers(p *auth.Principal) ([]models.FirmUser, error) {
	var users []models.FirmUser
	err := s.db.Where("law_firm_id = ?", p.LawFirmID).Order("last_name ASC, first_name ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeactivateFirmUser disables a user's access without removing the row.
func (s *FirmService) DeactivateFirmUser(p *auth.Principal, userID string) error {
	res := s.db.Model(&models.FirmUser{}).
		Where("id = ? AND law_firm_id = ?", userID, p.LawFirmID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit.Record(p, "firm_user.deactivate", "firm_user", userID, nil)
	return nil
}

// GetSettings returns the firm's settings row, creating it with the
// defaults on first read.
func (s *FirmService) GetSettings(p *auth.Principal) (*models.FirmSettings, error) {
	var settings models.FirmSettings
	err := s.db.Where("law_firm_id = ?", p.LawFirmID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.FirmSettings{
			LawFirmID:          p.LawFirmID,
			SyncSchedule:       "0 2 * * *",
			DataRetentionYears: 7,
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettingsInput carries the mutable settings fields. Nil fields
// are left unchanged.
type UpdateSettingsInput struct {
	DefaultNotificationEmail *string `json:"defaultNotificationEmail"`
	SyncSchedule             *string `json:"syncSchedule"`
	DataRetentionYears       *int    `json:"dataRetentionYears"`
	BrandingLogo             *string `json:"brandingLogo"`
}

// UpdateSettings applies a partial settings update.
func (s *FirmService) UpdateSettings(p *auth.Principal, input UpdateSettingsInput) (*models.FirmSettings, error) {
	settings, err := s.GetSettings(p)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.DefaultNotificationEmail != nil {
		updates["default_notification_email"] = *input.DefaultNotificationEmail
	}
	if input.SyncSchedule != nil {
		updates["sync_schedule"] = *input.SyncSchedule
	}
	if input.DataRetentionYears != nil {
		if *input.DataRetentionYears < 1 {
			return nil, fmt.Errorf("dataRetentionYears must be at least 1")
		}
		updates["data_retention_years"] = *input.DataRetentionYears
	}
	if input.BrandingLogo != nil {
		updates["branding_logo"] = *input.BrandingLogo
	}
	if len(updates) == 0 {
		return settings, nil
	}

	if err := s.db.Model(settings).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "firm_settings.update", "firm_settings", settings.ID, nil)
	return s.GetSettings(p)
}
