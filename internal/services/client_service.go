package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/policy"
)

// ClientService manages property-management clients, their users and
// their PMS integrations.
type ClientService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewClientService returns a ClientService backed by db.
func NewClientService(db *gorm.DB, audit *AuditService) *ClientService {
	return &ClientService{db: db, audit: audit}
}

// Create adds a client under the principal's firm. Firm users only.
func (s *ClientService) Create(p *auth.Principal, client models.PropertyMgmtClient) (*models.PropertyMgmtClient, error) {
	if client.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	client.Model = models.Model{}
	client.LawFirmID = p.LawFirmID
	if err := s.db.Create(&client).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "client.create", "client", client.ID, map[string]interface{}{"name": client.Name})
	return &client, nil
}

// List returns clients within the caller's scope.
func (s *ClientService) List(p *auth.Principal) ([]models.PropertyMgmtClient, error) {
	var clients []models.PropertyMgmtClient
	err := policy.ScopeClients(s.db, p).Order("name ASC").Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// Get returns one client, or ErrNotFound for rows outside the scope.
func (s *ClientService) Get(p *auth.Principal, clientID string) (*models.PropertyMgmtClient, error) {
	var client models.PropertyMgmtClient
	err := policy.ScopeClients(s.db, p).
		Preload("Users").
		Preload("Integrations").
		First(&client, "property_mgmt_clients.id = ?", clientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Update applies a partial update to a client's contact fields.
func (s *ClientService) Update(p *auth.Principal, clientID string, updates map[string]interface{}) (*models.PropertyMgmtClient, error) {
	client, err := s.Get(p, clientID)
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"name": true, "primary_contact": true, "email": true, "phone": true, "address": true,
	}
	filtered := map[string]interface{}{}
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return client, nil
	}

	if err := s.db.Model(&models.PropertyMgmtClient{}).Where("id = ?", client.ID).Updates(filtered).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "client.update", "client", client.ID, nil)
	return s.Get(p, clientID)
}

// CreateClientUser adds a user to a client within the firm's scope.
func (s *ClientService) CreateClientUser(p *auth.Principal, clientID string, user models.ClientUser) (*models.ClientUser, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if user.Role == "" {
		user.Role = models.RoleClientUser
	}
	if user.Role != models.RoleClientAdmin && user.Role != models.RoleClientUser {
		return nil, fmt.Errorf("invalid client role: %s", user.Role)
	}
	if _, err := s.Get(p, clientID); err != nil {
		return nil, err
	}

	user.Model = models.Model{}
	user.ClientID = clientID
	user.IsActive = true
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "client_user.create", "client_user", user.ID, map[string]interface{}{"email": user.Email})
	return &user, nil
}

// CreateIntegrationInput carries the integration connection payload.
type CreateIntegrationInput struct {
	Type string `json:"type"`

	APIKey    *string `json:"apiKey"`
	APISecret *string `json:"apiSecret"`
	APIURL    *string `json:"apiUrl"`

	SFTPHost     *string `json:"sftpHost"`
	SFTPPort     *int    `json:"sftpPort"`
	SFTPUser     *string `json:"sftpUser"`
	SFTPPassword *string `json:"sftpPassword"`
	SFTPPath     *string `json:"sftpPath"`
}

// CreateIntegration connects a client to a PMS. The credential fields
// required depend on the integration type.
func (s *ClientService) CreateIntegration(p *auth.Principal, clientID string, input CreateIntegrationInput) (*models.Integration, error) {
	if _, err := s.Get(p, clientID); err != nil {
		return nil, err
	}

	switch input.Type {
	case models.IntegrationRentManagerAPI, models.IntegrationYardiAPI:
		if input.APIKey == nil || *input.APIKey == "" {
			return nil, fmt.Errorf("apiKey is required for %s", input.Type)
		}
	case models.IntegrationYardiSFTP:
		if input.SFTPHost == nil || *input.SFTPHost == "" || input.SFTPUser == nil || *input.SFTPUser == "" {
			return nil, fmt.Errorf("sftpHost and sftpUser are required for %s", input.Type)
		}
	default:
		return nil, fmt.Errorf("unknown integration type: %s", input.Type)
	}

	integration := models.Integration{
		ClientID:     clientID,
		Type:         input.Type,
		Status:       models.IntegrationPending,
		APIKey:       input.APIKey,
		APISecret:    input.APISecret,
		APIURL:       input.APIURL,
		SFTPHost:     input.SFTPHost,
		SFTPPort:     input.SFTPPort,
		SFTPUser:     input.SFTPUser,
		SFTPPassword: input.SFTPPassword,
		SFTPPath:     input.SFTPPath,
	}
	if err := s.db.Create(&integration).Error; err != nil {
		return nil, err
	}
	s.audit.Record(p, "integration.create", "integration", integration.ID, map[string]interface{}{
		"clientId": clientID, "type": input.Type,
	})
	return &integration, nil
}

// GetIntegration returns one integration within the caller's scope.
func (s *ClientService) GetIntegration(p *auth.Principal, integrationID string) (*models.Integration, error) {
	var integration models.Integration
	err := policy.ScopeIntegrations(s.db, p).First(&integration, "integrations.id = ?", integrationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &integration, nil
}

// ListIntegrations returns a client's integrations.
func (s *ClientService) ListIntegrations(p *auth.Principal, clientID string) ([]models.Integration, error) {
	if _, err := s.Get(p, clientID); err != nil {
		return nil, err
	}
	var integrations []models.Integration
	err := s.db.Where("client_id = ?", clientID).Order("created_at ASC").Find(&integrations).Error
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

// DeleteIntegration disconnects a PMS. Synced rows stay; only the
// connection is removed.
func (s *ClientService) DeleteIntegration(p *auth.Principal, integrationID string) error {
	integration, err := s.GetIntegration(p, integrationID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(&models.Integration{}, "id = ?", integration.ID).Error; err != nil {
		return err
	}
	s.audit.Record(p, "integration.delete", "integration", integration.ID, nil)
	return nil
}

// ListProperties returns properties within the caller's scope,
// optionally filtered to one client.
func (s *ClientService) ListProperties(p *auth.Principal, clientID string) ([]models.Property, error) {
	q := policy.ScopeProperties(s.db, p)
	if clientID != "" {
		q = q.Where("properties.client_id = ?", clientID)
	}
	var properties []models.Property
	if err := q.Order("name ASC").Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

// GetProperty returns one property with its units and tenants.
func (s *ClientService) GetProperty(p *auth.Principal, propertyID string) (*models.Property, error) {
	var property models.Property
	err := policy.ScopeProperties(s.db, p).
		Preload("Units").
		Preload("Tenants").
		First(&property, "properties.id = ?", propertyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// ListTenants returns tenants within the caller's scope, optionally
// filtered to one property or to active leases only.
func (s *ClientService) ListTenants(p *auth.Principal, propertyID string, activeOnly bool) ([]models.Tenant, error) {
	q := policy.ScopeTenants(s.db, p)
	if propertyID != "" {
		q = q.Where("tenants.property_id = ?", propertyID)
	}
	if activeOnly {
		q = q.Where("tenants.is_active = ?", true)
	}
	var tenants []models.Tenant
	if err := q.Order("last_name ASC, first_name ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
