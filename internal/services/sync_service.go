package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/pms"
)

// ErrSyncInProgress is returned when a sync is triggered for an
// integration that is already mid-run.
var ErrSyncInProgress = errors.New("sync already in progress")

// AdapterFactory builds a PMS adapter for an integration row. Tests
// substitute a factory returning fakes.
type AdapterFactory func(integration *models.Integration) (pms.Adapter, error)

// SyncService pulls external PMS data into local rows. Matching is by
// natural key: (externalId, clientId) for properties and tenants,
// (externalId, propertyId) for units. Local primary keys are stable
// across runs so case references never dangle.
type SyncService struct {
	db      *gorm.DB
	adapter AdapterFactory
}

// NewSyncService returns a SyncService that builds adapters with
// factory.
func NewSyncService(db *gorm.DB, factory AdapterFactory) *SyncService {
	return &SyncService{db: db, adapter: factory}
}

// TestConnection checks credentials and flips the integration status to
// CONNECTED or ERROR accordingly.
func (s *SyncService) TestConnection(ctx context.Context, integrationID string) error {
	var integration models.Integration
	if err := s.db.First(&integration, "id = ?", integrationID).Error; err != nil {
		return err
	}

	adapter, err := s.adapter(&integration)
	if err == nil {
		err = adapter.TestConnection(ctx)
	}

	status := models.IntegrationConnected
	if err != nil {
		status = models.IntegrationError
	}
	if dbErr := s.db.Model(&integration).Update("status", status).Error; dbErr != nil {
		return dbErr
	}
	return err
}

// Sync runs one full pull for an integration. The integration row is
// the completion record: callers that fire and forget observe progress
// by polling LastSyncStatus. A failure mid-run aborts the remaining
// rows and records FAILED with the error message.
func (s *SyncService) Sync(ctx context.Context, integrationID string) error {
	var integration models.Integration
	if err := s.db.First(&integration, "id = ?", integrationID).Error; err != nil {
		return err
	}
	if integration.LastSyncStatus != nil && *integration.LastSyncStatus == models.SyncInProgress {
		return ErrSyncInProgress
	}

	// Stamp the start time with the mark so pollers never see
	// IN_PROGRESS with a stale timestamp.
	inProgress := models.SyncInProgress
	if err := s.db.Model(&integration).Updates(map[string]interface{}{
		"last_sync_status": inProgress,
		"last_sync_at":     time.Now().UTC(),
	}).Error; err != nil {
		return err
	}

	err := s.run(ctx, &integration)
	now := time.Now().UTC()
	if err != nil {
		msg := err.Error()
		if len(msg) > 1000 {
			msg = msg[:1000]
		}
		failed := models.SyncFailed
		s.db.Model(&integration).Updates(map[string]interface{}{
			"last_sync_status": failed,
			"last_sync_at":     now,
			"last_sync_error":  msg,
			"status":           models.IntegrationError,
		})
		return err
	}

	success := models.SyncSuccess
	return s.db.Model(&integration).Updates(map[string]interface{}{
		"last_sync_status": success,
		"last_sync_at":     now,
		"last_sync_error":  nil,
		"status":           models.IntegrationConnected,
	}).Error
}

func (s *SyncService) run(ctx context.Context, integration *models.Integration) error {
	adapter, err := s.adapter(integration)
	if err != nil {
		return err
	}

	props, err := adapter.FetchProperties(ctx)
	if err != nil {
		return fmt.Errorf("fetch properties: %w", err)
	}
	for i := range props {
		property, err := s.upsertProperty(integration.ClientID, &props[i])
		if err != nil {
			return fmt.Errorf("upsert property %s: %w", props[i].ExternalID, err)
		}

		units, err := adapter.FetchUnits(ctx, props[i].ExternalID)
		if err != nil {
			return fmt.Errorf("fetch units for property %s: %w", props[i].ExternalID, err)
		}
		for j := range units {
			if err := s.upsertUnit(property.ID, &units[j]); err != nil {
				return fmt.Errorf("upsert unit %s: %w", units[j].ExternalID, err)
			}
		}
	}

	tenants, err := adapter.FetchTenants(ctx)
	if err != nil {
		return fmt.Errorf("fetch tenants: %w", err)
	}
	for i := range tenants {
		if err := s.upsertTenant(integration.ClientID, &tenants[i]); err != nil {
			return fmt.Errorf("upsert tenant %s: %w", tenants[i].ExternalID, err)
		}
	}

	return nil
}

func (s *SyncService) upsertProperty(clientID string, raw *pms.RawProperty) (*models.Property, error) {
	now := time.Now().UTC()
	var property models.Property
	err := s.db.Where("external_id = ? AND client_id = ?", raw.ExternalID, clientID).First(&property).Error

	switch {
	case err == nil:
		updates := map[string]interface{}{
			"name":        raw.Name,
			"address":     raw.Address,
			"city":        raw.City,
			"state":       raw.State,
			"zip_code":    raw.ZipCode,
			"last_synced": now,
		}
		if dbErr := s.db.Model(&property).Updates(updates).Error; dbErr != nil {
			return nil, dbErr
		}
		return &property, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		extID := raw.ExternalID
		property = models.Property{
			ExternalID: &extID,
			Name:       raw.Name,
			Address:    raw.Address,
			City:       raw.City,
			State:      raw.State,
			ZipCode:    raw.ZipCode,
			ClientID:   clientID,
			LastSynced: &now,
		}
		if dbErr := s.db.Create(&property).Error; dbErr != nil {
			return nil, dbErr
		}
		return &property, nil

	default:
		return nil, err
	}
}

func (s *SyncService) upsertUnit(propertyID string, raw *pms.RawUnit) error {
	now := time.Now().UTC()
	var unit models.Unit
	err := s.db.Where("external_id = ? AND property_id = ?", raw.ExternalID, propertyID).First(&unit).Error

	switch {
	case err == nil:
		return s.db.Model(&unit).Updates(map[string]interface{}{
			"unit_number": raw.UnitNumber,
			"last_synced": now,
		}).Error

	case errors.Is(err, gorm.ErrRecordNotFound):
		extID := raw.ExternalID
		unit = models.Unit{
			ExternalID: &extID,
			UnitNumber: raw.UnitNumber,
			PropertyID: propertyID,
			LastSynced: &now,
		}
		return s.db.Create(&unit).Error

	default:
		return err
	}
}

func (s *SyncService) upsertTenant(clientID string, raw *pms.RawTenant) error {
	now := time.Now().UTC()

	// Resolve property and unit links against already synced rows.
	// Unresolvable references stay unlinked rather than failing the row.
	var propertyID, unitID *string
	if raw.PropertyExternalID != "" {
		var property models.Property
		if err := s.db.Where("external_id = ? AND client_id = ?", raw.PropertyExternalID, clientID).
			First(&property).Error; err == nil {
			propertyID = &property.ID
			if raw.UnitExternalID != "" {
				var unit models.Unit
				if err := s.db.Where("external_id = ? AND property_id = ?", raw.UnitExternalID, property.ID).
					First(&unit).Error; err == nil {
					unitID = &unit.ID
				}
			}
		}
	}

	var tenant models.Tenant
	err := s.db.Where("external_id = ? AND client_id = ?", raw.ExternalID, clientID).First(&tenant).Error

	switch {
	case err == nil:
		return s.db.Model(&tenant).Updates(map[string]interface{}{
			"first_name":       raw.FirstName,
			"last_name":        raw.LastName,
			"email":            nilIfEmpty(raw.Email),
			"phone":            nilIfEmpty(raw.Phone),
			"property_id":      propertyID,
			"unit_id":          unitID,
			"current_balance":  raw.CurrentBalance,
			"lease_start_date": raw.LeaseStartDate,
			"lease_end_date":   raw.LeaseEndDate,
			"is_active":        raw.IsActive,
			"last_synced":      now,
		}).Error

	case errors.Is(err, gorm.ErrRecordNotFound):
		extID := raw.ExternalID
		tenant = models.Tenant{
			ExternalID:     &extID,
			FirstName:      raw.FirstName,
			LastName:       raw.LastName,
			Email:          nilIfEmpty(raw.Email),
			Phone:          nilIfEmpty(raw.Phone),
			ClientID:       clientID,
			PropertyID:     propertyID,
			UnitID:         unitID,
			CurrentBalance: raw.CurrentBalance,
			LeaseStartDate: raw.LeaseStartDate,
			LeaseEndDate:   raw.LeaseEndDate,
			IsActive:       raw.IsActive,
			LastSynced:     &now,
		}
		return s.db.Create(&tenant).Error

	default:
		return err
	}
}

// SyncAll runs a sync for every integration, continuing past individual
// failures. Used by the scheduler.
func (s *SyncService) SyncAll(ctx context.Context) {
	var integrations []models.Integration
	if err := s.db.Find(&integrations).Error; err != nil {
		slog.Error("scheduled sync list failed", "error", err)
		return
	}
	for _, integration := range integrations {
		if err := s.Sync(ctx, integration.ID); err != nil {
			slog.Warn("scheduled sync failed",
				"integrationId", integration.ID,
				"clientId", integration.ClientID,
				"type", integration.Type,
				"error", err)
		}
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
