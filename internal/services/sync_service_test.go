package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/pms"
)

// fakeAdapter serves canned PMS data and optional injected failures.
type fakeAdapter struct {
	properties []pms.RawProperty
	units      map[string][]pms.RawUnit
	tenants    []pms.RawTenant

	tenantsErr error
	pingErr    error
}

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return f.pingErr }

func (f *fakeAdapter) FetchProperties(ctx context.Context) ([]pms.RawProperty, error) {
	return f.properties, nil
}

func (f *fakeAdapter) FetchUnits(ctx context.Context, propertyExternalID string) ([]pms.RawUnit, error) {
	return f.units[propertyExternalID], nil
}

func (f *fakeAdapter) FetchTenants(ctx context.Context) ([]pms.RawTenant, error) {
	if f.tenantsErr != nil {
		return nil, f.tenantsErr
	}
	return f.tenants, nil
}

func newSyncFixture(t *testing.T, adapter pms.Adapter) (*gorm.DB, *fixture, *SyncService, *models.Integration) {
	db := newTestDB(t)
	f := seed(t, db)

	integration := &models.Integration{
		ClientID: f.ClientA.ID,
		Type:     models.IntegrationRentManagerAPI,
		Status:   models.IntegrationPending,
	}
	require.NoError(t, db.Create(integration).Error)

	svc := NewSyncService(db, func(i *models.Integration) (pms.Adapter, error) {
		return adapter, nil
	})
	return db, f, svc, integration
}

func TestSyncCreatesAndUpdatesByNaturalKey(t *testing.T) {
	adapter := &fakeAdapter{
		properties: []pms.RawProperty{
			{ExternalID: "P-200", Name: "Cedar Row", Address: "5 Cedar St", City: "Jersey City", State: "NJ", ZipCode: "07302"},
		},
		units: map[string][]pms.RawUnit{
			"P-200": {{ExternalID: "U-1", UnitNumber: "1A"}},
		},
		tenants: []pms.RawTenant{
			{ExternalID: "T-200", FirstName: "Ana", LastName: "Silva", PropertyExternalID: "P-200", UnitExternalID: "U-1", CurrentBalance: 1500, IsActive: true},
		},
	}
	db, f, svc, integration := newSyncFixture(t, adapter)

	require.NoError(t, svc.Sync(context.Background(), integration.ID))

	var property models.Property
	require.NoError(t, db.Where("external_id = ? AND client_id = ?", "P-200", f.ClientA.ID).First(&property).Error)
	assert.Equal(t, "Cedar Row", property.Name)
	firstID := property.ID

	var tenant models.Tenant
	require.NoError(t, db.Where("external_id = ? AND client_id = ?", "T-200", f.ClientA.ID).First(&tenant).Error)
	require.NotNil(t, tenant.PropertyID)
	assert.Equal(t, property.ID, *tenant.PropertyID)
	require.NotNil(t, tenant.UnitID)

	// Second run with changed fields updates rows in place.
	adapter.properties[0].Name = "Cedar Row Renamed"
	adapter.tenants[0].CurrentBalance = 1800
	require.NoError(t, svc.Sync(context.Background(), integration.ID))

	var propCount, tenantCount int64
	db.Model(&models.Property{}).Where("client_id = ?", f.ClientA.ID).Count(&propCount)
	db.Model(&models.Tenant{}).Where("client_id = ?", f.ClientA.ID).Count(&tenantCount)
	assert.Equal(t, int64(2), propCount) // the seeded property plus P-200
	assert.Equal(t, int64(2), tenantCount)

	require.NoError(t, db.Where("external_id = ? AND client_id = ?", "P-200", f.ClientA.ID).First(&property).Error)
	assert.Equal(t, firstID, property.ID, "local primary key must survive re-sync")
	assert.Equal(t, "Cedar Row Renamed", property.Name)

	require.NoError(t, db.Where("external_id = ? AND client_id = ?", "T-200", f.ClientA.ID).First(&tenant).Error)
	assert.Equal(t, 1800.0, tenant.CurrentBalance)
}

func TestSyncRecordsCompletionOnIntegration(t *testing.T) {
	adapter := &fakeAdapter{
		properties: []pms.RawProperty{{ExternalID: "P-300", Name: "Birch Hill"}},
	}
	db, _, svc, integration := newSyncFixture(t, adapter)

	require.NoError(t, svc.Sync(context.Background(), integration.ID))

	var row models.Integration
	require.NoError(t, db.First(&row, "id = ?", integration.ID).Error)
	require.NotNil(t, row.LastSyncStatus)
	assert.Equal(t, models.SyncSuccess, *row.LastSyncStatus)
	assert.NotNil(t, row.LastSyncAt)
	assert.Nil(t, row.LastSyncError)
	assert.Equal(t, models.IntegrationConnected, row.Status)
}

func TestSyncFailureAbortsAndRecordsError(t *testing.T) {
	adapter := &fakeAdapter{
		properties: []pms.RawProperty{{ExternalID: "P-400", Name: "Oak Terrace"}},
		tenantsErr: errors.New("connection reset"),
	}
	db, f, svc, integration := newSyncFixture(t, adapter)

	err := svc.Sync(context.Background(), integration.ID)
	require.Error(t, err)

	var row models.Integration
	require.NoError(t, db.First(&row, "id = ?", integration.ID).Error)
	require.NotNil(t, row.LastSyncStatus)
	assert.Equal(t, models.SyncFailed, *row.LastSyncStatus)
	require.NotNil(t, row.LastSyncError)
	assert.Contains(t, *row.LastSyncError, "connection reset")
	assert.Equal(t, models.IntegrationError, row.Status)

	// Properties fetched before the failure were still written.
	var count int64
	db.Model(&models.Property{}).Where("external_id = ? AND client_id = ?", "P-400", f.ClientA.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	adapter := &fakeAdapter{}
	db, _, svc, integration := newSyncFixture(t, adapter)

	inProgress := models.SyncInProgress
	require.NoError(t, db.Model(integration).Update("last_sync_status", inProgress).Error)

	err := svc.Sync(context.Background(), integration.ID)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSyncLeavesUnresolvableTenantUnlinked(t *testing.T) {
	adapter := &fakeAdapter{
		tenants: []pms.RawTenant{
			{ExternalID: "T-900", FirstName: "Lee", LastName: "Ward", PropertyExternalID: "NO-SUCH", IsActive: true},
		},
	}
	db, f, svc, integration := newSyncFixture(t, adapter)

	require.NoError(t, svc.Sync(context.Background(), integration.ID))

	var tenant models.Tenant
	require.NoError(t, db.Where("external_id = ? AND client_id = ?", "T-900", f.ClientA.ID).First(&tenant).Error)
	assert.Nil(t, tenant.PropertyID)
	assert.Nil(t, tenant.UnitID)
}

func TestTestConnectionFlipsStatus(t *testing.T) {
	adapter := &fakeAdapter{pingErr: errors.New("401 unauthorized")}
	db, _, svc, integration := newSyncFixture(t, adapter)

	err := svc.TestConnection(context.Background(), integration.ID)
	require.Error(t, err)

	var row models.Integration
	require.NoError(t, db.First(&row, "id = ?", integration.ID).Error)
	assert.Equal(t, models.IntegrationError, row.Status)

	adapter.pingErr = nil
	require.NoError(t, svc.TestConnection(context.Background(), integration.ID))
	require.NoError(t, db.First(&row, "id = ?", integration.ID).Error)
	assert.Equal(t, models.IntegrationConnected, row.Status)
}

// midRunAdapter captures the integration row as seen while a sync is
// still running.
type midRunAdapter struct {
	fakeAdapter
	db            *gorm.DB
	integrationID string

	observedStatus string
	observedSyncAt bool
}

func (m *midRunAdapter) FetchProperties(ctx context.Context) ([]pms.RawProperty, error) {
	var row models.Integration
	if err := m.db.First(&row, "id = ?", m.integrationID).Error; err != nil {
		return nil, err
	}
	if row.LastSyncStatus != nil {
		m.observedStatus = *row.LastSyncStatus
	}
	m.observedSyncAt = row.LastSyncAt != nil
	return nil, nil
}

func TestSyncStampsStartTimeWithInProgressMark(t *testing.T) {
	adapter := &midRunAdapter{}
	db, _, svc, integration := newSyncFixture(t, adapter)
	adapter.db = db
	adapter.integrationID = integration.ID

	require.NoError(t, svc.Sync(context.Background(), integration.ID))

	assert.Equal(t, models.SyncInProgress, adapter.observedStatus)
	assert.True(t, adapter.observedSyncAt, "lastSyncAt is stamped at sync start, not only at completion")
}
