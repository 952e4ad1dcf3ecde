// Package pms contains the adapters that pull property, unit and tenant
// records out of external property-management systems. Each adapter
// normalizes its source into the Raw* types; the sync engine owns all
// persistence.
package pms

import (
	"context"
	"fmt"
	"time"

	"github.com/propertilaw/propertilaw/internal/models"
)

// RawProperty is a property record as reported by the source system.
type RawProperty struct {
	ExternalID string
	Name       string
	Address    string
	City       string
	State      string
	ZipCode    string
}

// RawUnit is a unit record as reported by the source system, keyed
// under its parent property's external ID.
type RawUnit struct {
	ExternalID string
	UnitNumber string
}

// RawTenant is a tenant record as reported by the source system.
// PropertyExternalID and UnitExternalID are resolved against already
// synced rows; unresolvable references are left unlinked.
type RawTenant struct {
	ExternalID         string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	PropertyExternalID string
	UnitExternalID     string
	CurrentBalance     float64
	LeaseStartDate     *time.Time
	LeaseEndDate       *time.Time
	IsActive           bool
}

// Adapter is the read contract a PMS connection must satisfy. Adapters
// never write to the database.
type Adapter interface {
	// TestConnection verifies credentials and reachability.
	TestConnection(ctx context.Context) error

	// FetchProperties returns all active properties.
	FetchProperties(ctx context.Context) ([]RawProperty, error)

	// FetchUnits returns the units of one property. Sources that do not
	// model units return an empty slice.
	FetchUnits(ctx context.Context, propertyExternalID string) ([]RawUnit, error)

	// FetchTenants returns all tenants across properties.
	FetchTenants(ctx context.Context) ([]RawTenant, error)
}

// New builds the adapter for an integration row. The switch is
// exhaustive over the integration types the schema admits.
func New(integration *models.Integration, defaultRentManagerURL string) (Adapter, error) {
	switch integration.Type {
	case models.IntegrationRentManagerAPI:
		return newRentManagerAdapter(integration, defaultRentManagerURL)
	case models.IntegrationYardiSFTP:
		return newYardiSFTPAdapter(integration)
	case models.IntegrationYardiAPI:
		return nil, fmt.Errorf("integration type %s is not supported yet", integration.Type)
	default:
		return nil, fmt.Errorf("unknown integration type: %s", integration.Type)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
