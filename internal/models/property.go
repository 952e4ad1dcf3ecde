package models

import "time"

// Property belongs to one client. ExternalID carries the identity key
// assigned by the source PMS and is unique per client; locally-created
// properties leave it null.
type Property struct {
	Model
	ExternalID   *string    `gorm:"size:100;uniqueIndex:idx_property_external" json:"externalId"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Address      string     `gorm:"size:500" json:"address"`
	City         string     `gorm:"size:100" json:"city"`
	State        string     `gorm:"size:50" json:"state"`
	ZipCode      string     `gorm:"size:20" json:"zipCode"`
	County       string     `gorm:"size:100" json:"county"`
	Jurisdiction string     `gorm:"size:255" json:"jurisdiction"`
	ClientID     string     `gorm:"type:char(36);not null;index;uniqueIndex:idx_property_external" json:"clientId"`
	LastSynced   *time.Time `json:"lastSynced"`

	Client  *PropertyMgmtClient `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Units   []Unit              `json:"units,omitempty"`
	Tenants []Tenant            `json:"tenants,omitempty"`
	Cases   []Case              `json:"cases,omitempty"`
}

// Unit belongs to one property. ExternalID is unique per property.
type Unit struct {
	Model
	ExternalID *string    `gorm:"size:100;uniqueIndex:idx_unit_external" json:"externalId"`
	UnitNumber string     `gorm:"size:50;not null" json:"unitNumber"`
	PropertyID string     `gorm:"type:char(36);not null;index;uniqueIndex:idx_unit_external" json:"propertyId"`
	LastSynced *time.Time `json:"lastSynced"`

	Property *Property `json:"property,omitempty"`
	Tenants  []Tenant  `json:"tenants,omitempty"`
}

// Tenant is an occupant record, owned by a client and optionally
// attached to a property and unit. ExternalID is unique per client.
type Tenant struct {
	Model
	ExternalID     *string    `gorm:"size:100;uniqueIndex:idx_tenant_external" json:"externalId"`
	FirstName      string     `gorm:"size:100" json:"firstName"`
	LastName       string     `gorm:"size:100" json:"lastName"`
	Email          *string    `gorm:"size:255" json:"email"`
	Phone          *string    `gorm:"size:50" json:"phone"`
	ClientID       string     `gorm:"type:char(36);not null;index;uniqueIndex:idx_tenant_external" json:"clientId"`
	PropertyID     *string    `gorm:"type:char(36);index" json:"propertyId"`
	UnitID         *string    `gorm:"type:char(36)" json:"unitId"`
	CurrentBalance float64    `gorm:"not null;default:0" json:"currentBalance"`
	LeaseStartDate *time.Time `json:"leaseStartDate"`
	LeaseEndDate   *time.Time `json:"leaseEndDate"`
	IsActive       bool       `gorm:"not null;default:true" json:"isActive"`
	LastSynced     *time.Time `json:"lastSynced"`

	Client   *PropertyMgmtClient `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Property *Property           `json:"property,omitempty"`
	Unit     *Unit               `json:"unit,omitempty"`
}

func (Property) TableName() string { return "properties" }
func (Unit) TableName() string     { return "units" }
func (Tenant) TableName() string   { return "tenants" }
