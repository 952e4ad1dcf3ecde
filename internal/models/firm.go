package models

import "time"

// Firm user roles.
const (
	RoleLawFirmAdmin = "LAW_FIRM_ADMIN"
	RoleAttorney     = "ATTORNEY"
	RoleParalegal    = "PARALEGAL"
	RoleStaff        = "STAFF"
)

// Client user roles.
const (
	RoleClientAdmin = "CLIENT_ADMIN"
	RoleClientUser  = "CLIENT_USER"
)

// LawFirm is the tenant root for firm-side users and their
// property-management clients.
type LawFirm struct {
	Model
	Name    string  `gorm:"size:255;not null" json:"name"`
	Address *string `gorm:"size:500" json:"address"`
	Phone   *string `gorm:"size:50" json:"phone"`
	Email   *string `gorm:"size:255" json:"email"`
	LogoURL *string `gorm:"size:500" json:"logoUrl"`

	Users    []FirmUser           `json:"users,omitempty"`
	Clients  []PropertyMgmtClient `json:"clients,omitempty"`
	Settings *FirmSettings        `json:"settings,omitempty"`
}

// FirmUser is a principal belonging to exactly one law firm.
type FirmUser struct {
	Model
	Email     string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FirstName string     `gorm:"size:100" json:"firstName"`
	LastName  string     `gorm:"size:100" json:"lastName"`
	Role      string     `gorm:"size:50;not null" json:"role"`
	IsActive  bool       `gorm:"not null;default:true" json:"isActive"`
	LastLogin *time.Time `json:"lastLogin"`
	LawFirmID string     `gorm:"type:char(36);not null;index" json:"lawFirmId"`

	LawFirm *LawFirm `json:"lawFirm,omitempty"`
}

// PropertyMgmtClient is the tenant root for client-side users, owned
// by a law firm.
type PropertyMgmtClient struct {
	Model
	Name           string  `gorm:"size:255;not null" json:"name"`
	PrimaryContact *string `gorm:"size:255" json:"primaryContact"`
	Email          *string `gorm:"size:255" json:"email"`
	Phone          *string `gorm:"size:50" json:"phone"`
	Address        *string `gorm:"size:500" json:"address"`
	LawFirmID      string  `gorm:"type:char(36);not null;index" json:"lawFirmId"`

	LawFirm      *LawFirm      `json:"lawFirm,omitempty"`
	Users        []ClientUser  `gorm:"foreignKey:ClientID" json:"users,omitempty"`
	Properties   []Property    `gorm:"foreignKey:ClientID" json:"properties,omitempty"`
	Cases        []Case        `gorm:"foreignKey:ClientID" json:"cases,omitempty"`
	Integrations []Integration `gorm:"foreignKey:ClientID" json:"integrations,omitempty"`
}

// ClientUser is a principal scoped to one property-management client.
type ClientUser struct {
	Model
	Email     string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FirstName string     `gorm:"size:100" json:"firstName"`
	LastName  string     `gorm:"size:100" json:"lastName"`
	Role      string     `gorm:"size:50;not null;default:CLIENT_USER" json:"role"`
	IsActive  bool       `gorm:"not null;default:true" json:"isActive"`
	LastLogin *time.Time `json:"lastLogin"`
	ClientID  string     `gorm:"type:char(36);not null;index" json:"clientId"`

	Client *PropertyMgmtClient `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// FirmSettings holds per-firm operational defaults. One row per firm,
// created lazily on first read.
type FirmSettings struct {
	Model
	LawFirmID                string  `gorm:"type:char(36);not null;uniqueIndex" json:"lawFirmId"`
	DefaultNotificationEmail *string `gorm:"size:255" json:"defaultNotificationEmail"`
	SyncSchedule             string  `gorm:"size:100;not null;default:'0 2 * * *'" json:"syncSchedule"`
	DataRetentionYears       int     `gorm:"not null;default:7" json:"dataRetentionYears"`
	BrandingLogo             *string `gorm:"size:500" json:"brandingLogo"`

	LawFirm *LawFirm `json:"lawFirm,omitempty"`
}

func (LawFirm) TableName() string            { return "law_firms" }
func (FirmUser) TableName() string           { return "firm_users" }
func (PropertyMgmtClient) TableName() string { return "property_mgmt_clients" }
func (ClientUser) TableName() string         { return "client_users" }
func (FirmSettings) TableName() string       { return "firm_settings" }
