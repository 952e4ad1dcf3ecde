package models

import "time"

// Integration types. Each names one external PMS connection shape; the
// credential fields that must be populated depend on the type.
const (
	IntegrationRentManagerAPI = "RENTMANAGER_API"
	IntegrationYardiAPI       = "YARDI_API"
	IntegrationYardiSFTP      = "YARDI_SFTP"
)

// Integration connection statuses.
const (
	IntegrationPending   = "PENDING"
	IntegrationConnected = "CONNECTED"
	IntegrationError     = "ERROR"
)

// Sync run statuses recorded on the integration row. The row is the
// completion record for fire-and-forget sync triggers: callers observe
// progress by polling LastSyncStatus.
const (
	SyncInProgress = "IN_PROGRESS"
	SyncSuccess    = "SUCCESS"
	SyncFailed     = "FAILED"
)

// Integration is one external-system connection per client. Credential
// fields are mutated only by explicit user actions; sync state fields
// only by the sync engine.
type Integration struct {
	Model
	ClientID string `gorm:"type:char(36);not null;index" json:"clientId"`
	Type     string `gorm:"size:50;not null" json:"type"`
	Status   string `gorm:"size:20;not null;default:PENDING" json:"status"`

	APIKey    *string `gorm:"size:255" json:"apiKey,omitempty"`
	APISecret *string `gorm:"size:255" json:"-"`
	APIURL    *string `gorm:"size:500" json:"apiUrl,omitempty"`

	SFTPHost     *string `gorm:"size:255" json:"sftpHost,omitempty"`
	SFTPPort     *int    `json:"sftpPort,omitempty"`
	SFTPUser     *string `gorm:"size:100" json:"sftpUser,omitempty"`
	SFTPPassword *string `gorm:"size:255" json:"-"`
	SFTPPath     *string `gorm:"size:500" json:"sftpPath,omitempty"`

	LastSyncStatus *string    `gorm:"size:20" json:"lastSyncStatus"`
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	LastSyncError  *string    `gorm:"size:1000" json:"lastSyncError"`

	Client *PropertyMgmtClient `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (Integration) TableName() string { return "integrations" }
