package models

// AuditLog is an append-only record of mutating actions. Details holds
// the action-specific payload as JSON.
type AuditLog struct {
	Model
	LawFirmID  string  `gorm:"type:char(36);index" json:"lawFirmId"`
	UserID     string  `gorm:"type:char(36);not null;index" json:"userId"`
	UserType   string  `gorm:"size:10;not null" json:"userType"`
	FirmUserID *string `gorm:"type:char(36)" json:"firmUserId"`
	Action     string  `gorm:"size:100;not null;index" json:"action"`
	EntityType string  `gorm:"size:50;not null" json:"entityType"`
	EntityID   string  `gorm:"type:char(36);not null;index" json:"entityId"`
	Details    JSON    `gorm:"type:json" json:"details"`
	IPAddress  string  `gorm:"size:64" json:"ipAddress"`
	UserAgent  string  `gorm:"size:500" json:"userAgent"`
}

func (AuditLog) TableName() string { return "audit_logs" }
