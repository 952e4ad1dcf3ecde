package models

import "time"

// Document types recognized by the generator and the e-filing packet
// builder. Uploads may carry other type strings.
const (
	DocTypeNoticeToQuit    = "NOTICE_TO_QUIT"
	DocTypeComplaint       = "COMPLAINT"
	DocTypeCoverSheet      = "COVER_SHEET"
	DocTypeFilingFeeWaiver = "FILING_FEE_WAIVER"
)

// Approval statuses. A document that never entered the approval flow
// has a null ApprovalStatus.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Document is a file attached to a case, either uploaded by a firm or
// client user (mutually exclusive) or generated from a template.
type Document struct {
	Model
	CaseID             string     `gorm:"type:char(36);not null;index" json:"caseId"`
	Type               string     `gorm:"size:50;not null" json:"type"`
	Name               string     `gorm:"size:255;not null" json:"name"`
	FileName           string     `gorm:"size:255;not null" json:"fileName"`
	FilePath           string     `gorm:"size:500;not null" json:"filePath"`
	FileSize           int64      `gorm:"not null;default:0" json:"fileSize"`
	MimeType           string     `gorm:"size:100" json:"mimeType"`
	IsGenerated        bool       `gorm:"not null;default:false" json:"isGenerated"`
	TemplateID         *string    `gorm:"type:char(36)" json:"templateId"`
	UploadedByID       *string    `gorm:"type:char(36)" json:"uploadedById"`
	UploadedByClientID *string    `gorm:"type:char(36)" json:"uploadedByClientId"`
	ApprovalRequired   bool       `gorm:"not null;default:false" json:"approvalRequired"`
	ApprovalStatus     *string    `gorm:"size:20;index" json:"approvalStatus"`
	ApprovedByID       *string    `gorm:"type:char(36)" json:"approvedById"`
	ApprovedAt         *time.Time `json:"approvedAt"`
	RejectionReason    *string    `gorm:"size:1000" json:"rejectionReason"`

	Case             *Case       `json:"case,omitempty"`
	UploadedBy       *FirmUser   `gorm:"foreignKey:UploadedByID" json:"uploadedBy,omitempty"`
	UploadedByClient *ClientUser `gorm:"foreignKey:UploadedByClientID" json:"uploadedByClient,omitempty"`
	ApprovedBy       *FirmUser   `gorm:"foreignKey:ApprovedByID" json:"approvedBy,omitempty"`
}

// DocumentTemplate is versioned by (name, type, jurisdiction); creating
// a template that already exists bumps the version. Deactivation
// replaces deletion.
type DocumentTemplate struct {
	Model
	Name         string `gorm:"size:255;not null;index:idx_template_key" json:"name"`
	Type         string `gorm:"size:50;not null;index:idx_template_key" json:"type"`
	Jurisdiction string `gorm:"size:255;not null;index:idx_template_key" json:"jurisdiction"`
	Version      int    `gorm:"not null;default:1" json:"version"`
	TemplatePath string `gorm:"size:500;not null" json:"templatePath"`
	MergeFields  JSON   `gorm:"type:json" json:"mergeFields"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`
}

func (Document) TableName() string         { return "documents" }
func (DocumentTemplate) TableName() string { return "document_templates" }
