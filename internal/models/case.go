package models

import "time"

// Case statuses. There is no enforced transition graph; any status may
// be set by an authorized caller.
const (
	CaseStatusIntake           = "INTAKE"
	CaseStatusOpen             = "OPEN"
	CaseStatusNoticeServed     = "NOTICE_SERVED"
	CaseStatusFiled            = "FILED"
	CaseStatusHearingScheduled = "HEARING_SCHEDULED"
	CaseStatusJudgment         = "JUDGMENT"
	CaseStatusClosed           = "CLOSED"
)

// Case event types written by the lifecycle manager.
const (
	EventCaseCreated   = "CASE_CREATED"
	EventStatusChanged = "STATUS_CHANGED"
	EventCaseClosed    = "CASE_CLOSED"
	EventFiled         = "FILED"
)

// Case is the central workflow entity. It belongs to one client and one
// property, references tenants through CaseTenant, and accumulates
// documents, comments and events as it moves through its lifecycle.
type Case struct {
	Model
	CaseNumber         string     `gorm:"size:100;not null;uniqueIndex" json:"caseNumber"`
	ClientID           string     `gorm:"type:char(36);not null;index" json:"clientId"`
	PropertyID         string     `gorm:"type:char(36);not null;index" json:"propertyId"`
	Type               string     `gorm:"size:50;not null" json:"type"`
	Reason             string     `gorm:"size:1000;not null" json:"reason"`
	Status             string     `gorm:"size:50;not null;default:INTAKE;index" json:"status"`
	AmountOwed         *float64   `json:"amountOwed"`
	MonthsOwed         *int       `json:"monthsOwed"`
	Jurisdiction       string     `gorm:"size:255;not null" json:"jurisdiction"`
	Court              *string    `gorm:"size:255" json:"court"`
	CourtCaseNumber    *string    `gorm:"size:100" json:"courtCaseNumber"`
	CaresActCompliant  bool       `gorm:"not null;default:false" json:"caresActCompliant"`
	RentControlStatus  *string    `gorm:"size:100" json:"rentControlStatus"`
	NoticeServedDate   *time.Time `json:"noticeServedDate"`
	FiledDate          *time.Time `json:"filedDate"`
	HearingDate        *time.Time `json:"hearingDate"`
	JudgmentDate       *time.Time `json:"judgmentDate"`
	ClosedDate         *time.Time `json:"closedDate"`
	AssignedAttorneyID *string    `gorm:"type:char(36)" json:"assignedAttorneyId"`

	Client           *PropertyMgmtClient `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Property         *Property           `json:"property,omitempty"`
	AssignedAttorney *FirmUser           `gorm:"foreignKey:AssignedAttorneyID" json:"assignedAttorney,omitempty"`
	Tenants          []CaseTenant        `json:"tenants,omitempty"`
	Documents        []Document          `json:"documents,omitempty"`
	Comments         []Comment           `json:"comments,omitempty"`
	Events           []CaseEvent         `json:"events,omitempty"`
}

// CaseTenant joins a case to a tenant. Exactly one row per case should
// carry IsPrimary by convention; this is not enforced.
type CaseTenant struct {
	Model
	CaseID    string `gorm:"type:char(36);not null;uniqueIndex:idx_case_tenant" json:"caseId"`
	TenantID  string `gorm:"type:char(36);not null;uniqueIndex:idx_case_tenant" json:"tenantId"`
	IsPrimary bool   `gorm:"not null;default:false" json:"isPrimary"`

	Tenant *Tenant `json:"tenant,omitempty"`
}

// CaseEvent is an append-only chronological record attached to a case.
// Written by lifecycle transitions and by manual entry; removed only by
// an explicit firm-user delete.
type CaseEvent struct {
	Model
	CaseID      string     `gorm:"type:char(36);not null;index" json:"caseId"`
	EventType   string     `gorm:"size:50;not null" json:"eventType"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"size:1000" json:"description"`
	EventDate   *time.Time `json:"eventDate"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `gorm:"not null;default:false" json:"isCompleted"`

	Case *Case `json:"case,omitempty"`
}

// Comment is a note on a case. The author is exactly one of a firm user
// or a client user; comments authored by client principals are always
// visible (IsInternal false).
type Comment struct {
	Model
	CaseID       string  `gorm:"type:char(36);not null;index" json:"caseId"`
	Content      string  `gorm:"size:2000;not null" json:"content"`
	IsInternal   bool    `gorm:"not null;default:false" json:"isInternal"`
	AuthorType   string  `gorm:"size:10;not null" json:"authorType"`
	FirmUserID   *string `gorm:"type:char(36)" json:"firmUserId"`
	ClientUserID *string `gorm:"type:char(36)" json:"clientUserId"`

	FirmUser   *FirmUser   `json:"firmUser,omitempty"`
	ClientUser *ClientUser `json:"clientUser,omitempty"`
}

func (Case) TableName() string       { return "cases" }
func (CaseTenant) TableName() string { return "case_tenants" }
func (CaseEvent) TableName() string  { return "case_events" }
func (Comment) TableName() string    { return "comments" }
