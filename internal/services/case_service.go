package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/policy"
	"github.com/propertilaw/propertilaw/internal/types"
)

// ErrNotFound is returned for rows that do not exist or sit outside the
// caller's scope. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// caseNumberAttempts bounds the retry loop on case-number collisions.
const caseNumberAttempts = 5

// CaseService owns the case lifecycle: intake, status transitions,
// events, comments and bulk operations.
type CaseService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewCaseService returns a CaseService backed by db.
func NewCaseService(db *gorm.DB, audit *AuditService) *CaseService {
	return &CaseService{db: db, audit: audit}
}

// CreateCaseInput is the intake payload.
type CreateCaseInput struct {
	ClientID          string     `json:"clientId"`
	PropertyID        string     `json:"propertyId"`
	TenantIDs         []string   `json:"tenantIds"`
	Type              string     `json:"type"`
	Reason            string     `json:"reason"`
	AmountOwed        *float64   `json:"amountOwed"`
	MonthsOwed        *int       `json:"monthsOwed"`
	Jurisdiction      string     `json:"jurisdiction"`
	CaresActCompliant bool       `json:"caresActCompliant"`
	RentControlStatus *string    `json:"rentControlStatus"`
	NoticeServedDate  *time.Time `json:"noticeServedDate"`
	AssignedAttorneyID *string   `json:"assignedAttorneyId"`
}

// Create opens a new case. Client principals create cases for their own
// client only; the property and all tenants must belong to that client.
// The first tenant in the list becomes the primary.
func (s *CaseService) Create(p *auth.Principal, input CreateCaseInput) (*models.Case, error) {
	clientID := input.ClientID
	if p.IsClient() {
		clientID = p.ClientID
	}
	if clientID == "" {
		return nil, fmt.Errorf("clientId is required")
	}
	if input.PropertyID == "" || input.Type == "" || input.Reason == "" || input.Jurisdiction == "" {
		return nil, fmt.Errorf("propertyId, type, reason and jurisdiction are required")
	}
	if len(input.TenantIDs) == 0 {
		return nil, fmt.Errorf("at least one tenant is required")
	}

	// The target client must be inside the caller's scope; a firm user
	// cannot open cases under another firm's client.
	var client models.PropertyMgmtClient
	if err := policy.ScopeClients(s.db, p).First(&client, "id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Ownership checks before anything is written.
	var property models.Property
	if err := s.db.Where("id = ? AND client_id = ?", input.PropertyID, clientID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var tenantCount int64
	if err := s.db.Model(&models.Tenant{}).
		Where("id IN ? AND client_id = ?", input.TenantIDs, clientID).
		Count(&tenantCount).Error; err != nil {
		return nil, err
	}
	if tenantCount != int64(len(input.TenantIDs)) {
		return nil, ErrNotFound
	}

	var created models.Case
	err := s.withNumberRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			number, err := nextCaseNumber(tx, clientID)
			if err != nil {
				return err
			}

			c := models.Case{
				CaseNumber:         number,
				ClientID:           clientID,
				PropertyID:         input.PropertyID,
				Type:               input.Type,
				Reason:             input.Reason,
				Status:             models.CaseStatusIntake,
				AmountOwed:         input.AmountOwed,
				MonthsOwed:         input.MonthsOwed,
				Jurisdiction:       input.Jurisdiction,
				CaresActCompliant:  input.CaresActCompliant,
				RentControlStatus:  input.RentControlStatus,
				NoticeServedDate:   input.NoticeServedDate,
				AssignedAttorneyID: input.AssignedAttorneyID,
			}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}

			for i, tenantID := range input.TenantIDs {
				ct := models.CaseTenant{
					CaseID:    c.ID,
					TenantID:  tenantID,
					IsPrimary: i == 0,
				}
				if err := tx.Create(&ct).Error; err != nil {
					return err
				}
			}

			event := models.CaseEvent{
				CaseID:    c.ID,
				EventType: models.EventCaseCreated,
				Title:     "Case created",
				Description: fmt.Sprintf("Case %s opened for %s", c.CaseNumber, property.Name),
				EventDate: ptrTime(time.Now().UTC()),
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}

			created = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(p, "case.create", "case", created.ID, map[string]interface{}{
		"caseNumber": created.CaseNumber,
		"clientId":   created.ClientID,
	})
	return &created, nil
}

// nextCaseNumber derives the next sequential number for a client. The
// unique index on case_number backstops concurrent intakes; callers
// retry on conflict.
func nextCaseNumber(tx *gorm.DB, clientID string) (string, error) {
	var count int64
	if err := tx.Model(&models.Case{}).Where("client_id = ?", clientID).Count(&count).Error; err != nil {
		return "", err
	}
	prefix := clientID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("CASE-%s-%06d", prefix, count+1), nil
}

// withNumberRetry retries fn when the unique case-number index rejects
// a concurrent insert.
func (s *CaseService) withNumberRetry(fn func() error) error {
	var err error
	for i := 0; i < caseNumberAttempts; i++ {
		err = fn()
		if err == nil || !isDuplicateKey(err) {
			return err
		}
	}
	return fmt.Errorf("case number allocation kept colliding: %w", err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// ListFilter narrows List results.
type ListFilter struct {
	Status     string
	ClientID   string
	PropertyID string
	Search     string
	Page       int
	PageSize   int
}

// List returns cases visible to the principal, newest first.
func (s *CaseService) List(p *auth.Principal, filter ListFilter) ([]models.Case, int64, error) {
	q := policy.ScopeCases(s.db.Model(&models.Case{}), p)
	if filter.Status != "" {
		q = q.Where("cases.status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		q = q.Where("cases.client_id = ?", filter.ClientID)
	}
	if filter.PropertyID != "" {
		q = q.Where("cases.property_id = ?", filter.PropertyID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("cases.case_number LIKE ? OR cases.reason LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 200 {
		size = 50
	}

	var cases []models.Case
	err := q.Order("cases.created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Preload("Property").
		Preload("Tenants.Tenant").
		Find(&cases).Error
	if err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// Get returns one case with its associations, or ErrNotFound when it
// does not exist or is out of scope.
func (s *CaseService) Get(p *auth.Principal, caseID string) (*models.Case, error) {
	var c models.Case
	err := policy.ScopeCases(s.db, p).
		Preload("Property").
		Preload("Client").
		Preload("Tenants.Tenant").
		Preload("Documents").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "cases.id = ?", caseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// statusDateColumn maps a status to the date column it stamps.
func statusDateColumn(status string) string {
	switch status {
	case models.CaseStatusNoticeServed:
		return "notice_served_date"
	case models.CaseStatusFiled:
		return "filed_date"
	case models.CaseStatusHearingScheduled:
		return "hearing_date"
	case models.CaseStatusJudgment:
		return "judgment_date"
	case models.CaseStatusClosed:
		return "closed_date"
	}
	return ""
}

func validStatus(status string) bool {
	switch status {
	case models.CaseStatusIntake, models.CaseStatusOpen, models.CaseStatusNoticeServed,
		models.CaseStatusFiled, models.CaseStatusHearingScheduled,
		models.CaseStatusJudgment, models.CaseStatusClosed:
		return true
	}
	return false
}

// SetStatus moves a case to a new status, stamping the matching date
// column and appending a STATUS_CHANGED event. There is no transition
// graph; any valid status may follow any other.
func (s *CaseService) SetStatus(p *auth.Principal, caseID, status, note string) (*models.Case, error) {
	if !validStatus(status) {
		return nil, &types.CustomError{Code: 400, Message: fmt.Sprintf("invalid status: %s", status), Type: "validation"}
	}

	c, err := s.Get(p, caseID)
	if err != nil {
		return nil, err
	}
	previous := c.Status

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": status}
		if col := statusDateColumn(status); col != "" {
			updates[col] = time.Now().UTC()
		}
		if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return err
		}

		description := fmt.Sprintf("Status changed from %s to %s", previous, status)
		if note != "" {
			description += ": " + note
		}
		event := models.CaseEvent{
			CaseID:      c.ID,
			EventType:   models.EventStatusChanged,
			Title:       "Status changed",
			Description: description,
			EventDate:   ptrTime(time.Now().UTC()),
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(p, "case.status", "case", c.ID, map[string]interface{}{
		"from": previous, "to": status,
	})
	return s.Get(p, caseID)
}

// Close closes a case, stamping ClosedDate and appending a CASE_CLOSED
// event with the outcome.
func (s *CaseService) Close(p *auth.Principal, caseID, outcome string) (*models.Case, error) {
	c, err := s.Get(p, caseID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":      models.CaseStatusClosed,
			"closed_date": now,
		}
		if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return err
		}
		event := models.CaseEvent{
			CaseID:      c.ID,
			EventType:   models.EventCaseClosed,
			Title:       "Case closed",
			Description: outcome,
			EventDate:   &now,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(p, "case.close", "case", c.ID, map[string]interface{}{"outcome": outcome})
	return s.Get(p, caseID)
}

// BulkStatusResult reports a bulk status update.
type BulkStatusResult struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}

// BulkSetStatus updates many cases in one statement, then appends one
// STATUS_CHANGED event per updated case. IDs that are out of scope or
// unknown are reported as skipped, not failed.
func (s *CaseService) BulkSetStatus(p *auth.Principal, caseIDs []string, status string) (*BulkStatusResult, error) {
	if !validStatus(status) {
		return nil, &types.CustomError{Code: 400, Message: fmt.Sprintf("invalid status: %s", status), Type: "validation"}
	}
	if len(caseIDs) == 0 {
		return &BulkStatusResult{}, nil
	}

	var visible []models.Case
	if err := policy.ScopeCases(s.db, p).Where("cases.id IN ?", caseIDs).Find(&visible).Error; err != nil {
		return nil, err
	}
	visibleIDs := make([]string, 0, len(visible))
	seen := make(map[string]bool, len(visible))
	for _, c := range visible {
		visibleIDs = append(visibleIDs, c.ID)
		seen[c.ID] = true
	}

	result := &BulkStatusResult{}
	for _, id := range caseIDs {
		if !seen[id] {
			result.Skipped = append(result.Skipped, id)
		}
	}
	if len(visibleIDs) == 0 {
		return result, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": status}
		if col := statusDateColumn(status); col != "" {
			updates[col] = time.Now().UTC()
		}
		if err := tx.Model(&models.Case{}).Where("id IN ?", visibleIDs).Updates(updates).Error; err != nil {
			return err
		}
		for _, c := range visible {
			event := models.CaseEvent{
				CaseID:      c.ID,
				EventType:   models.EventStatusChanged,
				Title:       "Status changed",
				Description: fmt.Sprintf("Status changed from %s to %s (bulk update)", c.Status, status),
				EventDate:   ptrTime(time.Now().UTC()),
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Updated = len(visibleIDs)

	s.audit.Record(p, "case.bulk_status", "case", "", map[string]interface{}{
		"status": status, "count": result.Updated,
	})
	return result, nil
}

// AddEvent appends a manual timeline entry.
func (s *CaseService) AddEvent(p *auth.Principal, caseID string, event models.CaseEvent) (*models.CaseEvent, error) {
	c, err := s.Get(p, caseID)
	if err != nil {
		return nil, err
	}
	event.Model = models.Model{}
	event.CaseID = c.ID
	if event.EventDate == nil {
		event.EventDate = ptrTime(time.Now().UTC())
	}
	if err := s.db.Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEventInput carries editable event fields. Nil means unchanged.
// Completing an event is an update with IsCompleted set.
type UpdateEventInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	EventDate   *time.Time `json:"eventDate"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted *bool      `json:"isCompleted"`
}

// UpdateEvent edits a timeline entry.
func (s *CaseService) UpdateEvent(p *auth.Principal, caseID, eventID string, input UpdateEventInput) (*models.CaseEvent, error) {
	if _, err := s.Get(p, caseID); err != nil {
		return nil, err
	}
	var event models.CaseEvent
	if err := s.db.Where("id = ? AND case_id = ?", eventID, caseID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.EventDate != nil {
		updates["event_date"] = *input.EventDate
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.IsCompleted != nil {
		updates["is_completed"] = *input.IsCompleted
	}
	if len(updates) > 0 {
		if err := s.db.Model(&event).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &event, nil
}

// UpcomingEvents lists incomplete events with a due date inside the next
// `days` days across the caller's cases, soonest first.
func (s *CaseService) UpcomingEvents(p *auth.Principal, days int) ([]models.CaseEvent, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now().UTC()

	var events []models.CaseEvent
	err := s.db.
		Joins("JOIN cases ON cases.id = case_events.case_id").
		Scopes(func(db *gorm.DB) *gorm.DB { return policy.ScopeCases(db, p) }).
		Where("case_events.is_completed = ?", false).
		Where("case_events.due_date BETWEEN ? AND ?", now, now.AddDate(0, 0, days)).
		Preload("Case").
		Order("case_events.due_date ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteEvent removes a timeline entry. Firm users only; events written
// by lifecycle transitions can be removed too.
func (s *CaseService) DeleteEvent(p *auth.Principal, caseID, eventID string) error {
	if _, err := s.Get(p, caseID); err != nil {
		return err
	}
	res := s.db.Where("id = ? AND case_id = ?", eventID, caseID).Delete(&models.CaseEvent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment writes a case note. Comments authored by client users are
// always visible to both sides regardless of the requested flag.
func (s *CaseService) AddComment(p *auth.Principal, caseID, content string, isInternal bool) (*models.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	c, err := s.Get(p, caseID)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		CaseID:  c.ID,
		Content: content,
	}
	if p.IsClient() {
		comment.AuthorType = auth.UserTypeClient
		comment.ClientUserID = &p.ID
		comment.IsInternal = false
	} else {
		comment.AuthorType = auth.UserTypeFirm
		comment.FirmUserID = &p.ID
		comment.IsInternal = isInternal
	}

	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns a case's comments oldest first, with internal
// comments hidden from client principals.
func (s *CaseService) ListComments(p *auth.Principal, caseID string) ([]models.Comment, error) {
	if _, err := s.Get(p, caseID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := policy.ScopeComments(s.db, p).
		Where("comments.case_id = ?", caseID).
		Preload("FirmUser").
		Preload("ClientUser").
		Order("comments.created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ImportRowError records one rejected row of a bulk import.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult reports a bulk CSV import. Failed rows never abort the
// rest of the file.
type ImportResult struct {
	Created int              `json:"created"`
	Errors  []ImportRowError `json:"errors"`
}

// ImportCSV creates cases from a CSV of intake rows. Expected columns:
// property_external_id, tenant_external_id, type, reason, jurisdiction,
// amount_owed, months_owed. Rows are matched to properties and tenants
// by external ID within the client.
func (s *CaseService) ImportCSV(p *auth.Principal, clientID string, r io.Reader) (*ImportResult, error) {
	if p.IsClient() {
		clientID = p.ClientID
	}
	if clientID == "" {
		return nil, fmt.Errorf("clientId is required")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv header read failed: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ImportResult{}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		input := CreateCaseInput{
			ClientID:     clientID,
			Type:         field(record, "type"),
			Reason:       field(record, "reason"),
			Jurisdiction: field(record, "jurisdiction"),
		}
		if v := field(record, "amount_owed"); v != "" {
			amount, err := strconv.ParseFloat(v, 64)
			if err != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "invalid amount_owed"})
				continue
			}
			input.AmountOwed = &amount
		}
		if v := field(record, "months_owed"); v != "" {
			months, err := strconv.Atoi(v)
			if err != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "invalid months_owed"})
				continue
			}
			input.MonthsOwed = &months
		}

		var property models.Property
		if err := s.db.Where("external_id = ? AND client_id = ?", field(record, "property_external_id"), clientID).
			First(&property).Error; err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "property not found"})
			continue
		}
		input.PropertyID = property.ID
		if input.Jurisdiction == "" {
			input.Jurisdiction = property.Jurisdiction
		}

		var tenant models.Tenant
		if err := s.db.Where("external_id = ? AND client_id = ?", field(record, "tenant_external_id"), clientID).
			First(&tenant).Error; err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "tenant not found"})
			continue
		}
		input.TenantIDs = []string{tenant.ID}

		if _, err := s.Create(p, input); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Created++
	}

	return result, nil
}

func ptrTime(t time.Time) *time.Time { return &t }
