package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/types"
)

// Filing methods reported back to the caller.
const (
	FilingMethodElectronic = "electronic"
	FilingMethodManual     = "manual"
)

// E-filing providers.
const (
	ProviderTylerOdyssey    = "tyler-odyssey"
	ProviderFileServeXpress = "file-servexpress"
)

const efilingTimeout = 60 * time.Second

// CourtConfig describes the filing route for one county.
type CourtConfig struct {
	County    string
	CourtName string
	Provider  string
	Endpoint  string
}

// courtConfigs routes counties to their e-filing providers. Counties
// absent from the map fall back to manual filing.
var courtConfigs = map[string]CourtConfig{
	"essex": {
		County:    "Essex",
		CourtName: "Essex County Superior Court, Special Civil Part",
		Provider:  ProviderTylerOdyssey,
		Endpoint:  "https://efile.tylerodyssey.com/api/filings",
	},
	"hudson": {
		County:    "Hudson",
		CourtName: "Hudson County Superior Court, Special Civil Part",
		Provider:  ProviderTylerOdyssey,
		Endpoint:  "https://efile.tylerodyssey.com/api/filings",
	},
	"bergen": {
		County:    "Bergen",
		CourtName: "Bergen County Superior Court, Special Civil Part",
		Provider:  ProviderFileServeXpress,
		Endpoint:  "https://api.fileandservexpress.com/v2/filings",
	},
}

// CourtConfigFor resolves the filing route for a county name.
func CourtConfigFor(county string) (CourtConfig, bool) {
	cfg, ok := courtConfigs[strings.ToLower(strings.TrimSpace(county))]
	return cfg, ok
}

// CourtConfigs returns all configured filing routes.
func CourtConfigs() []CourtConfig {
	out := make([]CourtConfig, 0, len(courtConfigs))
	for _, cfg := range courtConfigs {
		out = append(out, cfg)
	}
	return out
}

// FilingResult reports a filing submission.
type FilingResult struct {
	Method          string     `json:"method"`
	Provider        string     `json:"provider,omitempty"`
	CourtName       string     `json:"courtName"`
	TrackingID      string     `json:"trackingId,omitempty"`
	CourtCaseNumber string     `json:"courtCaseNumber,omitempty"`
	HearingDate     *time.Time `json:"hearingDate,omitempty"`
	Fees            float64    `json:"fees,omitempty"`
	Instructions    string     `json:"instructions,omitempty"`
}

// EFilingService submits complaints to county e-filing providers and
// tracks their acceptance.
type EFilingService struct {
	db     *gorm.DB
	cases  *CaseService
	notify *NotificationService
	audit  *AuditService
	client *http.Client
}

// NewEFilingService returns an EFilingService. A nil client gets the
// default with the provider timeout.
func NewEFilingService(db *gorm.DB, cases *CaseService, notify *NotificationService, audit *AuditService, client *http.Client) *EFilingService {
	if client == nil {
		client = &http.Client{Timeout: efilingTimeout}
	}
	return &EFilingService{db: db, cases: cases, notify: notify, audit: audit, client: client}
}

// Submit files a case with its county's provider. Counties with no
// configured provider get manual-filing instructions instead; the case
// still moves to FILED either way, since the filing has left the
// firm's hands.
func (s *EFilingService) Submit(ctx context.Context, p *auth.Principal, caseID string) (*FilingResult, error) {
	c, err := s.cases.Get(p, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CaseStatusClosed {
		return nil, fmt.Errorf("case %s is closed", c.CaseNumber)
	}

	county := ""
	if c.Property != nil {
		county = c.Property.County
	}

	cfg, ok := CourtConfigFor(county)
	if !ok {
		result := &FilingResult{
			Method:    FilingMethodManual,
			CourtName: fmt.Sprintf("%s County Superior Court", titleCase(county)),
			Instructions: "No e-filing provider is configured for this county. " +
				"Print the complaint packet and file it with the county clerk in person or by mail.",
		}
		if err := s.markFiled(p, c, result.CourtName, "", "", nil); err != nil {
			return nil, err
		}
		return result, nil
	}

	docs, err := s.packetDocuments(c.ID)
	if err != nil {
		return nil, err
	}
	payload, err := s.buildPayload(cfg.Provider, c, docs)
	if err != nil {
		return nil, err
	}

	resp, err := s.post(ctx, cfg.Endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("e-filing submission to %s failed: %w", cfg.Provider, err)
	}

	hearing := resp.hearing()
	if err := s.markFiled(p, c, cfg.CourtName, resp.tracking(), resp.CourtCaseNumber, hearing); err != nil {
		return nil, err
	}

	return &FilingResult{
		Method:          FilingMethodElectronic,
		Provider:        cfg.Provider,
		CourtName:       cfg.CourtName,
		TrackingID:      resp.tracking(),
		CourtCaseNumber: resp.CourtCaseNumber,
		HearingDate:     hearing,
		Fees:            resp.Fees,
	}, nil
}

// packetDocuments loads the filing packet. The complaint and cover
// sheet are required; a fee waiver rides along when one exists.
func (s *EFilingService) packetDocuments(caseID string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.Where("case_id = ? AND type IN ?", caseID, []string{
		models.DocTypeComplaint, models.DocTypeCoverSheet, models.DocTypeFilingFeeWaiver,
	}).Order("created_at ASC").Find(&docs).Error
	if err != nil {
		return nil, err
	}

	have := map[string]bool{}
	for _, d := range docs {
		have[d.Type] = true
	}
	if !have[models.DocTypeComplaint] || !have[models.DocTypeCoverSheet] {
		return nil, &types.CustomError{
			Code:    400,
			Message: "A complaint and cover sheet must be attached to the case before filing",
			Type:    "filing",
		}
	}
	return docs, nil
}

// buildPayload shapes the submission for a provider's API. The property
// is the plaintiff, every case tenant a defendant, and the packet
// documents ride along as attachments.
func (s *EFilingService) buildPayload(provider string, c *models.Case, docs []models.Document) ([]byte, error) {
	plaintiffName := ""
	premises := ""
	if c.Property != nil {
		plaintiffName = c.Property.Name
		premises = c.Property.Address
	}

	defendants := make([]map[string]string, 0, len(c.Tenants))
	for _, ct := range c.Tenants {
		if ct.Tenant == nil {
			continue
		}
		defendants = append(defendants, map[string]string{
			"name":    ct.Tenant.FirstName + " " + ct.Tenant.LastName,
			"address": premises,
		})
	}

	attachments := make([]map[string]string, 0, len(docs))
	for _, d := range docs {
		attachments = append(attachments, map[string]string{
			"type":     d.Type,
			"fileName": d.FileName,
		})
	}

	switch provider {
	case ProviderTylerOdyssey:
		return json.Marshal(map[string]interface{}{
			"caseType":     "LT",
			"caseCategory": "Landlord/Tenant",
			"referenceId":  c.CaseNumber,
			"plaintiff":    map[string]string{"name": plaintiffName, "address": premises},
			"defendants":   defendants,
			"documents":    attachments,
			"claimAmount":  c.AmountOwed,
			"jurisdiction": c.Jurisdiction,
		})
	case ProviderFileServeXpress:
		names := make([]string, 0, len(defendants))
		for _, d := range defendants {
			names = append(names, d["name"])
		}
		return json.Marshal(map[string]interface{}{
			"matter_type":     "eviction",
			"client_ref":      c.CaseNumber,
			"plaintiff_name":  plaintiffName,
			"defendant_names": names,
			"premises":        premises,
			"amount_claimed":  c.AmountOwed,
			"attachments":     attachments,
		})
	default:
		return nil, fmt.Errorf("unknown e-filing provider: %s", provider)
	}
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type filingResponse struct {
	TrackingID      string  `json:"trackingId"`
	FilingID        string  `json:"filing_id"`
	ID              string  `json:"id"`
	CourtCaseNumber string  `json:"courtCaseNumber"`
	HearingDate     string  `json:"hearingDate"`
	HearingDateAlt  string  `json:"hearing_date"`
	Fees            float64 `json:"fees"`
}

func (r filingResponse) tracking() string {
	switch {
	case r.TrackingID != "":
		return r.TrackingID
	case r.FilingID != "":
		return r.FilingID
	default:
		return r.ID
	}
}

// hearing parses the provider's hearing date when one was scheduled.
func (r filingResponse) hearing() *time.Time {
	raw := r.HearingDate
	if raw == "" {
		raw = r.HearingDateAlt
	}
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (s *EFilingService) post(ctx context.Context, endpoint string, payload []byte) (*filingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var body filingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("provider response decode failed: %w", err)
	}
	return &body, nil
}

// markFiled moves the case to FILED, stamps the court, filing date and
// any hearing date the provider scheduled, appends a FILED event and
// notifies the assigned attorney.
func (s *EFilingService) markFiled(p *auth.Principal, c *models.Case, courtName, trackingID, courtCaseNumber string, hearingDate *time.Time) error {
	now := time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     models.CaseStatusFiled,
			"filed_date": now,
			"court":      courtName,
		}
		if courtCaseNumber != "" {
			updates["court_case_number"] = courtCaseNumber
		}
		if hearingDate != nil {
			updates["hearing_date"] = *hearingDate
		}
		if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return err
		}
		description := "Complaint filed"
		if trackingID != "" {
			description = fmt.Sprintf("Complaint filed electronically, tracking ID %s", trackingID)
		}
		event := models.CaseEvent{
			CaseID:      c.ID,
			EventType:   models.EventFiled,
			Title:       "Filed with court",
			Description: description,
			EventDate:   &now,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	s.notify.NotifyCaseFiled(c)
	s.audit.Record(p, "case.filed", "case", c.ID, map[string]interface{}{
		"court": courtName, "trackingId": trackingID,
	})
	return nil
}

// CheckStatus polls a provider for the court's docket assignment and
// stores the court case number once one is issued.
func (s *EFilingService) CheckStatus(ctx context.Context, caseID string) error {
	var c models.Case
	if err := s.db.Preload("Property").First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if c.Status != models.CaseStatusFiled || c.CourtCaseNumber != nil {
		return nil
	}

	county := ""
	if c.Property != nil {
		county = c.Property.County
	}
	cfg, ok := CourtConfigFor(county)
	if !ok {
		return nil
	}

	endpoint := cfg.Endpoint + "/status?ref=" + c.CaseNumber
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider status check returned %d", resp.StatusCode)
	}

	var body struct {
		Status          string `json:"status"`
		CourtCaseNumber string `json:"courtCaseNumber"`
		DocketNumber    string `json:"docket_number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	docket := body.CourtCaseNumber
	if docket == "" {
		docket = body.DocketNumber
	}
	if docket == "" {
		return nil
	}
	return s.db.Model(&models.Case{}).Where("id = ?", c.ID).
		Update("court_case_number", docket).Error
}

// PollAll checks every filed case still waiting for a docket number.
// Used by the scheduler; individual failures are logged and skipped.
func (s *EFilingService) PollAll(ctx context.Context) {
	var cases []models.Case
	err := s.db.Where("status = ? AND court_case_number IS NULL", models.CaseStatusFiled).Find(&cases).Error
	if err != nil {
		slog.Error("e-filing poll list failed", "error", err)
		return
	}
	for _, c := range cases {
		if err := s.CheckStatus(ctx, c.ID); err != nil {
			slog.Warn("e-filing status check failed", "caseId", c.ID, "caseNumber", c.CaseNumber, "error", err)
		}
	}
}
