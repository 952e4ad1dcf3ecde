package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/models"
)

// rewriteTransport redirects every provider call to the test server so
// the canned endpoints in the court table never leave the process.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := *req
	u := *req.URL
	u.Scheme = "http"
	u.Host = strings.TrimPrefix(rt.target, "http://")
	rewritten.URL = &u
	return http.DefaultTransport.RoundTrip(&rewritten)
}

func newEFilingFixture(t *testing.T, handler http.Handler) (*gorm.DB, *fixture, *CaseService, *EFilingService, *recordingSender) {
	db := newTestDB(t)
	f := seed(t, db)
	audit := NewAuditService(db)
	sender := &recordingSender{}
	notify := NewNotificationService(db, sender)
	cases := NewCaseService(db, audit)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := &http.Client{Transport: rewriteTransport{target: server.URL}}

	efiling := NewEFilingService(db, cases, notify, audit, client)
	return db, f, cases, efiling, sender
}

// attachPacket gives a case the documents a provider submission needs.
func attachPacket(t *testing.T, db *gorm.DB, caseID string) {
	t.Helper()
	for _, docType := range []string{models.DocTypeComplaint, models.DocTypeCoverSheet} {
		doc := models.Document{
			CaseID:   caseID,
			Type:     docType,
			Name:     docType,
			FileName: strings.ToLower(docType) + ".pdf",
			FilePath: "/tmp/" + strings.ToLower(docType) + ".pdf",
		}
		require.NoError(t, db.Create(&doc).Error)
	}
}

func TestSubmitElectronicFiling(t *testing.T) {
	var received map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"trackingId":  "TO-55121",
			"hearingDate": "2026-04-10T09:00:00Z",
		})
	})
	db, f, cases, efiling, sender := newEFilingFixture(t, handler)

	input := baseInput(f)
	input.AssignedAttorneyID = &f.Attorney.ID
	c, err := cases.Create(firmPrincipal(&f.Attorney), input)
	require.NoError(t, err)
	attachPacket(t, db, c.ID)

	result, err := efiling.Submit(context.Background(), firmPrincipal(&f.Attorney), c.ID)
	require.NoError(t, err)
	assert.Equal(t, FilingMethodElectronic, result.Method)
	assert.Equal(t, ProviderTylerOdyssey, result.Provider) // seeded property is in Essex
	assert.Equal(t, "TO-55121", result.TrackingID)
	require.NotNil(t, result.HearingDate)

	// The property sues; every case tenant is a defendant.
	assert.Equal(t, f.Property.Name, received["plaintiff"].(map[string]interface{})["name"])
	defendants := received["defendants"].([]interface{})
	require.Len(t, defendants, 1)
	assert.Equal(t, "Jordan Reyes", defendants[0].(map[string]interface{})["name"])

	// The packet documents ride along.
	documents := received["documents"].([]interface{})
	require.Len(t, documents, 2)
	docTypes := []string{
		documents[0].(map[string]interface{})["type"].(string),
		documents[1].(map[string]interface{})["type"].(string),
	}
	assert.Contains(t, docTypes, models.DocTypeComplaint)
	assert.Contains(t, docTypes, models.DocTypeCoverSheet)

	var row models.Case
	require.NoError(t, db.First(&row, "id = ?", c.ID).Error)
	assert.Equal(t, models.CaseStatusFiled, row.Status)
	assert.NotNil(t, row.FiledDate)
	require.NotNil(t, row.HearingDate)
	assert.Equal(t, 2026, row.HearingDate.Year())
	require.NotNil(t, row.Court)
	assert.Contains(t, *row.Court, "Essex")

	var event models.CaseEvent
	require.NoError(t, db.Where("case_id = ? AND event_type = ?", c.ID, models.EventFiled).First(&event).Error)
	assert.Contains(t, event.Description, "TO-55121")

	// The assigned attorney hears about the filing.
	require.Equal(t, 1, sender.count())
	assert.Equal(t, f.Attorney.Email, sender.last().To)
}

func TestSubmitFallsBackToManualFiling(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("manual filing must not call a provider")
	})
	db, f, cases, efiling, _ := newEFilingFixture(t, handler)

	// A county with no e-filing route.
	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", f.Property.ID).Update("county", "Warren").Error)

	c, err := cases.Create(firmPrincipal(&f.Attorney), baseInput(f))
	require.NoError(t, err)

	result, err := efiling.Submit(context.Background(), firmPrincipal(&f.Attorney), c.ID)
	require.NoError(t, err)
	assert.Equal(t, FilingMethodManual, result.Method)
	assert.Contains(t, result.Instructions, "county clerk")
	assert.Contains(t, result.CourtName, "Warren")

	var row models.Case
	require.NoError(t, db.First(&row, "id = ?", c.ID).Error)
	assert.Equal(t, models.CaseStatusFiled, row.Status)
}

func TestSubmitRequiresFilingPacket(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("a case without its packet must not reach the provider")
	})
	db, f, cases, efiling, _ := newEFilingFixture(t, handler)

	c, err := cases.Create(firmPrincipal(&f.Attorney), baseInput(f))
	require.NoError(t, err)

	_, err = efiling.Submit(context.Background(), firmPrincipal(&f.Attorney), c.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cover sheet")

	var row models.Case
	require.NoError(t, db.First(&row, "id = ?", c.ID).Error)
	assert.Equal(t, models.CaseStatusIntake, row.Status)
}

func TestSubmitProviderErrorLeavesCaseUntouched(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	db, f, cases, efiling, _ := newEFilingFixture(t, handler)

	c, err := cases.Create(firmPrincipal(&f.Attorney), baseInput(f))
	require.NoError(t, err)
	attachPacket(t, db, c.ID)

	_, err = efiling.Submit(context.Background(), firmPrincipal(&f.Attorney), c.ID)
	require.Error(t, err)

	var row models.Case
	require.NoError(t, db.First(&row, "id = ?", c.ID).Error)
	assert.Equal(t, models.CaseStatusIntake, row.Status)
	assert.Nil(t, row.FiledDate)
}

func TestCheckStatusStoresDocketNumber(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]string{"trackingId": "TO-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "courtCaseNumber": "LT-004321-26"})
		}
	})
	db, f, cases, efiling, _ := newEFilingFixture(t, handler)

	c, err := cases.Create(firmPrincipal(&f.Attorney), baseInput(f))
	require.NoError(t, err)
	attachPacket(t, db, c.ID)
	_, err = efiling.Submit(context.Background(), firmPrincipal(&f.Attorney), c.ID)
	require.NoError(t, err)

	require.NoError(t, efiling.CheckStatus(context.Background(), c.ID))

	var row models.Case
	require.NoError(t, db.First(&row, "id = ?", c.ID).Error)
	require.NotNil(t, row.CourtCaseNumber)
	assert.Equal(t, "LT-004321-26", *row.CourtCaseNumber)
}

func TestCourtConfigLookupIsCaseInsensitive(t *testing.T) {
	cfg, ok := CourtConfigFor("  ESSEX ")
	require.True(t, ok)
	assert.Equal(t, ProviderTylerOdyssey, cfg.Provider)

	cfg, ok = CourtConfigFor("bergen")
	require.True(t, ok)
	assert.Equal(t, ProviderFileServeXpress, cfg.Provider)

	_, ok = CourtConfigFor("warren")
	assert.False(t, ok)
}
