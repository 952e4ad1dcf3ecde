package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertilaw/propertilaw/internal/models"
)

func TestTemplateVersioning(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	svc := NewTemplateService(db, NewAuditService(db))
	p := firmPrincipal(&f.Admin)

	input := CreateTemplateInput{
		Name:         "Essex Notice to Quit",
		Type:         models.DocTypeNoticeToQuit,
		Jurisdiction: "Essex",
		TemplatePath: "templates/essex-ntq-v1.txt",
	}

	v1, err := svc.Create(p, input)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.True(t, v1.IsActive)

	input.TemplatePath = "templates/essex-ntq-v2.txt"
	v2, err := svc.Create(p, input)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.True(t, v2.IsActive)

	// The predecessor is deactivated, not deleted.
	var old models.DocumentTemplate
	require.NoError(t, db.First(&old, "id = ?", v1.ID).Error)
	assert.False(t, old.IsActive)

	active, err := svc.List(models.DocTypeNoticeToQuit, "Essex", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v2.ID, active[0].ID)

	all, err := svc.List(models.DocTypeNoticeToQuit, "Essex", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTemplateDeactivateKeepsRow(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	svc := NewTemplateService(db, NewAuditService(db))
	p := firmPrincipal(&f.Admin)

	tmpl, err := svc.Create(p, CreateTemplateInput{
		Name: "Bergen Complaint", Type: models.DocTypeComplaint,
		Jurisdiction: "Bergen", TemplatePath: "templates/bergen-complaint.txt",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(p, tmpl.ID))

	var row models.DocumentTemplate
	require.NoError(t, db.First(&row, "id = ?", tmpl.ID).Error)
	assert.False(t, row.IsActive)

	assert.ErrorIs(t, svc.Deactivate(p, "missing"), ErrNotFound)
}

func TestFirmSettingsLazyCreation(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	svc := NewFirmService(db, NewAuditService(db))
	p := firmPrincipal(&f.Admin)

	settings, err := svc.GetSettings(p)
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", settings.SyncSchedule)
	assert.Equal(t, 7, settings.DataRetentionYears)

	// A second read returns the same row.
	again, err := svc.GetSettings(p)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)

	email := "ops@harrisoncole.test"
	updated, err := svc.UpdateSettings(p, UpdateSettingsInput{DefaultNotificationEmail: &email})
	require.NoError(t, err)
	require.NotNil(t, updated.DefaultNotificationEmail)
	assert.Equal(t, email, *updated.DefaultNotificationEmail)

	bad := 0
	_, err = svc.UpdateSettings(p, UpdateSettingsInput{DataRetentionYears: &bad})
	require.Error(t, err)
}
