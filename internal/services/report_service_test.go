package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertilaw/propertilaw/internal/models"
)

func TestDashboardCountsAndScope(t *testing.T) {
	db, f, cases := newCaseFixture(t)
	sender := &recordingSender{}
	reports := NewReportService(db, NewNotificationService(db, sender))
	p := firmPrincipal(&f.Attorney)

	a, err := cases.Create(p, baseInput(f))
	require.NoError(t, err)
	_, err = cases.Create(p, baseInput(f))
	require.NoError(t, err)
	_, err = cases.Close(p, a.ID, "resolved")
	require.NoError(t, err)

	d, err := reports.BuildDashboard(p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalCases)
	assert.Equal(t, int64(1), d.ActiveCases)

	// Client B sees none of client A's cases.
	empty, err := reports.BuildDashboard(clientPrincipal(&f.UserB))
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalCases)
}

func TestCaseVolumeBucketsByMonth(t *testing.T) {
	db, f, cases := newCaseFixture(t)
	reports := NewReportService(db, NewNotificationService(db, &recordingSender{}))
	p := firmPrincipal(&f.Attorney)

	_, err := cases.Create(p, baseInput(f))
	require.NoError(t, err)
	_, err = cases.Create(p, baseInput(f))
	require.NoError(t, err)

	buckets, err := reports.CaseVolume(p, 12)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(2), buckets[0].Count)
	assert.Equal(t, f.ClientA.ID, buckets[0].ClientID)
	assert.Equal(t, "Garden State Property Group", buckets[0].ClientName)
}

func TestTimelineMetrics(t *testing.T) {
	db, f, cases := newCaseFixture(t)
	reports := NewReportService(db, NewNotificationService(db, &recordingSender{}))
	p := firmPrincipal(&f.Attorney)

	a, err := cases.Create(p, baseInput(f))
	require.NoError(t, err)
	_, err = cases.SetStatus(p, a.ID, models.CaseStatusFiled, "")
	require.NoError(t, err)
	_, err = cases.Create(p, baseInput(f))
	require.NoError(t, err)

	m, err := reports.Timeline(p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.CasesMeasured)
	require.NotNil(t, m.AvgDaysToFiling)
	assert.GreaterOrEqual(t, *m.AvgDaysToFiling, 0.0)
	assert.Nil(t, m.AvgDaysToClose)
}

func TestScheduledReportDelivery(t *testing.T) {
	db, f, cases := newCaseFixture(t)
	sender := &recordingSender{}
	reports := NewReportService(db, NewNotificationService(db, sender))
	p := firmPrincipal(&f.Attorney)

	_, err := cases.Create(p, baseInput(f))
	require.NoError(t, err)

	// No settings row yet: nothing is sent.
	reports.DeliverScheduled()
	assert.Equal(t, 0, sender.count())

	email := "ops@harrisoncole.test"
	require.NoError(t, db.Create(&models.FirmSettings{
		LawFirmID:                f.Firm.ID,
		DefaultNotificationEmail: &email,
		SyncSchedule:             "0 2 * * *",
		DataRetentionYears:       7,
	}).Error)

	reports.DeliverScheduled()
	require.Equal(t, 1, sender.count())
	assert.Equal(t, email, sender.last().To)
	assert.Contains(t, sender.last().Body, "Total cases: 1")
}
