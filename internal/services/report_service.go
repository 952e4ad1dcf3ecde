package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/policy"
)

// Report types available for on-demand and scheduled delivery.
const (
	ReportDashboard       = "dashboard"
	ReportCaseVolume      = "case-volume"
	ReportTimelineMetrics = "timeline-metrics"
)

// ReportService computes operational reports over the caller's cases.
type ReportService struct {
	db     *gorm.DB
	notify *NotificationService
}

// NewReportService returns a ReportService backed by db.
func NewReportService(db *gorm.DB, notify *NotificationService) *ReportService {
	return &ReportService{db: db, notify: notify}
}

// StatusCount is one slice of the dashboard status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Dashboard is the at-a-glance summary.
type Dashboard struct {
	TotalCases       int64         `json:"totalCases"`
	ActiveCases      int64         `json:"activeCases"`
	ByStatus         []StatusCount `json:"byStatus"`
	PendingApprovals int64         `json:"pendingApprovals"`
	TotalAmountOwed  float64       `json:"totalAmountOwed"`
}

// BuildDashboard computes the dashboard for the principal's scope.
func (s *ReportService) BuildDashboard(p *auth.Principal) (*Dashboard, error) {
	d := &Dashboard{}

	base := func() *gorm.DB { return policy.ScopeCases(s.db.Model(&models.Case{}), p) }

	if err := base().Count(&d.TotalCases).Error; err != nil {
		return nil, err
	}
	if err := base().Where("cases.status NOT IN ?", []string{models.CaseStatusClosed}).
		Count(&d.ActiveCases).Error; err != nil {
		return nil, err
	}
	if err := base().Select("cases.status AS status, COUNT(*) AS count").
		Group("cases.status").
		Scan(&d.ByStatus).Error; err != nil {
		return nil, err
	}

	err := policy.ScopeCases(s.db.Model(&models.Document{}).
		Joins("JOIN cases ON cases.id = documents.case_id"), p).
		Where("documents.approval_status = ?", models.ApprovalPending).
		Count(&d.PendingApprovals).Error
	if err != nil {
		return nil, err
	}

	var owed struct{ Total float64 }
	err = base().Where("cases.status NOT IN ?", []string{models.CaseStatusClosed}).
		Select("COALESCE(SUM(cases.amount_owed), 0) AS total").
		Scan(&owed).Error
	if err != nil {
		return nil, err
	}
	d.TotalAmountOwed = owed.Total

	return d, nil
}

// VolumeBucket is one month of case intake for one client.
type VolumeBucket struct {
	Month      string `json:"month"`
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	Count      int64  `json:"count"`
}

// CaseVolume buckets case intake by calendar month and client over the
// trailing window.
func (s *ReportService) CaseVolume(p *auth.Principal, months int) ([]VolumeBucket, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	since := time.Now().UTC().AddDate(0, -months, 0)

	var cases []models.Case
	err := policy.ScopeCases(s.db.Model(&models.Case{}), p).
		Where("cases.created_at >= ?", since).
		Preload("Client").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}

	// Bucket in Go rather than SQL; month truncation syntax differs by
	// driver and the row counts here are small.
	type key struct {
		month    string
		clientID string
	}
	buckets := make(map[key]*VolumeBucket)
	var order []key
	for _, c := range cases {
		k := key{month: c.CreatedAt.UTC().Format("2006-01"), clientID: c.ClientID}
		b, ok := buckets[k]
		if !ok {
			name := ""
			if c.Client != nil {
				name = c.Client.Name
			}
			b = &VolumeBucket{Month: k.month, ClientID: k.clientID, ClientName: name}
			buckets[k] = b
			order = append(order, k)
		}
		b.Count++
	}

	out := make([]VolumeBucket, 0, len(order))
	for _, k := range order {
		out = append(out, *buckets[k])
	}
	return out, nil
}

// TimelineMetrics reports average lifecycle durations in days.
type TimelineMetrics struct {
	CasesMeasured     int64    `json:"casesMeasured"`
	AvgDaysToFiling   *float64 `json:"avgDaysToFiling"`
	AvgDaysToClose    *float64 `json:"avgDaysToClose"`
	AvgDaysToJudgment *float64 `json:"avgDaysToJudgment"`
}

// Timeline computes lifecycle duration averages over cases that have
// reached each milestone.
func (s *ReportService) Timeline(p *auth.Principal) (*TimelineMetrics, error) {
	var cases []models.Case
	err := policy.ScopeCases(s.db.Model(&models.Case{}), p).Find(&cases).Error
	if err != nil {
		return nil, err
	}

	m := &TimelineMetrics{CasesMeasured: int64(len(cases))}
	var filedSum, closedSum, judgmentSum float64
	var filedN, closedN, judgmentN int

	for _, c := range cases {
		if c.FiledDate != nil {
			filedSum += c.FiledDate.Sub(c.CreatedAt).Hours() / 24
			filedN++
		}
		if c.ClosedDate != nil {
			closedSum += c.ClosedDate.Sub(c.CreatedAt).Hours() / 24
			closedN++
		}
		if c.JudgmentDate != nil {
			judgmentSum += c.JudgmentDate.Sub(c.CreatedAt).Hours() / 24
			judgmentN++
		}
	}

	if filedN > 0 {
		avg := filedSum / float64(filedN)
		m.AvgDaysToFiling = &avg
	}
	if closedN > 0 {
		avg := closedSum / float64(closedN)
		m.AvgDaysToClose = &avg
	}
	if judgmentN > 0 {
		avg := judgmentSum / float64(judgmentN)
		m.AvgDaysToJudgment = &avg
	}
	return m, nil
}

// DeliverScheduled renders the dashboard for every firm and emails it
// to the firm's notification address. Firms without an address are
// skipped. Used by the scheduler.
func (s *ReportService) DeliverScheduled() {
	var firms []models.LawFirm
	if err := s.db.Preload("Settings").Find(&firms).Error; err != nil {
		slog.Error("scheduled report firm list failed", "error", err)
		return
	}

	for _, firm := range firms {
		if firm.Settings == nil || firm.Settings.DefaultNotificationEmail == nil {
			continue
		}

		// A synthetic firm-admin principal scopes the report to the firm.
		p := &auth.Principal{UserType: auth.UserTypeFirm, Role: models.RoleLawFirmAdmin, LawFirmID: firm.ID}
		dashboard, err := s.BuildDashboard(p)
		if err != nil {
			slog.Warn("scheduled report build failed", "firmId", firm.ID, "error", err)
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Daily case summary for %s\n\n", firm.Name)
		fmt.Fprintf(&b, "Total cases: %d\n", dashboard.TotalCases)
		fmt.Fprintf(&b, "Active cases: %d\n", dashboard.ActiveCases)
		fmt.Fprintf(&b, "Pending approvals: %d\n", dashboard.PendingApprovals)
		fmt.Fprintf(&b, "Outstanding amount: $%.2f\n\n", dashboard.TotalAmountOwed)
		for _, sc := range dashboard.ByStatus {
			fmt.Fprintf(&b, "  %-20s %d\n", sc.Status, sc.Count)
		}

		subject := fmt.Sprintf("Daily case summary: %s", time.Now().UTC().Format("2006-01-02"))
		s.notify.SendReport([]string{*firm.Settings.DefaultNotificationEmail}, subject, b.String())
	}
}
