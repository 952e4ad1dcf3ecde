package services

import (
	"fmt"
	"log/slog"

	mail "github.com/go-mail/mail"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/config"
	"github.com/propertilaw/propertilaw/internal/models"
)

// Sender delivers one email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through the configured SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPSender builds a sender from the SMTP configuration.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.FromEmail,
	}
}

// Send delivers a plain-text message.
func (s *SMTPSender) Send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

// NotificationService resolves recipients and sends workflow emails.
// Delivery is best effort: failures are logged, never propagated, so a
// dead relay cannot fail a case mutation.
type NotificationService struct {
	db     *gorm.DB
	sender Sender
}

// NewNotificationService returns a NotificationService using sender for
// delivery.
func NewNotificationService(db *gorm.DB, sender Sender) *NotificationService {
	return &NotificationService{db: db, sender: sender}
}

func (s *NotificationService) send(to, subject, body string) {
	if to == "" || s.sender == nil {
		return
	}
	if err := s.sender.Send(to, subject, body); err != nil {
		slog.Warn("notification send failed", "to", to, "subject", subject, "error", err)
	}
}

// NotifyClientUsers emails every active user of a client.
func (s *NotificationService) NotifyClientUsers(clientID, subject, body string) {
	var users []models.ClientUser
	if err := s.db.Where("client_id = ? AND is_active = ?", clientID, true).Find(&users).Error; err != nil {
		slog.Warn("notification recipient lookup failed", "clientId", clientID, "error", err)
		return
	}
	for _, u := range users {
		s.send(u.Email, subject, body)
	}
}

// NotifyFirmUser emails one firm user by ID.
func (s *NotificationService) NotifyFirmUser(firmUserID, subject, body string) {
	var user models.FirmUser
	if err := s.db.First(&user, "id = ?", firmUserID).Error; err != nil {
		slog.Warn("notification recipient lookup failed", "firmUserId", firmUserID, "error", err)
		return
	}
	s.send(user.Email, subject, body)
}

// NotifyApprovalRequested tells a client's users that a document awaits
// their review.
func (s *NotificationService) NotifyApprovalRequested(doc *models.Document, caseNumber string) {
	subject := fmt.Sprintf("Document approval requested on case %s", caseNumber)
	body := fmt.Sprintf(
		"The document %q on case %s is awaiting your approval.\n\nPlease sign in to review it.",
		doc.Name, caseNumber,
	)
	s.NotifyClientUsers(doc.Case.ClientID, subject, body)
}

// NotifyApprovalDecision tells the uploading firm user the client's
// decision on a document.
func (s *NotificationService) NotifyApprovalDecision(doc *models.Document, caseNumber, decision, reason string) {
	if doc.UploadedByID == nil {
		return
	}
	subject := fmt.Sprintf("Document %s on case %s", decision, caseNumber)
	body := fmt.Sprintf("The document %q on case %s was %s.", doc.Name, caseNumber, decision)
	if reason != "" {
		body += "\n\nReason: " + reason
	}
	s.NotifyFirmUser(*doc.UploadedByID, subject, body)
}

// NotifyCaseFiled tells the assigned attorney that a filing was
// accepted by the court system.
func (s *NotificationService) NotifyCaseFiled(c *models.Case) {
	if c.AssignedAttorneyID == nil {
		return
	}
	subject := fmt.Sprintf("Case %s filed", c.CaseNumber)
	body := fmt.Sprintf("Case %s was submitted for filing in %s.", c.CaseNumber, c.Jurisdiction)
	s.NotifyFirmUser(*c.AssignedAttorneyID, subject, body)
}

// SendReport delivers a rendered report to a recipient list.
func (s *NotificationService) SendReport(recipients []string, subject, body string) {
	for _, r := range recipients {
		s.send(r, subject, body)
	}
}
