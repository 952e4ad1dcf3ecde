package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.LawFirm{},
		&models.FirmUser{},
		&models.FirmSettings{},
		&models.PropertyMgmtClient{},
		&models.ClientUser{},
		&models.Integration{},
		&models.Property{},
		&models.Unit{},
		&models.Tenant{},
		&models.Case{},
		&models.CaseTenant{},
		&models.CaseEvent{},
		&models.Comment{},
		&models.Document{},
		&models.DocumentTemplate{},
		&models.AuditLog{},
	))
	return db
}

// fixture is the standard seeded tenancy: one firm with an attorney and
// an admin, two clients each with a user, and a property with a tenant
// under the first client.
type fixture struct {
	Firm     models.LawFirm
	Admin    models.FirmUser
	Attorney models.FirmUser
	ClientA  models.PropertyMgmtClient
	ClientB  models.PropertyMgmtClient
	UserA    models.ClientUser
	UserB    models.ClientUser
	Property models.Property
	Tenant   models.Tenant
}

func seed(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{}

	f.Firm = models.LawFirm{Name: "Harrison & Cole LLP"}
	require.NoError(t, db.Create(&f.Firm).Error)

	f.Admin = models.FirmUser{
		Email: "admin-" + uuid.NewString()[:8] + "@harrisoncole.test",
		FirstName: "Dana", LastName: "Harrison",
		Role: models.RoleLawFirmAdmin, IsActive: true, LawFirmID: f.Firm.ID,
	}
	require.NoError(t, db.Create(&f.Admin).Error)

	f.Attorney = models.FirmUser{
		Email: "attorney-" + uuid.NewString()[:8] + "@harrisoncole.test",
		FirstName: "Sam", LastName: "Cole",
		Role: models.RoleAttorney, IsActive: true, LawFirmID: f.Firm.ID,
	}
	require.NoError(t, db.Create(&f.Attorney).Error)

	f.ClientA = models.PropertyMgmtClient{Name: "Garden State Property Group", LawFirmID: f.Firm.ID}
	require.NoError(t, db.Create(&f.ClientA).Error)
	f.ClientB = models.PropertyMgmtClient{Name: "Hudson Realty Partners", LawFirmID: f.Firm.ID}
	require.NoError(t, db.Create(&f.ClientB).Error)

	f.UserA = models.ClientUser{
		Email: "usera-" + uuid.NewString()[:8] + "@gspg.test",
		Role:  models.RoleClientAdmin, IsActive: true, ClientID: f.ClientA.ID,
	}
	require.NoError(t, db.Create(&f.UserA).Error)
	f.UserB = models.ClientUser{
		Email: "userb-" + uuid.NewString()[:8] + "@hudson.test",
		Role:  models.RoleClientUser, IsActive: true, ClientID: f.ClientB.ID,
	}
	require.NoError(t, db.Create(&f.UserB).Error)

	ext := "P-100"
	f.Property = models.Property{
		ExternalID: &ext, Name: "Maple Court Apartments",
		Address: "12 Maple Ct", City: "Newark", State: "NJ", ZipCode: "07102",
		County: "Essex", Jurisdiction: "Essex County Special Civil Part",
		ClientID: f.ClientA.ID,
	}
	require.NoError(t, db.Create(&f.Property).Error)

	tenantExt := "T-100"
	f.Tenant = models.Tenant{
		ExternalID: &tenantExt, FirstName: "Jordan", LastName: "Reyes",
		ClientID: f.ClientA.ID, PropertyID: &f.Property.ID,
		CurrentBalance: 4200, IsActive: true,
	}
	require.NoError(t, db.Create(&f.Tenant).Error)

	return f
}

func firmPrincipal(u *models.FirmUser) *auth.Principal {
	return &auth.Principal{
		ID: u.ID, Email: u.Email, Role: u.Role,
		UserType: auth.UserTypeFirm, LawFirmID: u.LawFirmID,
	}
}

func clientPrincipal(u *models.ClientUser) *auth.Principal {
	return &auth.Principal{
		ID: u.ID, Email: u.Email, Role: u.Role,
		UserType: auth.UserTypeClient, ClientID: u.ClientID,
	}
}

// recordingSender captures notifications for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (r *recordingSender) Send(to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingSender) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}
