package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/docgen"
	"github.com/propertilaw/propertilaw/internal/middleware"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/services"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	firm     models.LawFirm
	attorney models.FirmUser
	clientA  models.PropertyMgmtClient
	clientB  models.PropertyMgmtClient
	userA    models.ClientUser
	userB    models.ClientUser
	property models.Property
	tenant   models.Tenant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.LawFirm{}, &models.FirmUser{}, &models.FirmSettings{},
		&models.PropertyMgmtClient{}, &models.ClientUser{}, &models.Integration{},
		&models.Property{}, &models.Unit{}, &models.Tenant{},
		&models.Case{}, &models.CaseTenant{}, &models.CaseEvent{}, &models.Comment{},
		&models.Document{}, &models.DocumentTemplate{}, &models.AuditLog{},
	))

	env := &testEnv{db: db}
	env.firm = models.LawFirm{Name: "Harrison & Cole LLP"}
	require.NoError(t, db.Create(&env.firm).Error)
	env.attorney = models.FirmUser{
		Email: "atty@harrisoncole.test", Role: models.RoleAttorney,
		IsActive: true, LawFirmID: env.firm.ID,
	}
	require.NoError(t, db.Create(&env.attorney).Error)
	env.clientA = models.PropertyMgmtClient{Name: "Garden State Property Group", LawFirmID: env.firm.ID}
	require.NoError(t, db.Create(&env.clientA).Error)
	env.clientB = models.PropertyMgmtClient{Name: "Hudson Realty Partners", LawFirmID: env.firm.ID}
	require.NoError(t, db.Create(&env.clientB).Error)
	env.userA = models.ClientUser{Email: "a@gspg.test", Role: models.RoleClientAdmin, IsActive: true, ClientID: env.clientA.ID}
	require.NoError(t, db.Create(&env.userA).Error)
	env.userB = models.ClientUser{Email: "b@hudson.test", Role: models.RoleClientUser, IsActive: true, ClientID: env.clientB.ID}
	require.NoError(t, db.Create(&env.userB).Error)

	ext := "P-100"
	env.property = models.Property{ExternalID: &ext, Name: "Maple Court", County: "Essex", Jurisdiction: "Essex", ClientID: env.clientA.ID}
	require.NoError(t, db.Create(&env.property).Error)
	tExt := "T-100"
	env.tenant = models.Tenant{ExternalID: &tExt, FirstName: "Jordan", LastName: "Reyes", ClientID: env.clientA.ID, IsActive: true}
	require.NoError(t, db.Create(&env.tenant).Error)

	audit := services.NewAuditService(db)
	notify := services.NewNotificationService(db, nil)
	caseSvc := services.NewCaseService(db, audit)
	docSvc := services.NewDocumentService(db, caseSvc, docgen.NewGenerator(), notify, audit, t.TempDir())

	app := fiber.New()
	api := app.Group("/api")
	api.Use(middleware.Authenticate(db, testSecret))

	firmOnly := middleware.RequireFirmUser()
	caseWorkers := middleware.Authorize(models.RoleLawFirmAdmin, models.RoleAttorney, models.RoleParalegal)

	caseHandler := &CaseHandler{Cases: caseSvc}
	docHandler := &DocumentHandler{Documents: docSvc, MaxFileSize: 1 << 20}

	api.Get("/cases", caseHandler.List)
	api.Post("/cases", caseHandler.Create)
	api.Get("/cases/:id", caseHandler.Get)
	api.Put("/cases/:id/status", firmOnly, caseWorkers, caseHandler.SetStatus)
	api.Post("/cases/:id/comments", caseHandler.AddComment)
	api.Get("/cases/:id/comments", caseHandler.ListComments)
	api.Post("/cases/:id/documents/generate", firmOnly, caseWorkers, docHandler.Generate)

	env.app = app
	return env
}

func token(t *testing.T, subject, userType string) string {
	t.Helper()
	claims := middleware.Claims{
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, bearer string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := doJSON(t, env.app, http.MethodGet, "/api/cases", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInactiveUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Model(&env.attorney).Update("is_active", false).Error)
	resp := doJSON(t, env.app, http.MethodGet, "/api/cases", token(t, env.attorney.ID, auth.UserTypeFirm), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndFetchCaseOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	bearer := token(t, env.attorney.ID, auth.UserTypeFirm)

	resp := doJSON(t, env.app, http.MethodPost, "/api/cases", bearer, fiber.Map{
		"clientId":     env.clientA.ID,
		"propertyId":   env.property.ID,
		"tenantIds":    []string{env.tenant.ID},
		"type":         "NONPAYMENT",
		"reason":       "Nonpayment of rent",
		"jurisdiction": "Essex",
		"amountOwed":   "4200.50",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Case
	decode(t, resp, &created)
	assert.NotEmpty(t, created.CaseNumber)
	require.NotNil(t, created.AmountOwed)
	assert.Equal(t, 4200.50, *created.AmountOwed, "string amounts are accepted")

	resp = doJSON(t, env.app, http.MethodGet, "/api/cases/"+created.ID, bearer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForeignClientReadsCaseAsNotFound(t *testing.T) {
	env := newTestEnv(t)
	bearer := token(t, env.attorney.ID, auth.UserTypeFirm)

	resp := doJSON(t, env.app, http.MethodPost, "/api/cases", bearer, fiber.Map{
		"clientId":   env.clientA.ID,
		"propertyId": env.property.ID,
		"tenantIds":  []string{env.tenant.ID},
		"type":       "NONPAYMENT", "reason": "r", "jurisdiction": "Essex",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Case
	decode(t, resp, &created)

	// Client B gets a 404, not a 403.
	resp = doJSON(t, env.app, http.MethodGet, "/api/cases/"+created.ID, token(t, env.userB.ID, auth.UserTypeClient), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientUsersCannotChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	bearer := token(t, env.attorney.ID, auth.UserTypeFirm)

	resp := doJSON(t, env.app, http.MethodPost, "/api/cases", bearer, fiber.Map{
		"clientId":   env.clientA.ID,
		"propertyId": env.property.ID,
		"tenantIds":  []string{env.tenant.ID},
		"type":       "NONPAYMENT", "reason": "r", "jurisdiction": "Essex",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Case
	decode(t, resp, &created)

	resp = doJSON(t, env.app, http.MethodPut, "/api/cases/"+created.ID+"/status",
		token(t, env.userA.ID, auth.UserTypeClient), fiber.Map{"status": models.CaseStatusOpen})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClientCommentForcedVisibleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	bearer := token(t, env.attorney.ID, auth.UserTypeFirm)

	resp := doJSON(t, env.app, http.MethodPost, "/api/cases", bearer, fiber.Map{
		"clientId":   env.clientA.ID,
		"propertyId": env.property.ID,
		"tenantIds":  []string{env.tenant.ID},
		"type":       "NONPAYMENT", "reason": "r", "jurisdiction": "Essex",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Case
	decode(t, resp, &created)

	resp = doJSON(t, env.app, http.MethodPost, "/api/cases/"+created.ID+"/comments",
		token(t, env.userA.ID, auth.UserTypeClient), fiber.Map{"content": "hello", "isInternal": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	decode(t, resp, &comment)
	assert.False(t, comment.IsInternal)
}
