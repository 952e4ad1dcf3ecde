package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/propertilaw/propertilaw/internal/config"
	"github.com/propertilaw/propertilaw/internal/database"
	"github.com/propertilaw/propertilaw/internal/docgen"
	"github.com/propertilaw/propertilaw/internal/handlers"
	"github.com/propertilaw/propertilaw/internal/middleware"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/pms"
	"github.com/propertilaw/propertilaw/internal/scheduler"
	"github.com/propertilaw/propertilaw/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Wire services
	audit := services.NewAuditService(db)
	notify := services.NewNotificationService(db, services.NewSMTPSender(cfg))
	syncSvc := services.NewSyncService(db, func(i *models.Integration) (pms.Adapter, error) {
		return pms.New(i, cfg.RentManagerAPIURL)
	})
	caseSvc := services.NewCaseService(db, audit)
	docSvc := services.NewDocumentService(db, caseSvc, docgen.NewGenerator(), notify, audit, cfg.UploadDir)
	templateSvc := services.NewTemplateService(db, audit)
	efilingSvc := services.NewEFilingService(db, caseSvc, notify, audit, &http.Client{Timeout: 60 * time.Second})
	reportSvc := services.NewReportService(db, notify)
	firmSvc := services.NewFirmService(db, audit)
	clientSvc := services.NewClientService(db, audit)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             int(cfg.MaxFileSize),
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("propertilaw")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Health endpoint, unauthenticated
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// Create handlers
	caseHandler := &handlers.CaseHandler{Cases: caseSvc}
	docHandler := &handlers.DocumentHandler{Documents: docSvc, MaxFileSize: cfg.MaxFileSize}
	clientHandler := &handlers.ClientHandler{Clients: clientSvc, Sync: syncSvc}
	firmHandler := &handlers.FirmHandler{Firm: firmSvc, Audit: audit}
	templateHandler := &handlers.TemplateHandler{Templates: templateSvc}
	efilingHandler := &handlers.EFilingHandler{EFiling: efilingSvc}
	reportHandler := &handlers.ReportHandler{Reports: reportSvc}

	// API routes under /api, all authenticated
	api := app.Group("/api")
	api.Use(middleware.Authenticate(db, cfg.JWTSecret))

	firmOnly := middleware.RequireFirmUser()
	adminOnly := middleware.Authorize(models.RoleLawFirmAdmin)
	attorneys := middleware.Authorize(models.RoleLawFirmAdmin, models.RoleAttorney)
	caseWorkers := middleware.Authorize(models.RoleLawFirmAdmin, models.RoleAttorney, models.RoleParalegal)

	// Cases
	api.Get("/cases", caseHandler.List)
	api.Post("/cases", caseHandler.Create)
	api.Post("/cases/import", firmOnly, caseWorkers, caseHandler.Import)
	api.Post("/cases/bulk/status", firmOnly, caseWorkers, caseHandler.BulkStatus)
	api.Get("/cases/:id", caseHandler.Get)
	api.Put("/cases/:id/status", firmOnly, caseWorkers, caseHandler.SetStatus)
	api.Post("/cases/:id/close", firmOnly, attorneys, caseHandler.Close)
	api.Post("/cases/:id/events", firmOnly, caseHandler.AddEvent)
	api.Put("/cases/:id/events/:eventId", firmOnly, caseHandler.UpdateEvent)
	api.Delete("/cases/:id/events/:eventId", firmOnly, caseHandler.DeleteEvent)
	api.Get("/events/upcoming", caseHandler.UpcomingEvents)
	api.Get("/cases/:id/comments", caseHandler.ListComments)
	api.Post("/cases/:id/comments", caseHandler.AddComment)

	// Documents
	api.Get("/cases/:id/documents", docHandler.ListByCase)
	api.Post("/cases/:id/documents", docHandler.Upload)
	api.Post("/cases/:id/documents/generate", firmOnly, caseWorkers, docHandler.Generate)
	api.Post("/documents/bulk/generate", firmOnly, caseWorkers, docHandler.BulkGenerate)
	api.Get("/documents/pending-approvals", docHandler.PendingApprovals)
	api.Get("/documents/:id/download", docHandler.Download)
	api.Delete("/documents/:id", firmOnly, caseWorkers, docHandler.Delete)
	api.Post("/documents/:id/request-approval", firmOnly, docHandler.RequestApproval)
	api.Post("/documents/:id/approve", docHandler.Approve)
	api.Post("/documents/:id/reject", docHandler.Reject)

	// E-filing
	api.Get("/courts", efilingHandler.ListCourts)
	api.Post("/cases/:id/file", firmOnly, attorneys, efilingHandler.Submit)
	api.Post("/cases/:id/filing-status", firmOnly, efilingHandler.CheckStatus)

	// Clients, properties, tenants
	api.Get("/clients", clientHandler.List)
	api.Post("/clients", firmOnly, adminOnly, clientHandler.Create)
	api.Get("/clients/:id", clientHandler.Get)
	api.Put("/clients/:id", firmOnly, adminOnly, clientHandler.Update)
	api.Post("/clients/:id/users", firmOnly, adminOnly, clientHandler.CreateUser)
	api.Get("/properties", clientHandler.ListProperties)
	api.Get("/properties/:id", clientHandler.GetProperty)
	api.Get("/tenants", clientHandler.ListTenants)

	// Integrations and sync
	api.Post("/clients/:id/integrations", firmOnly, adminOnly, clientHandler.CreateIntegration)
	api.Get("/clients/:id/integrations", clientHandler.ListIntegrations)
	api.Get("/integrations/:id", clientHandler.GetIntegration)
	api.Delete("/integrations/:id", firmOnly, adminOnly, clientHandler.DeleteIntegration)
	api.Post("/integrations/:id/test", firmOnly, clientHandler.TestIntegration)
	api.Post("/integrations/:id/sync", firmOnly, clientHandler.TriggerSync)

	// Templates
	api.Get("/templates", firmOnly, templateHandler.List)
	api.Get("/templates/:id", firmOnly, templateHandler.Get)
	api.Post("/templates", firmOnly, adminOnly, templateHandler.Create)
	api.Delete("/templates/:id", firmOnly, adminOnly, templateHandler.Deactivate)

	// Firm administration
	api.Get("/firm", firmOnly, firmHandler.Get)
	api.Get("/firm/users", firmOnly, firmHandler.ListUsers)
	api.Post("/firm/users", firmOnly, adminOnly, firmHandler.CreateUser)
	api.Delete("/firm/users/:id", firmOnly, adminOnly, firmHandler.DeactivateUser)
	api.Get("/firm/settings", firmOnly, firmHandler.GetSettings)
	api.Put("/firm/settings", firmOnly, adminOnly, firmHandler.UpdateSettings)
	api.Get("/audit", firmOnly, adminOnly, firmHandler.ListAudit)

	// Reports
	api.Get("/reports/dashboard", reportHandler.Dashboard)
	api.Get("/reports/case-volume", firmOnly, reportHandler.CaseVolume)
	api.Get("/reports/timeline-metrics", firmOnly, reportHandler.Timeline)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Background jobs
	var jobs *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		jobs = scheduler.New(syncSvc, efilingSvc, reportSvc)
		if err := jobs.Start(cfg); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		if jobs != nil {
			jobs.Stop()
		}
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
