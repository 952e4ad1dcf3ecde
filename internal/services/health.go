package services

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/config"
)

// HealthResult is the health check report.
type HealthResult struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthCheck verifies the database connection and the upload
// directory. Status is "healthy" only when every check passes.
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthResult {
	result := HealthResult{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		result.Status = "unhealthy"
		result.Checks["database"] = "failed: " + err.Error()
	} else {
		result.Checks["database"] = "ok"
	}

	probe := filepath.Join(cfg.UploadDir, ".healthcheck")
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		result.Status = "unhealthy"
		result.Checks["uploadDir"] = "failed: " + err.Error()
	} else if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		result.Status = "unhealthy"
		result.Checks["uploadDir"] = "failed: " + err.Error()
	} else {
		_ = os.Remove(probe)
		result.Checks["uploadDir"] = "ok"
	}

	return result
}
