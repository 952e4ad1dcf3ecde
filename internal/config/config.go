package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Auth boundary
	JWTSecret string

	// File storage
	UploadDir   string
	TemplateDir string
	MaxFileSize int64

	// Outbound integrations
	RentManagerAPIURL string

	// SMTP notifications
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string

	// Background jobs
	SchedulerEnabled bool
	SyncSchedule     string
	PollSchedule     string
	ReportSchedule   string
}

// Load loads configuration from the environment, reading a .env file
// first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "3001"),
		DBType:            getEnv("DB_TYPE", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 10),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		TemplateDir:       getEnv("TEMPLATE_DIR", "./templates"),
		MaxFileSize:       int64(getEnvAsInt("MAX_FILE_SIZE", 20971520)),
		RentManagerAPIURL: getEnv("RENTMANAGER_API_URL", "https://api.rentmanager.com"),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPass:          getEnv("SMTP_PASS", ""),
		FromEmail:         getEnv("FROM_EMAIL", ""),
		SchedulerEnabled:  getEnv("SCHEDULER_ENABLED", "true") == "true",
		SyncSchedule:      getEnv("SYNC_SCHEDULE", "0 2 * * *"),
		PollSchedule:      getEnv("EFILING_POLL_SCHEDULE", "0 */4 * * *"),
		ReportSchedule:    getEnv("REPORT_SCHEDULE", "0 8 * * *"),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
