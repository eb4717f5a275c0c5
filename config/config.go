package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnvironmentVariables struct {
	GO_ENV     string
	PORT       int
	LOG_LEVEL  string
	LOG_FORMAT string
	// Database
	DB_TYPE     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	DB_HOST     string
	DB_PORT     string
	DB_SSL_MODE string
	DB_PATH     string
	// JWT
	JWT_SECRET         string
	JWT_ISSUER         string
	JWT_ACCESS_EXPIRY  time.Duration
	JWT_REFRESH_EXPIRY time.Duration
	// Redis
	REDIS_URL      string
	REDIS_PASSWORD string
	// Storage
	STORAGE_DRIVER     string
	UPLOAD_DIR         string
	MAX_UPLOAD_MB      int
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
	// HTTP
	CORS_ORIGINS string
	ENABLE_CRON  bool
	// Seeding
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
	// SMTP (optional; contact form notifications)
	SMTP_HOST            string
	SMTP_PORT            int
	SMTP_USERNAME        string
	SMTP_PASSWORD        string
	SMTP_FROM            string
	SMTP_USE_TLS         bool
	CONTACT_NOTIFY_EMAIL string
}

func Get() (*EnvironmentVariables, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	maxUploadMB, err := strconv.Atoi(os.Getenv("MAX_UPLOAD_MB"))
	if err != nil || maxUploadMB <= 0 {
		maxUploadMB = 16
	}

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}

	dbType := strings.ToLower(os.Getenv("DB_TYPE"))
	if dbType == "" {
		dbType = "sqlite"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		switch dbType {
		case "mysql", "mariadb":
			dbPort = "3306"
		case "sqlserver", "mssql":
			dbPort = "1433"
		default:
			dbPort = "5432"
		}
	}

	envVariables := &EnvironmentVariables{
		GO_ENV:     os.Getenv("GO_ENV"),
		PORT:       port,
		LOG_LEVEL:  getOrDefault("LOG_LEVEL", "info"),
		LOG_FORMAT: getOrDefault("LOG_FORMAT", "console"),
		// Database
		DB_TYPE:     dbType,
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DB_HOST:     getOrDefault("DB_HOST", "localhost"),
		DB_PORT:     dbPort,
		DB_SSL_MODE: getOrDefault("DB_SSL_MODE", "disable"),
		DB_PATH:     getOrDefault("DB_PATH", "studyhub.db"),
		// JWT
		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		JWT_ISSUER:         getOrDefault("JWT_ISSUER", "studyhub-api"),
		JWT_ACCESS_EXPIRY:  getDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		JWT_REFRESH_EXPIRY: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		// Redis
		REDIS_URL:      getOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		// Storage
		STORAGE_DRIVER:     getOrDefault("STORAGE_DRIVER", "local"),
		UPLOAD_DIR:         getOrDefault("UPLOAD_DIR", "uploads"),
		MAX_UPLOAD_MB:      maxUploadMB,
		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   getOrDefault("DO_SPACES_REGION", "nyc3"),
		DO_SPACES_ENDPOINT: os.Getenv("DO_SPACES_ENDPOINT"),
		// HTTP
		CORS_ORIGINS: getOrDefault("CORS_ORIGINS", "http://localhost:3000"),
		ENABLE_CRON:  os.Getenv("ENABLE_CRON") != "false",
		// Seeding
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
		// SMTP
		SMTP_HOST:            os.Getenv("SMTP_HOST"),
		SMTP_PORT:            smtpPort,
		SMTP_USERNAME:        os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD:        os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:            getOrDefault("SMTP_FROM", "noreply@studyhub.local"),
		SMTP_USE_TLS:         os.Getenv("SMTP_USE_TLS") != "false",
		CONTACT_NOTIFY_EMAIL: getOrDefault("CONTACT_NOTIFY_EMAIL", os.Getenv("ADMIN_EMAIL")),
	}

	return envVariables, nil
}

func getOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go duration strings ("15m", "24h")
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
