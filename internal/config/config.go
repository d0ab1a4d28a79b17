package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	TemplateDir   string
	StaticDir     string
	SecureCookie  bool
	SessionTTL    time.Duration
	AdminUser     string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from environment variables with defaults.
// In dev, a .env file is loaded first.
func Load() (*Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}

	ttlDays, err := strconv.Atoi(getEnv("SESSION_TTL_DAYS", "30"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DB_PATH", "expenses.db"),
		TemplateDir:   getEnv("TEMPLATE_DIR", "web/templates"),
		StaticDir:     getEnv("STATIC_DIR", "web/static"),
		SecureCookie:  getEnv("SECURE_COOKIE", "false") == "true",
		SessionTTL:    time.Duration(ttlDays) * 24 * time.Hour,
		AdminUser:     getEnv("ADMIN_USER", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
