package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ModeScoped = "scoped"
	ModeOpen   = "open"
)

type Config struct {
	Port               string
	DatabaseURL        string
	MongoDatabase      string
	AppEnv             string
	BaseURL            string
	RegistryMode       string
	LogLevel           string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		MongoDatabase:      getEnv("MONGODB_NAME", "shortlink"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		RegistryMode:       strings.ToLower(strings.TrimSpace(getEnv("REGISTRY_MODE", ModeScoped))),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/"),
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),
	}
}

// IsProduction reports whether the app runs with production settings
// (JSON logs, secure cookies).
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsOpen reports whether links are anonymous and unscoped.
func (c *Config) IsOpen() bool {
	return c.RegistryMode == ModeOpen
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
