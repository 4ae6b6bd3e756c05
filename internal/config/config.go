// Package config reads service settings from the environment, loading a .env
// file first when one is present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	ClerkSecretKey      string
	ClerkPublishableKey string
	ClerkWebhookSecret  string
	ToastSecret         string
	// SecureCookies is off only for local http development.
	SecureCookies bool

	MetricsUser string
	MetricsPass string
	PprofSecret string

	FCMServiceAccountJSON string
	FCMCredentialsFile    string
	ResendAPIKey          string
	EmailFrom             string
	AppDomain             string

	ReminderSchedule string
	ReminderDays     []int

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// Load reads the configuration. A missing .env file is not an error; missing
// required values are.
func Load() (*Config, error) {
	loadDotEnv()
	return FromEnv(os.Getenv)
}

// LoadDatabaseURL reads only what schema migrations need.
func LoadDatabaseURL() (string, error) {
	loadDotEnv()
	return DatabaseURLFromEnv(os.Getenv)
}

func DatabaseURLFromEnv(getenv func(string) string) (string, error) {
	url := strings.TrimSpace(getenv("DATABASE_URL"))
	if url == "" {
		return "", fmt.Errorf("missing required environment variables: DATABASE_URL")
	}
	return url, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:                  get("PORT", "8080"),
		DatabaseURL:           get("DATABASE_URL", ""),
		ClerkSecretKey:        get("CLERK_SECRET_KEY", ""),
		ClerkPublishableKey:   get("CLERK_PUBLISHABLE_KEY", ""),
		ClerkWebhookSecret:    get("CLERK_WEBHOOK_SECRET", ""),
		ToastSecret:           get("TOAST_SECRET", ""),
		MetricsUser:           get("METRICS_USER", ""),
		MetricsPass:           get("METRICS_PASS", ""),
		PprofSecret:           get("PPROF_SECRET", ""),
		FCMServiceAccountJSON: get("FCM_SERVICE_ACCOUNT_JSON", ""),
		FCMCredentialsFile:    get("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		ResendAPIKey:          get("RESEND_API_KEY", ""),
		EmailFrom:             get("EMAIL_FROM", "DarkGuard <reminders@darkguard.app>"),
		AppDomain:             get("APP_DOMAIN", "http://localhost:8080"),
		ReminderSchedule:      get("REMINDER_SCHEDULE", "@daily"),
	}

	var missing []string
	for _, required := range []struct{ key, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"CLERK_SECRET_KEY", cfg.ClerkSecretKey},
		{"TOAST_SECRET", cfg.ToastSecret},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.SecureCookies, err = strconv.ParseBool(get("SECURE_COOKIES", "true")); err != nil {
		return nil, fmt.Errorf("SECURE_COOKIES: %w", err)
	}
	if cfg.ReminderDays, err = parseDays(get("REMINDER_DAYS", "7,1")); err != nil {
		return nil, fmt.Errorf("REMINDER_DAYS: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "30")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	for _, origin := range strings.Split(get("ALLOWED_ORIGINS", cfg.AppDomain), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func parseDays(raw string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid day count %q", part)
		}
		days = append(days, n)
	}
	return days, nil
}
