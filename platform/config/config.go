// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// CookieConfig provides settings for refresh token cookies.
type CookieConfig interface {
	GetRefreshCookieName() string
	GetRefreshCookieDomain() string
	GetRefreshCookiePath() string
	GetRefreshCookieSecure() bool
	GetRefreshCookieSameSite() http.SameSite
	GetRefreshTokenTTL() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailTransport() string
	GetMandrillAPIKey() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMTPConfig provides settings for the SMTP email transport.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketInvoices() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCampaignDispatchCron() string
	GetBirthdayCron() string
}

// CampaignConfig provides settings for campaign dispatch and follow-ups.
type CampaignConfig interface {
	GetSendWindowStartHour() int
	GetSendWindowEndHour() int
	GetSendLocation() *time.Location
	GetFollowUpCCRoster() []string
	GetCampaignMaxAttempts() int
}

// WebhookConfig provides settings for inbound email vendor webhooks.
type WebhookConfig interface {
	GetMandrillWebhookKey() string
	GetMandrillWebhookURL() string
}

// CronConfig provides the shared secret for the external cron trigger.
type CronConfig interface {
	GetCronSecret() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	MigrationsDir         string
	JWTAccessSecret       string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	EmailEnabled          bool
	EmailTransport        string
	MandrillAPIKey        string
	EmailFromName         string
	EmailFromAddress      string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	RefreshCookieName     string
	RefreshCookieDomain   string
	RefreshCookiePath     string
	RefreshCookieSecure   bool
	RefreshCookieSameSite http.SameSite
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinIOPublicBaseURL    string
	MinioBucketInvoices   string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	CampaignDispatchCron  string
	BirthdayCron          string
	SendWindowStartHour   int
	SendWindowEndHour     int
	SendLocation          *time.Location
	FollowUpCCRoster      []string
	CampaignMaxAttempts   int
	MandrillWebhookKey    string
	MandrillWebhookURL    string
	CronSecret            string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// CookieConfig implementation
func (c *Config) GetRefreshCookieName() string            { return c.RefreshCookieName }
func (c *Config) GetRefreshCookieDomain() string          { return c.RefreshCookieDomain }
func (c *Config) GetRefreshCookiePath() string            { return c.RefreshCookiePath }
func (c *Config) GetRefreshCookieSecure() bool            { return c.RefreshCookieSecure }
func (c *Config) GetRefreshCookieSameSite() http.SameSite { return c.RefreshCookieSameSite }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailTransport() string   { return c.EmailTransport }
func (c *Config) GetMandrillAPIKey() string   { return c.MandrillAPIKey }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64    { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOPublicBaseURL() string { return c.MinIOPublicBaseURL }
func (c *Config) GetMinioBucketInvoices() string {
	return c.MinioBucketInvoices
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetCampaignDispatchCron() string { return c.CampaignDispatchCron }
func (c *Config) GetBirthdayCron() string         { return c.BirthdayCron }

// CampaignConfig implementation
func (c *Config) GetSendWindowStartHour() int     { return c.SendWindowStartHour }
func (c *Config) GetSendWindowEndHour() int       { return c.SendWindowEndHour }
func (c *Config) GetSendLocation() *time.Location { return c.SendLocation }
func (c *Config) GetFollowUpCCRoster() []string   { return c.FollowUpCCRoster }
func (c *Config) GetCampaignMaxAttempts() int     { return c.CampaignMaxAttempts }

// WebhookConfig implementation
func (c *Config) GetMandrillWebhookKey() string { return c.MandrillWebhookKey }
func (c *Config) GetMandrillWebhookURL() string { return c.MandrillWebhookURL }

// CronConfig implementation
func (c *Config) GetCronSecret() string { return c.CronSecret }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	transport := strings.ToLower(strings.TrimSpace(getEnv("EMAIL_TRANSPORT", "mandrill")))

	refreshCookieSecure := strings.EqualFold(getEnv("REFRESH_COOKIE_SECURE", ""), "true")
	if getEnv("REFRESH_COOKIE_SECURE", "") == "" {
		refreshCookieSecure = strings.EqualFold(getEnv("APP_ENV", "development"), "production")
	}

	location, err := loadLocation(getEnv("CAMPAIGN_TIMEZONE", ""))
	if err != nil {
		return nil, fmt.Errorf("CAMPAIGN_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		MigrationsDir:         getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:        mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:       mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		EmailEnabled:          emailEnabled,
		EmailTransport:        transport,
		MandrillAPIKey:        getEnv("MANDRILL_API_KEY", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "IMS"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		RefreshCookieName:     getEnv("REFRESH_COOKIE_NAME", "ims_refresh"),
		RefreshCookieDomain:   getEnv("REFRESH_COOKIE_DOMAIN", ""),
		RefreshCookiePath:     getEnv("REFRESH_COOKIE_PATH", "/api/v1/auth"),
		RefreshCookieSecure:   refreshCookieSecure,
		RefreshCookieSameSite: parseSameSite(getEnv("REFRESH_COOKIE_SAMESITE", "Lax")),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:      mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "26214400")),
		MinIOPublicBaseURL:    getEnv("MINIO_PUBLIC_BASE_URL", ""),
		MinioBucketInvoices:   getEnv("MINIO_BUCKET_INVOICES", "invoices"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		CampaignDispatchCron:  getEnv("CAMPAIGN_DISPATCH_CRON", "@every 5m"),
		BirthdayCron:          getEnv("BIRTHDAY_CRON", "0 6 * * *"),
		SendWindowStartHour:   mustInt(getEnv("CAMPAIGN_SEND_WINDOW_START", "5")),
		SendWindowEndHour:     mustInt(getEnv("CAMPAIGN_SEND_WINDOW_END", "15")),
		SendLocation:          location,
		FollowUpCCRoster:      splitCSV(getEnv("FOLLOW_UP_CC_ROSTER", "")),
		CampaignMaxAttempts:   mustInt(getEnv("CAMPAIGN_MAX_ATTEMPTS", "5")),
		MandrillWebhookKey:    getEnv("MANDRILL_WEBHOOK_KEY", ""),
		MandrillWebhookURL:    getEnv("MANDRILL_WEBHOOK_URL", ""),
		CronSecret:            getEnv("CRON_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled {
		switch cfg.EmailTransport {
		case "mandrill":
			if cfg.MandrillAPIKey == "" {
				return nil, fmt.Errorf("MANDRILL_API_KEY is required when EMAIL_TRANSPORT is mandrill")
			}
		case "smtp":
			if cfg.SMTPHost == "" {
				return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_TRANSPORT is smtp")
			}
		default:
			return nil, fmt.Errorf("EMAIL_TRANSPORT must be mandrill or smtp, got %q", cfg.EmailTransport)
		}
		if cfg.EmailFromAddress == "" {
			return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
		}
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SendWindowStartHour < 0 || cfg.SendWindowEndHour > 24 || cfg.SendWindowStartHour >= cfg.SendWindowEndHour {
		return nil, fmt.Errorf("campaign send window %d-%d is invalid", cfg.SendWindowStartHour, cfg.SendWindowEndHour)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
