// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
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

// SchedulerConfig provides settings for the asynq job queue and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// InvoicingConfig provides settings for the remote invoicing API client.
type InvoicingConfig interface {
	GetInvoicingAPIURL() string
	GetInvoicingAPIKey() string
	GetInvoicingTimeout() time.Duration
	IsInvoicingEnabled() bool
}

// MonitorConfig provides settings for voucher authorization monitoring.
type MonitorConfig interface {
	GetMonitorInterval() time.Duration
	GetMonitorMaxAge() time.Duration
	GetMonitorLookupDelay() time.Duration
	GetMonitorSweepInterval() time.Duration
	GetMonitorSweepBatchSize() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for the authorization receipt archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketReceipts() string
	IsMinIOEnabled() bool
}

// AlertConfig provides SMTP settings for operator alert e-mails.
type AlertConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromAddress() string
	GetAlertRecipients() []string
	IsAlertEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RunMigrations         bool
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	InvoicingAPIURL       string
	InvoicingAPIKey       string
	InvoicingTimeout      time.Duration
	MonitorInterval       time.Duration
	MonitorMaxAge         time.Duration
	MonitorLookupDelay    time.Duration
	MonitorSweepInterval  time.Duration
	MonitorSweepBatchSize int
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketReceipts   string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	AlertFromAddress      string
	AlertRecipients       []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// InvoicingConfig implementation
func (c *Config) GetInvoicingAPIURL() string         { return c.InvoicingAPIURL }
func (c *Config) GetInvoicingAPIKey() string         { return c.InvoicingAPIKey }
func (c *Config) GetInvoicingTimeout() time.Duration { return c.InvoicingTimeout }
func (c *Config) IsInvoicingEnabled() bool           { return c.InvoicingAPIURL != "" }

// MonitorConfig implementation
func (c *Config) GetMonitorInterval() time.Duration      { return c.MonitorInterval }
func (c *Config) GetMonitorMaxAge() time.Duration        { return c.MonitorMaxAge }
func (c *Config) GetMonitorLookupDelay() time.Duration   { return c.MonitorLookupDelay }
func (c *Config) GetMonitorSweepInterval() time.Duration { return c.MonitorSweepInterval }
func (c *Config) GetMonitorSweepBatchSize() int          { return c.MonitorSweepBatchSize }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string       { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string      { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string      { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool           { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketReceipts() string { return c.MinioBucketReceipts }
func (c *Config) IsMinIOEnabled() bool           { return c.MinIOEndpoint != "" }

// AlertConfig implementation
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetAlertFromAddress() string  { return c.AlertFromAddress }
func (c *Config) GetAlertRecipients() []string { return c.AlertRecipients }
func (c *Config) IsAlertEnabled() bool {
	return c.SMTPHost != "" && c.AlertFromAddress != "" && len(c.AlertRecipients) > 0
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RunMigrations:         strings.EqualFold(getEnv("RUN_MIGRATIONS", "true"), "true"),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "invoicing"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		InvoicingAPIURL:       strings.TrimRight(getEnv("INVOICING_API_URL", ""), "/"),
		InvoicingAPIKey:       getEnv("INVOICING_API_KEY", ""),
		InvoicingTimeout:      mustDuration(getEnv("INVOICING_TIMEOUT", "10s")),
		MonitorInterval:       mustDuration(getEnv("VOUCHER_MONITOR_INTERVAL", "1m")),
		MonitorMaxAge:         mustDuration(getEnv("VOUCHER_MONITOR_MAX_AGE", "24h")),
		MonitorLookupDelay:    mustDuration(getEnv("VOUCHER_MONITOR_LOOKUP_DELAY", "200ms")),
		MonitorSweepInterval:  mustDuration(getEnv("VOUCHER_MONITOR_SWEEP_INTERVAL", "15m")),
		MonitorSweepBatchSize: mustInt(getEnv("VOUCHER_MONITOR_SWEEP_BATCH", "100")),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketReceipts:   getEnv("MINIO_BUCKET_VOUCHER_RECEIPTS", "voucher-receipts"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		AlertFromAddress:      getEnv("ALERT_FROM_ADDRESS", ""),
		AlertRecipients:       splitCSV(getEnv("ALERT_RECIPIENTS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("VOUCHER_MONITOR_INTERVAL must be a positive duration")
	}
	if cfg.MonitorMaxAge <= 0 {
		return nil, fmt.Errorf("VOUCHER_MONITOR_MAX_AGE must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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
