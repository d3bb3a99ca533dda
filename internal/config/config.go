// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Transport modes supported by the server.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// Config holds application configuration
type Config struct {
	Transport string // stdio, sse or http (streamable HTTP)
	Host      string // Bind address for the HTTP-based transports
	Port      int    // Port for the HTTP-based transports
	DBPath    string // Path to the bank data SQLite database (always absolute)

	// APIKey is the shared secret checked against X-API-Key / Bearer headers.
	// It is injected at startup and must be distinct per deployment; there is
	// no compiled-in default outside dev mode.
	APIKey string

	// TrustLocalChannel skips authentication on channels that carry no HTTP
	// headers (the stdio transport). This is an explicit trust-boundary
	// decision, not a fallback: the flag is what makes headerless calls pass.
	TrustLocalChannel bool

	LogLevel string
	DevMode  bool

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Backups are disabled
// unless all connection fields are present.
type BackupConfig struct {
	Endpoint        string // S3-compatible endpoint URL (e.g. Cloudflare R2)
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionCount  int // Number of backup archives to keep
}

// Enabled reports whether backup settings are complete enough to use.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Endpoint != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dbPath := getEnv("BANK_DB_PATH", "data/bank_data.db")
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	cfg := &Config{
		Transport:         getEnv("MCP_TRANSPORT", TransportStdio),
		Host:              getEnv("MCP_HOST", "0.0.0.0"),
		Port:              getEnvAsInt("MCP_PORT", 8000),
		DBPath:            absDBPath,
		APIKey:            getEnv("MCP_API_KEY", ""),
		TrustLocalChannel: getEnvAsBool("TRUST_LOCAL_CHANNEL", true),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		Backup: &BackupConfig{
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			RetentionCount:  getEnvAsInt("BACKUP_RETENTION_COUNT", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport %q (expected stdio, sse or http)", c.Transport)
	}

	// The HTTP-based transports authenticate every tool call, so a missing
	// key would reject everything. Dev mode gets a throwaway default instead
	// so local experiments work out of the box.
	if c.Transport != TransportStdio && c.APIKey == "" {
		if !c.DevMode {
			return fmt.Errorf("MCP_API_KEY is required for the %s transport", c.Transport)
		}
		c.APIKey = "dev-only-insecure-key"
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
