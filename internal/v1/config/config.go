package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	ServerURL string

	// Optional variables with defaults
	AuthToken        string
	DevelopmentMode  bool
	LogLevel         string
	StatusPort       string
	SendBuffer       int
	HandshakeTimeout time.Duration
	AllowedOrigins   string

	// Redis mirror
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// Tracing (disabled when empty)
	OTelCollectorAddr string

	// Rate limit for the local status server (ulule format, e.g. "60-M")
	RateLimitStatus string
}

// ValidateEnv validates all required environment variables and returns a Config object
// Returns an error if any required variable is missing or invalid
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: CHAT_SERVER_URL (ws, wss, http or https)
	cfg.ServerURL = os.Getenv("CHAT_SERVER_URL")
	if cfg.ServerURL == "" {
		errors = append(errors, "CHAT_SERVER_URL is required")
	} else if !isValidServerURL(cfg.ServerURL) {
		errors = append(errors, fmt.Sprintf("CHAT_SERVER_URL must be a ws://, wss://, http:// or https:// URL with a host (got '%s')", cfg.ServerURL))
	}

	cfg.AuthToken = os.Getenv("CHAT_AUTH_TOKEN")
	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Optional: STATUS_PORT (valid port number)
	cfg.StatusPort = getEnvOrDefault("STATUS_PORT", "9090")
	if port, err := strconv.Atoi(cfg.StatusPort); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("STATUS_PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.StatusPort))
	}

	// Optional: SEND_BUFFER (positive integer)
	sendBuffer := getEnvOrDefault("SEND_BUFFER", "256")
	if n, err := strconv.Atoi(sendBuffer); err != nil || n < 1 {
		errors = append(errors, fmt.Sprintf("SEND_BUFFER must be a positive integer (got '%s')", sendBuffer))
	} else {
		cfg.SendBuffer = n
	}

	// Optional: HANDSHAKE_TIMEOUT (Go duration)
	handshake := getEnvOrDefault("HANDSHAKE_TIMEOUT", "10s")
	if d, err := time.ParseDuration(handshake); err != nil || d <= 0 {
		errors = append(errors, fmt.Sprintf("HANDSHAKE_TIMEOUT must be a positive duration (got '%s')", handshake))
	} else {
		cfg.HandshakeTimeout = d
	}

	// Conditional: REDIS_ADDR (required if REDIS_ENABLED=true)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errors = append(errors, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Optional: OTEL_COLLECTOR_ADDR (host:port)
	cfg.OTelCollectorAddr = os.Getenv("OTEL_COLLECTOR_ADDR")
	if cfg.OTelCollectorAddr != "" && !isValidHostPort(cfg.OTelCollectorAddr) {
		errors = append(errors, fmt.Sprintf("OTEL_COLLECTOR_ADDR must be in format 'host:port' (got '%s')", cfg.OTelCollectorAddr))
	}

	cfg.RateLimitStatus = getEnvOrDefault("RATE_LIMIT_STATUS", "60-M")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

func isValidServerURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return true
	}
	return false
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("✅ Environment configuration validated successfully")
	slog.Info("Configuration",
		"server_url", cfg.ServerURL,
		"auth_token", redactSecret(cfg.AuthToken),
		"development_mode", cfg.DevelopmentMode,
		"log_level", cfg.LogLevel,
		"status_port", cfg.StatusPort,
		"send_buffer", cfg.SendBuffer,
		"handshake_timeout", cfg.HandshakeTimeout.String(),
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"otel_collector_addr", cfg.OTelCollectorAddr,
		"rate_limit_status", cfg.RateLimitStatus,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first 8 characters
func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}

// Origins splits AllowedOrigins on commas, falling back to defaults when unset.
func (c *Config) Origins(defaults []string) []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return defaults
	}
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return defaults
	}
	return origins
}
