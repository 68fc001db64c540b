package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultTimezone      = "Asia/Colombo"
	defaultPort          = 3000
	defaultPendingTTLSec = 120
	defaultSenderName    = "ShiftLog"
)

// Config represents application configuration
type Config struct {
	// Viber configuration
	Viber ViberConfig

	// Slack configuration
	Slack SlackConfig

	// Storage configuration
	Storage StorageConfig

	// HTTP server configuration
	Server ServerConfig

	// Timezone used to bucket events into local dates
	Timezone string

	// How long a "send your status" prompt waits for the reply
	PendingStatusTTL time.Duration

	// Bot replies (loaded from YAML)
	Replies *RepliesConfig

	// Log level: debug, info, warn, error
	LogLevel string
}

// ViberConfig contains Viber configuration
type ViberConfig struct {
	BotToken   string
	SenderName string // Shown as the sender of bot messages
	APIURL     string
}

// SlackConfig contains Slack configuration
type SlackConfig struct {
	SigningSecret string
	BotToken      string
}

// StorageConfig contains database configuration
type StorageConfig struct {
	DBPath string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int
	AdminAPIKey   string
	PublicBaseURL string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Database path
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".shiftlog", "shiftlog.db")
	}

	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = defaultTimezone
	}

	port := defaultPort
	if val := os.Getenv("PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	pendingTTL := defaultPendingTTLSec
	if val := os.Getenv("PENDING_STATUS_TTL_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			pendingTTL = parsed
		}
	}

	senderName := os.Getenv("VIBER_SENDER_NAME")
	if senderName == "" {
		senderName = defaultSenderName
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	// Load replies from YAML
	replies, err := LoadRepliesConfig(os.Getenv("REPLIES_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Config] %v, using default replies\n", err)
		replies = DefaultRepliesConfig()
	}

	return &Config{
		Viber: ViberConfig{
			BotToken:   os.Getenv("VIBER_BOT_TOKEN"),
			SenderName: senderName,
			APIURL:     os.Getenv("VIBER_API_URL"),
		},
		Slack: SlackConfig{
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		Server: ServerConfig{
			Port:          port,
			AdminAPIKey:   os.Getenv("ADMIN_API_KEY"),
			PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		},
		Timezone:         timezone,
		PendingStatusTTL: time.Duration(pendingTTL) * time.Second,
		Replies:          replies,
		LogLevel:         logLevel,
	}
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &ConfigError{Field: "TIMEZONE", Message: fmt.Sprintf("unknown timezone %q", c.Timezone)}
	}
	return loc, nil
}

// Validate validates the settings every command needs
func (c *Config) Validate() error {
	if c.Storage.DBPath == "" {
		return &ConfigError{Field: "DATABASE_PATH", Message: "required"}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateServer validates the settings needed to serve webhooks and exports
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.AdminAPIKey == "" {
		return &ConfigError{Field: "ADMIN_API_KEY", Message: "required"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
