// Package config loads all application configuration from environment
// variables and resolves the mail transport variant exactly once at startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `envconfig:"PORT" default:"8080"`

	// DatabasePath is the SQLite database file. Defaults to ./folio.db.
	DatabasePath string `envconfig:"FOLIO_DB_PATH" default:"folio.db"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFile is an optional log file path. When empty, logs go to stderr.
	LogFile string `envconfig:"FOLIO_LOG_FILE"`

	// SiteBaseURL is the public site URL used in email links and canonical URLs.
	SiteBaseURL string `envconfig:"SITE_BASE_URL" default:"https://clydetadiwa.com"`

	// SiteName appears in email footers and the From header display name.
	SiteName string `envconfig:"SITE_NAME" default:"Clyde Tadiwa"`

	// JWTSecret signs admin session tokens. Required.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// SMTPHost, SMTPPort, SMTPUsername and SMTPPassword configure the SMTP
	// relay transport.
	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`

	// MailAPIKey enables the transactional API transport. When set it takes
	// precedence over SMTP credentials.
	MailAPIKey string `envconfig:"MAIL_API_KEY"`

	// MailAPIBaseURL is the transactional API endpoint base.
	MailAPIBaseURL string `envconfig:"MAIL_API_BASE_URL" default:"https://api.resend.com"`

	// MailFrom is the sender address placed on all outgoing mail.
	MailFrom string `envconfig:"MAIL_FROM"`

	// DispatchTimeout bounds one whole batch dispatch. Defaults to 10m.
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10m"`
}

// TransportKind identifies which mail delivery backend is active.
type TransportKind string

const (
	// TransportSMTP delivers through a direct SMTP relay.
	TransportSMTP TransportKind = "smtp"
	// TransportAPI delivers through a managed transactional-email API.
	TransportAPI TransportKind = "api"
)

// Transport is the resolved mail transport configuration. Exactly one
// variant is active for the process lifetime; the struct is read-only after
// Resolve.
type Transport struct {
	Kind TransportKind

	// SMTP variant fields.
	Host     string
	Port     int
	Username string
	Password string

	// API variant fields.
	APIKey  string
	BaseURL string

	// From and FromName are shared by both variants.
	From     string
	FromName string
}

// ErrNoTransport is returned when neither SMTP credentials nor an API key
// are configured.
var ErrNoTransport = errors.New("no mail transport configured: set MAIL_API_KEY or SMTP_USERNAME/SMTP_PASSWORD")

// Load reads AppConfig from environment variables using envconfig.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	return &c, nil
}

// ResolveTransport selects the active mail transport variant. The API
// transport is preferred whenever its credential is present; otherwise the
// SMTP relay credentials are used. The selection is a pure function of the
// config and is evaluated once at startup.
func (c *AppConfig) ResolveTransport() (Transport, error) {
	from := c.MailFrom
	if from == "" {
		from = c.SMTPUsername
	}

	if c.MailAPIKey != "" {
		return Transport{
			Kind:     TransportAPI,
			APIKey:   c.MailAPIKey,
			BaseURL:  c.MailAPIBaseURL,
			From:     from,
			FromName: c.SiteName,
		}, nil
	}

	if c.SMTPUsername != "" && c.SMTPPassword != "" {
		return Transport{
			Kind:     TransportSMTP,
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     from,
			FromName: c.SiteName,
		}, nil
	}

	return Transport{}, ErrNoTransport
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
