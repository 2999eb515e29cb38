// Package config loads the server's settings from environment variables.
// Every field has a default except the mail credentials and the database
// URL, both of which switch optional features on when present.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	View     ViewConfig
	Mail     MailConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds each request in the chi Timeout middleware.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is how many sheets may be parsed at once
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an upload waits for a parse slot
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"15s"`
}

// SessionConfig controls in-memory viewer sessions.
type SessionConfig struct {
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"10m"`
}

// ViewConfig holds table defaults.
type ViewConfig struct {
	RowsPerPage int `env:"VIEW_ROWS_PER_PAGE" default:"10"`

	// SelectAllScope is "filtered" (select-all covers the filtered rows) or
	// "table" (select-all covers every row of the dataset).
	SelectAllScope string `env:"SELECT_ALL_SCOPE" default:"filtered"`
}

// MailConfig holds EmailJS credentials and the message template.
// Sending is disabled unless service, template and public key are all set.
type MailConfig struct {
	ServiceID    string        `env:"EMAILJS_SERVICE_ID"`
	TemplateID   string        `env:"EMAILJS_TEMPLATE_ID"`
	PublicKey    string        `env:"EMAILJS_PUBLIC_KEY" envAlt:"EMAILJS_USER_ID"`
	PrivateKey   string        `env:"EMAILJS_PRIVATE_KEY"`
	Endpoint     string        `env:"EMAILJS_ENDPOINT" default:"https://api.emailjs.com/api/v1.0/email/send"`
	Concurrency  int           `env:"MAIL_CONCURRENCY" default:"5"`
	SendTimeout  time.Duration `env:"MAIL_SEND_TIMEOUT" default:"30s"`
	BatchTimeout time.Duration `env:"MAIL_BATCH_TIMEOUT" default:"10m"`
	ResultRetain time.Duration `env:"MAIL_RESULT_RETAIN" default:"30m"`
	Subject      string        `env:"MAIL_SUBJECT" default:"Hello from Student Dashboard"`
	Message      string        `env:"MAIL_MESSAGE"`
}

// Enabled reports whether enough credentials are set to send mail.
func (m *MailConfig) Enabled() bool {
	return m.ServiceID != "" && m.TemplateID != "" && m.PublicKey != ""
}

// DatabaseConfig holds the optional audit database settings.
type DatabaseConfig struct {
	// URL enables the mail audit log when set.
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database URL was configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
	MailLimit         int  `env:"RATE_LIMIT_MAIL" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with X-API-Key.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
