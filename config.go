package smtpmail

import (
	"log/slog"
	"time"

	"github.com/lattiq/smtpmail/internal/transport/smtp"
)

// Config holds the emailer configuration that is not tenant-specific.
// Tenant credentials travel separately as Settings or SMTPConfig.
type Config struct {
	// Connect selects when the SMTP connection is opened and verified.
	Connect ConnectPolicy

	// LocalName is the client name sent in EHLO (default: "localhost").
	LocalName string

	// Timeout bounds network operations of the transport library.
	Timeout time.Duration

	// TLS contains transport security settings.
	TLS TLSConfig

	// Templates contains template engine configuration.
	Templates TemplateConfig

	// Monitoring contains observability configuration.
	Monitoring MonitoringConfig

	// Logger overrides the logger built from Monitoring.Logging.
	Logger *slog.Logger

	// Dialer overrides the SMTP dialer built from the tenant config.
	Dialer Dialer
}

// ConnectPolicy represents when a connection is established.
type ConnectPolicy string

const (
	// ConnectEager connects and verifies while the emailer is created.
	ConnectEager ConnectPolicy = "eager"

	// ConnectLazy connects and verifies on the first Send.
	ConnectLazy ConnectPolicy = "lazy"
)

// String returns the string representation of the policy.
func (p ConnectPolicy) String() string {
	return string(p)
}

// Valid checks if the policy is supported.
func (p ConnectPolicy) Valid() bool {
	switch p {
	case ConnectEager, ConnectLazy:
		return true
	default:
		return false
	}
}

// TLSConfig contains transport security settings.
type TLSConfig struct {
	// RequireTLS makes the STARTTLS upgrade mandatory when the tenant
	// connection is not already secure.
	RequireTLS bool

	// InsecureSkipVerify accepts self-signed certificates.
	// It is enabled by default to match existing tenant servers; disable it
	// with WithStrictTLS where certificates are trusted.
	InsecureSkipVerify bool
}

// TemplateConfig contains template engine configuration.
type TemplateConfig struct {
	// Enabled indicates whether template functionality is enabled.
	Enabled bool

	// Directory is the path to the directory containing email templates.
	Directory string

	// Extension lists the template file extensions to load (default: ".html", ".txt", ".text").
	Extension []string

	// AllowUnsafeFunctions enables unsafe template functions that bypass auto-escaping.
	// WARNING: Only enable this if you trust all template content completely.
	AllowUnsafeFunctions bool
}

// MonitoringConfig contains observability configuration.
type MonitoringConfig struct {
	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig

	// Logging contains logging configuration.
	Logging LoggingConfig
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled indicates whether tracing is enabled.
	Enabled bool

	// ServiceName is the instrumentation name used for the tracer.
	ServiceName string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string

	// Format is the log format (json, text).
	Format string

	// Output is where to write logs (stdout, stderr, discard).
	Output string

	// ShowDetails logs each outgoing message at debug level before sending.
	// This may log personal data.
	ShowDetails bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Connect:   ConnectEager,
		LocalName: smtp.DefaultLocalName,
		Timeout:   30 * time.Second,
		TLS: TLSConfig{
			RequireTLS:         true,
			InsecureSkipVerify: true,
		},
		Templates: TemplateConfig{
			Enabled:              true,
			Extension:            []string{".html", ".txt", ".text"},
			AllowUnsafeFunctions: false, // Secure by default
		},
		Monitoring: MonitoringConfig{
			Tracing: TracingConfig{
				Enabled:     true,
				ServiceName: "github.com/lattiq/smtpmail",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if !c.Connect.Valid() {
		return &ValidationError{
			Field:   "connect",
			Message: "invalid connect policy: " + string(c.Connect),
		}
	}

	if c.Timeout < 0 {
		return &ValidationError{
			Field:   "timeout",
			Message: "timeout must not be negative",
		}
	}

	if c.Logger == nil {
		if _, err := parseLevel(c.Monitoring.Logging.Level); err != nil {
			return &ValidationError{
				Field:   "monitoring.logging.level",
				Message: err.Error(),
			}
		}
		switch c.Monitoring.Logging.Format {
		case "json", "text":
		default:
			return &ValidationError{
				Field:   "monitoring.logging.format",
				Message: "format must be json or text",
			}
		}
		switch c.Monitoring.Logging.Output {
		case "stdout", "stderr", "discard":
		default:
			return &ValidationError{
				Field:   "monitoring.logging.output",
				Message: "output must be stdout, stderr or discard",
			}
		}
	}

	return nil
}
