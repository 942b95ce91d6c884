package smtpmail

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the emailer.
type Option func(*Config)

// WithEagerConnect connects and verifies the server while the emailer is created.
func WithEagerConnect() Option {
	return func(c *Config) {
		c.Connect = ConnectEager
	}
}

// WithLazyConnect defers connecting until the first Send.
// A connection dropped by Disconnect is reopened on the next Send.
func WithLazyConnect() Option {
	return func(c *Config) {
		c.Connect = ConnectLazy
	}
}

// WithTimeout sets the network timeout of the transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithLocalName sets the client name announced in EHLO.
func WithLocalName(name string) Option {
	return func(c *Config) {
		c.LocalName = name
	}
}

// WithRequireTLS controls whether STARTTLS is mandatory on plain connections.
func WithRequireTLS(required bool) Option {
	return func(c *Config) {
		c.TLS.RequireTLS = required
	}
}

// WithInsecureSkipVerify controls whether unverifiable server certificates are accepted.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Config) {
		c.TLS.InsecureSkipVerify = skip
	}
}

// WithStrictTLS requires STARTTLS and verifies server certificates.
func WithStrictTLS() Option {
	return func(c *Config) {
		c.TLS.RequireTLS = true
		c.TLS.InsecureSkipVerify = false
	}
}

// WithTemplates enables template functionality and sets the template directory.
func WithTemplates(directory string) Option {
	return func(c *Config) {
		c.Templates.Enabled = true
		c.Templates.Directory = directory
	}
}

// WithTemplateExtensions sets which file extensions are loaded as templates.
func WithTemplateExtensions(exts ...string) Option {
	return func(c *Config) {
		c.Templates.Extension = exts
	}
}

// WithUnsafeTemplateFunctions enables the unsafeHTML and unsafeURL template functions.
func WithUnsafeTemplateFunctions() Option {
	return func(c *Config) {
		c.Templates.AllowUnsafeFunctions = true
	}
}

// WithoutTemplates disables template rendering; Send data is ignored.
func WithoutTemplates() Option {
	return func(c *Config) {
		c.Templates.Enabled = false
	}
}

// WithTracing enables distributed tracing under the given instrumentation name.
func WithTracing(serviceName string) Option {
	return func(c *Config) {
		c.Monitoring.Tracing.Enabled = true
		if serviceName != "" {
			c.Monitoring.Tracing.ServiceName = serviceName
		}
	}
}

// WithoutTracing disables distributed tracing.
func WithoutTracing() Option {
	return func(c *Config) {
		c.Monitoring.Tracing.Enabled = false
	}
}

// WithLogging configures the built-in logger.
func WithLogging(level, format, output string) Option {
	return func(c *Config) {
		c.Monitoring.Logging.Level = level
		c.Monitoring.Logging.Format = format
		c.Monitoring.Logging.Output = output
	}
}

// WithMessageLogging logs each outgoing message at debug level.
// Use with caution as this logs recipients and subjects.
func WithMessageLogging(enabled bool) Option {
	return func(c *Config) {
		c.Monitoring.Logging.ShowDetails = enabled
	}
}

// WithLogger sets the logger, overriding the logging configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDialer replaces the SMTP dialer, e.g. with a test double.
func WithDialer(d Dialer) Option {
	return func(c *Config) {
		c.Dialer = d
	}
}
