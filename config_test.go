package smtpmail

import (
	"context"
	"log/slog"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ConnectEager, cfg.Connect)
	assert.Equal(t, "localhost", cfg.LocalName)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.TLS.RequireTLS)
	assert.True(t, cfg.TLS.InsecureSkipVerify)
	assert.True(t, cfg.Templates.Enabled)
	assert.False(t, cfg.Templates.AllowUnsafeFunctions)
	assert.True(t, cfg.Monitoring.Tracing.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown connect policy", func(c *Config) { c.Connect = "sometimes" }, "connect"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"bad log level", func(c *Config) { c.Monitoring.Logging.Level = "loud" }, "monitoring.logging.level"},
		{"bad log format", func(c *Config) { c.Monitoring.Logging.Format = "xml" }, "monitoring.logging.format"},
		{"bad log output", func(c *Config) { c.Monitoring.Logging.Output = "file" }, "monitoring.logging.output"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("injected logger skips logging checks", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Monitoring.Logging.Output = "file"
		cfg.Logger = slog.Default()
		assert.NoError(t, cfg.Validate())
	})
}

func TestOptions(t *testing.T) {
	t.Parallel()

	d := &stubDialer{}
	logger := slog.Default()

	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithLazyConnect(),
		WithTimeout(5 * time.Second),
		WithLocalName("mx.example.com"),
		WithStrictTLS(),
		WithTemplates("templates"),
		WithTemplateExtensions(".tmpl"),
		WithUnsafeTemplateFunctions(),
		WithTracing("tenant-mail"),
		WithLogging("debug", "text", "stderr"),
		WithMessageLogging(true),
		WithLogger(logger),
		WithDialer(d),
	} {
		opt(&cfg)
	}

	assert.Equal(t, ConnectLazy, cfg.Connect)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "mx.example.com", cfg.LocalName)
	assert.True(t, cfg.TLS.RequireTLS)
	assert.False(t, cfg.TLS.InsecureSkipVerify)
	assert.Equal(t, "templates", cfg.Templates.Directory)
	assert.Equal(t, []string{".tmpl"}, cfg.Templates.Extension)
	assert.True(t, cfg.Templates.AllowUnsafeFunctions)
	assert.Equal(t, "tenant-mail", cfg.Monitoring.Tracing.ServiceName)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "text", Output: "stderr", ShowDetails: true}, cfg.Monitoring.Logging)
	assert.Same(t, logger, cfg.Logger)
	assert.Same(t, d, cfg.Dialer)

	for _, opt := range []Option{
		WithEagerConnect(),
		WithRequireTLS(false),
		WithInsecureSkipVerify(true),
		WithoutTemplates(),
		WithoutTracing(),
	} {
		opt(&cfg)
	}

	assert.Equal(t, ConnectEager, cfg.Connect)
	assert.False(t, cfg.TLS.RequireTLS)
	assert.True(t, cfg.TLS.InsecureSkipVerify)
	assert.False(t, cfg.Templates.Enabled)
	assert.False(t, cfg.Monitoring.Tracing.Enabled)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := newLogger(LoggingConfig{Level: "warn", Format: "text", Output: "discard"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(LoggingConfig{Level: "info", Format: "json", Output: "syslog"})
	assert.Error(t, err)

	_, err = newLogger(LoggingConfig{Level: "verbose", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestConnState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "verified", StateVerified.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}

func TestMailerName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "smtpmail/"+LibraryVersion(), MailerName())
	assert.NotEmpty(t, LibraryVersion())
}

func TestModuleVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		info *debug.BuildInfo
		want string
	}{
		"main module": {
			info: &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "v1.4.0"}},
			want: "v1.4.0",
		},
		"main module from source": {
			info: &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "(devel)"}},
			want: "dev",
		},
		"dependency": {
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{{Path: "golang.org/x/text", Version: "v0.21.0"}, {Path: modulePath, Version: "v1.2.3"}},
			},
			want: "v1.2.3",
		},
		"replaced with a local path": {
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{{Path: modulePath, Version: "v1.2.3", Replace: &debug.Module{Path: "../smtpmail"}}},
			},
			want: "dev",
		},
		"not linked": {
			info: &debug.BuildInfo{Main: debug.Module{Path: "example.com/app"}},
			want: "dev",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, moduleVersion(tt.info, "dev"))
		})
	}
}

type stubDialer struct{}

func (*stubDialer) Dial(context.Context) (Connection, error) {
	return nil, ErrNotConnected
}
