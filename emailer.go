package smtpmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lattiq/smtpmail/internal/core"
	"github.com/lattiq/smtpmail/internal/transport/smtp"
)

// Type aliases to re-export core types for the public API.
type (
	Settings         = core.Settings
	SMTPConfig       = core.SMTPConfig
	Address          = core.Address
	Attachment       = core.Attachment
	Message          = core.Message
	Record           = core.Record
	Receipt          = core.Receipt
	Envelope         = core.Envelope
	DeliveryResult   = core.DeliveryResult
	Dialer           = core.Dialer
	Connection       = core.Connection
	ValidationError  = core.ValidationError
	ValidationErrors = core.ValidationErrors
	ConnectionError  = core.ConnectionError
	DeliveryError    = core.DeliveryError
)

// Tenant setting keys
const (
	KeyHost     = core.KeyHost
	KeyPort     = core.KeyPort
	KeySecure   = core.KeySecure
	KeyUsername = core.KeyUsername
	KeyPassword = core.KeyPassword
)

// Re-exported functions
var (
	ValidateSettings            = core.ValidateSettings
	FormatMessage               = core.FormatMessage
	NewMessage                  = core.NewMessage
	NewDeliveryResult           = core.NewDeliveryResult
	NewValidationError          = core.NewValidationError
	NewValidationErrorWithValue = core.NewValidationErrorWithValue
	NewConnectionError          = core.NewConnectionError
)

// Emailer sends mail for one tenant over SMTP.
//
// Messages are assembled with the builder methods and delivered with Send,
// which resets the builder. All methods are safe for concurrent use, but
// concurrent builders share one draft, so one goroutine should own an
// Emailer while composing.
type Emailer struct {
	config    Config
	smtp      SMTPConfig
	dialer    Dialer
	templates TemplateEngine
	tracer    trace.Tracer
	logger    *slog.Logger

	mu       sync.Mutex
	draft    *Message
	template string
	conn     Connection
	state    ConnState
}

// New validates tenant settings and creates an emailer.
// Under the eager connect policy (the default) the server is dialed and
// verified before New returns; a failure yields a *ConnectionError.
func New(ctx context.Context, tenant Settings, opts ...Option) (*Emailer, error) {
	config, logger, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := ValidateSettings(tenant)
	if err != nil {
		logger.Error("smtp config invalid", "error", err)
		return nil, err
	}

	e, err := newEmailer(cfg, config, logger)
	if err != nil {
		return nil, err
	}

	if config.Connect == ConnectEager {
		if err := e.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// NewEmailer creates an emailer from an already validated config.
// It never connects; call Connect or rely on the lazy connect policy.
func NewEmailer(cfg SMTPConfig, opts ...Option) (*Emailer, error) {
	config, logger, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("smtp config invalid", "error", err)
		return nil, err
	}

	return newEmailer(cfg, config, logger)
}

// Close tears down an emailer. It is safe to call with nil or more than once.
func Close(e *Emailer) error {
	if e == nil {
		return nil
	}
	return e.Disconnect()
}

func buildConfig(opts []Option) (Config, *slog.Logger, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if err := config.Validate(); err != nil {
		return config, nil, err
	}

	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = newLogger(config.Monitoring.Logging)
		if err != nil {
			return config, nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	return config, logger, nil
}

func newEmailer(cfg SMTPConfig, config Config, logger *slog.Logger) (*Emailer, error) {
	e := &Emailer{
		config: config,
		smtp:   cfg,
		dialer: config.Dialer,
		logger: logger.With("host", cfg.Host, "port", cfg.Port),
		draft:  NewMessage(),
		state:  StateAbsent,
	}

	if config.Monitoring.Tracing.Enabled {
		e.tracer = otel.Tracer(config.Monitoring.Tracing.ServiceName)
	} else {
		e.tracer = noop.NewTracerProvider().Tracer("")
	}

	if config.Templates.Enabled {
		templates, err := NewTemplateEngine(config.Templates)
		if err != nil {
			return nil, fmt.Errorf("failed to create template engine: %w", err)
		}
		e.templates = templates
	}

	if e.dialer == nil {
		e.dialer = smtp.NewDialer(cfg, smtp.Options{
			LocalName:          config.LocalName,
			Timeout:            config.Timeout,
			RequireTLS:         config.TLS.RequireTLS,
			InsecureSkipVerify: config.TLS.InsecureSkipVerify,
			Mailer:             MailerName(),
		})
		if config.TLS.InsecureSkipVerify {
			e.logger.Warn("TLS certificate verification disabled")
		}
	}

	return e, nil
}

// From sets the sender. addr is either "user@host" or "Name <user@host>".
func (e *Emailer) From(addr string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.From = parseAddress(addr)
	return e
}

// To adds primary recipients.
func (e *Emailer) To(addrs ...string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.To = appendAddresses(e.draft.To, addrs)
	return e
}

// CC adds carbon-copy recipients.
func (e *Emailer) CC(addrs ...string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.CC = appendAddresses(e.draft.CC, addrs)
	return e
}

// BCC adds blind carbon-copy recipients.
func (e *Emailer) BCC(addrs ...string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.BCC = appendAddresses(e.draft.BCC, addrs)
	return e
}

// ReplyTo sets the reply address.
func (e *Emailer) ReplyTo(addr string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := parseAddress(addr)
	e.draft.ReplyTo = &a
	return e
}

// Subject sets the subject line.
func (e *Emailer) Subject(subject string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Subject = subject
	return e
}

// TextBody sets the plain-text body.
func (e *Emailer) TextBody(body string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Text = body
	return e
}

// HTMLBody sets the HTML body.
func (e *Emailer) HTMLBody(body string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.HTML = body
	return e
}

// Header sets a custom header.
func (e *Emailer) Header(key, value string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Headers[key] = value
	return e
}

// Attach adds a file attachment. An empty filename keeps the file's base name.
func (e *Emailer) Attach(path, filename string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Attachments = append(e.draft.Attachments, Attachment{Path: path, Filename: filename})
	return e
}

// Template selects a named template set. On Send, "<name>.subject",
// "<name>.html" and "<name>.text" are rendered with the send data; missing
// parts keep what the builder set.
func (e *Emailer) Template(name string) *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.template = name
	return e
}

// Reset discards the message under construction.
func (e *Emailer) Reset() *Emailer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	return e
}

func (e *Emailer) resetLocked() {
	e.draft = NewMessage()
	e.template = ""
}

// BuildMessage returns the message under construction rendered with data.
// The builder is left untouched.
func (e *Emailer) BuildMessage(data any) (*Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render(e.draft, e.template, data)
}

// Send delivers the message under construction and resets the builder.
//
// The returned error is reserved for failures before delivery is attempted:
// template rendering, and connecting. A *ConnectionError from the transport
// also lands here, and the emailer is left without a connection. Anything
// else the transport reports while sending is returned in the result with
// Success false.
func (e *Emailer) Send(ctx context.Context, data any) (*DeliveryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "smtpmail.Emailer.Send")
	defer span.End()

	draft, name := e.draft, e.template
	e.resetLocked()

	msg, err := e.render(draft, name, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "template render failed")
		e.logger.Error("email render failed", "template", name, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("smtpmail.version", LibraryVersion()),
		attribute.String("smtpmail.host", e.smtp.Host),
		attribute.String("smtpmail.from", msg.From.Email),
		attribute.Int("smtpmail.recipients", msg.TotalRecipients()),
	)

	if e.conn == nil {
		if e.config.Connect != ConnectLazy {
			err := NewConnectionError(e.smtp.Host, "send", ErrNotConnected)
			span.RecordError(err)
			span.SetStatus(codes.Error, "not connected")
			e.logger.Error("email send failed", "error", err)
			return nil, err
		}
		if err := e.connectLocked(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "connect failed")
			return nil, err
		}
	}

	rec := FormatMessage(msg)
	if e.config.Monitoring.Logging.ShowDetails {
		e.logger.Debug("sending email",
			"from", rec.From,
			"to", rec.To,
			"subject", rec.Subject,
		)
	}

	receipt, err := e.conn.Send(ctx, rec)
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		// The transport lost its session and could not reopen it.
		e.dropLocked()
		span.RecordError(err)
		span.SetStatus(codes.Error, "connection lost")
		e.logger.Error("smtp connection lost", "error", err)
		return nil, err
	}

	result := NewDeliveryResult(msg, receipt, err)
	if !result.Success {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "send failed")
		e.logger.Error("email send failed", "recipients", msg.TotalRecipients(), "error", result.Err)
		return result, nil
	}

	span.SetAttributes(attribute.String("smtpmail.message_id", receipt.MessageID))
	span.SetStatus(codes.Ok, "email sent successfully")
	e.logger.Info("email sent", "message_id", receipt.MessageID, "recipients", len(receipt.Accepted))

	return result, nil
}

// Connect dials and verifies the server. It is a no-op when a verified
// connection is already held.
func (e *Emailer) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectLocked(ctx)
}

func (e *Emailer) connectLocked(ctx context.Context) error {
	if e.conn != nil {
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "smtpmail.Emailer.Connect")
	defer span.End()

	span.SetAttributes(
		attribute.String("smtpmail.host", e.smtp.Host),
		attribute.Int("smtpmail.port", e.smtp.Port),
		attribute.Bool("smtpmail.secure", e.smtp.Secure),
	)

	e.setState(StateConnecting)
	conn, err := e.dialer.Dial(ctx)
	if err != nil {
		e.setState(StateAbsent)

		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			err = NewConnectionError(e.smtp.Host, "dial", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		e.logger.Error("smtp connect failed", "error", err)
		return err
	}

	e.conn = conn
	e.setState(StateVerified)
	span.SetStatus(codes.Ok, "connection verified")
	e.logger.Info("smtp connection verified")

	return nil
}

// Disconnect closes the connection if one is held. Calling it again is a no-op.
func (e *Emailer) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return nil
	}

	_, span := e.tracer.Start(context.Background(), "smtpmail.Emailer.Disconnect")
	defer span.End()

	conn := e.conn
	e.conn = nil
	e.setState(StateAbsent)

	if err := conn.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "close failed")
		e.logger.Warn("smtp connection close failed", "error", err)
		return fmt.Errorf("failed to close SMTP connection: %w", err)
	}

	span.SetStatus(codes.Ok, "disconnected")
	e.logger.Debug("smtp connection closed")
	return nil
}

// State returns the connection state. It never reports StateConnecting:
// a dial in progress holds the emailer until it settles.
func (e *Emailer) State() ConnState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// VerifyConfig reports whether a verified connection is held.
func (e *Emailer) VerifyConfig() bool {
	return e.State() == StateVerified
}

// Templates returns the template engine, or nil when templates are disabled.
func (e *Emailer) Templates() TemplateEngine {
	return e.templates
}

// Config returns the validated tenant SMTP configuration.
func (e *Emailer) Config() SMTPConfig {
	return e.smtp
}

// dropLocked discards a connection that can no longer be trusted.
func (e *Emailer) dropLocked() {
	if e.conn == nil {
		return
	}
	_ = e.conn.Close()
	e.conn = nil
	e.setState(StateAbsent)
}

func (e *Emailer) setState(s ConnState) {
	if e.state != s {
		e.logger.Debug("connection state changed", "from", e.state.String(), "to", s.String())
	}
	e.state = s
}

// render produces the message to send from a draft.
//
// With a named template set, the subject (when the draft has none), HTML
// and text parts come from the registered templates. Otherwise, when data
// is non-nil, the draft's own subject and bodies are rendered inline.
func (e *Emailer) render(draft *Message, name string, data any) (*Message, error) {
	msg := draft.Clone()

	if name != "" {
		if e.templates == nil {
			return nil, NewTemplateError(name, "render", "template engine not enabled", ErrTemplatesDisabled)
		}
		return e.renderNamed(msg, name, data)
	}

	if data == nil || e.templates == nil {
		return msg, nil
	}

	var err error
	if msg.Subject, err = e.templates.RenderInline("subject", msg.Subject, data); err != nil {
		return nil, err
	}
	if msg.Text, err = e.templates.RenderInline("text", msg.Text, data); err != nil {
		return nil, err
	}
	if msg.HTML, err = e.templates.RenderInline("html", msg.HTML, data); err != nil {
		return nil, err
	}
	return msg, nil
}

func (e *Emailer) renderNamed(msg *Message, name string, data any) (*Message, error) {
	found := false

	lookup := func(part string) (string, bool, error) {
		out, err := e.templates.Render(name+"."+part, data)
		if errors.Is(err, ErrTemplateNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		found = true
		return out, true, nil
	}

	subject, ok, err := lookup("subject")
	if err != nil {
		return nil, err
	}
	if ok && msg.Subject == "" {
		msg.Subject = strings.TrimSpace(subject)
	} else if data != nil {
		if msg.Subject, err = e.templates.RenderInline("subject", msg.Subject, data); err != nil {
			return nil, err
		}
	}

	html, ok, err := lookup("html")
	if err != nil {
		return nil, err
	}
	if ok {
		msg.HTML = html
	}

	text, ok, err := lookup("text")
	if err != nil {
		return nil, err
	}
	if ok {
		msg.Text = text
	}

	if !found {
		return nil, NewTemplateError(name, "render", "no subject, html or text template registered", ErrTemplateNotFound)
	}
	return msg, nil
}

// parseAddress splits "Name <user@host>" into its parts. Values that do
// not parse are kept verbatim as the email.
func parseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if a, err := netmail.ParseAddress(s); err == nil {
		return Address{Name: a.Name, Email: a.Address}
	}
	return Address{Email: s}
}

func appendAddresses(dst []Address, addrs []string) []Address {
	for _, a := range addrs {
		dst = append(dst, parseAddress(a))
	}
	return dst
}
