package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"gopkg.in/mail.v2"

	"github.com/lattiq/smtpmail/internal/core"
)

// DefaultLocalName is the EHLO name used when none is configured.
const DefaultLocalName = "localhost"

// Options tune how connections are built.
type Options struct {
	// LocalName is the hostname sent in EHLO.
	LocalName string

	// Timeout bounds network operations inside the transport library.
	// Zero keeps the library default.
	Timeout time.Duration

	// RequireTLS makes STARTTLS mandatory on non-implicit-TLS connections.
	RequireTLS bool

	// InsecureSkipVerify accepts self-signed or otherwise unverifiable certificates.
	InsecureSkipVerify bool

	// Mailer is the X-Mailer header value added to outgoing messages.
	Mailer string
}

// Dialer implements core.Dialer on top of gopkg.in/mail.v2.
type Dialer struct {
	config core.SMTPConfig
	opts   Options
}

// NewDialer creates a new SMTP dialer for a validated config.
func NewDialer(cfg core.SMTPConfig, opts Options) *Dialer {
	if opts.LocalName == "" {
		opts.LocalName = DefaultLocalName
	}
	return &Dialer{
		config: cfg,
		opts:   opts,
	}
}

// Name returns the transport name.
func (d *Dialer) Name() string {
	return "smtp"
}

// Dial connects, negotiates TLS and authenticates against the server.
// A connection that finishes dialing after ctx is done is closed, never returned.
func (d *Dialer) Dial(ctx context.Context) (core.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewConnectionError(d.config.Host, "dial", err)
	}

	md := d.mailDialer()

	type dialResult struct {
		sender mail.SendCloser
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		sender, err := md.Dial()
		done <- dialResult{sender: sender, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.sender != nil {
				_ = r.sender.Close()
			}
		}()
		return nil, core.NewConnectionError(d.config.Host, "dial", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, core.NewConnectionError(d.config.Host, failureStage(r.err), r.err)
		}
		return newConnection(r.sender, md.Dial, d.config.Host, d.opts), nil
	}
}

// mailDialer builds the library dialer for one connection attempt.
func (d *Dialer) mailDialer() *mail.Dialer {
	md := mail.NewDialer(d.config.Host, d.config.Port, d.config.Username, d.config.Password)
	md.SSL = d.config.Secure
	md.LocalName = d.opts.LocalName
	md.TLSConfig = &tls.Config{
		ServerName:         d.config.Host,
		InsecureSkipVerify: d.opts.InsecureSkipVerify, // #nosec G402 -- tenant-configurable, warned by the emailer
		MinVersion:         tls.VersionTLS12,
	}
	if d.opts.Timeout > 0 {
		md.Timeout = d.opts.Timeout
	}

	switch {
	case d.config.Secure:
		md.StartTLSPolicy = mail.NoStartTLS
	case d.opts.RequireTLS:
		md.StartTLSPolicy = mail.MandatoryStartTLS
	default:
		md.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return md
}

// failureStage tells network failures apart from protocol failures.
func failureStage(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "dial"
	}
	return "verify"
}
