package smtp

import (
	"context"
	"fmt"
	netmail "net/mail"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/mail.v2"

	"github.com/lattiq/smtpmail/internal/core"
)

// Connection is a verified SMTP session. It implements core.Connection.
//
// The library cannot reset a session after a refused transaction, so a
// failed send retires the session and the next Send dials a fresh one.
// When that dial fails, Send returns a *core.ConnectionError and the
// connection must be discarded.
type Connection struct {
	sender    mail.SendCloser
	redial    func() (mail.SendCloser, error)
	host      string
	localName string
	mailer    string

	mu     sync.Mutex
	stale  bool
	closed bool
}

func newConnection(sender mail.SendCloser, redial func() (mail.SendCloser, error), host string, opts Options) *Connection {
	return &Connection{
		sender:    sender,
		redial:    redial,
		host:      host,
		localName: opts.LocalName,
		mailer:    opts.Mailer,
	}
}

// Send delivers a formatted record over the session.
func (c *Connection) Send(ctx context.Context, rec *core.Record) (*core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, core.ErrNotConnected
	}

	msg, messageID, err := c.buildMessage(rec)
	if err != nil {
		return nil, err
	}

	if c.stale {
		sender, err := c.redial()
		if err != nil {
			return nil, core.NewConnectionError(c.host, failureStage(err), err)
		}
		c.sender = sender
		c.stale = false
	}

	if err := mail.Send(c.sender, msg); err != nil {
		_ = c.sender.Close()
		c.stale = true
		return nil, err
	}

	recipients := envelopeAddresses(rec.To, rec.CC, rec.BCC)
	return &core.Receipt{
		MessageID: messageID,
		Accepted:  recipients,
		Rejected:  []string{},
		Envelope: core.Envelope{
			From: envelopeAddress(rec.From),
			To:   recipients,
		},
		Timestamp: time.Now(),
	}, nil
}

// Close ends the session. Closing twice is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.stale {
		return nil
	}
	return c.sender.Close()
}

// buildMessage converts a record into the library's message type and
// returns it along with its Message-ID.
func (c *Connection) buildMessage(rec *core.Record) (*mail.Message, string, error) {
	// Attachments are read while DATA is streaming; a missing file must
	// fail before the transaction starts.
	for _, att := range rec.Attachments {
		if _, err := os.Stat(att.Path); err != nil {
			return nil, "", fmt.Errorf("attachment %s: %w", att.Path, err)
		}
	}

	m := mail.NewMessage()

	m.SetHeader("From", headerAddress(m, rec.From))
	setAddressHeader(m, "To", rec.To)
	setAddressHeader(m, "Cc", rec.CC)
	setAddressHeader(m, "Bcc", rec.BCC)
	if rec.ReplyTo != "" {
		m.SetHeader("Reply-To", headerAddress(m, rec.ReplyTo))
	}
	m.SetHeader("Subject", rec.Subject)

	// Custom headers in a stable order
	keys := make([]string, 0, len(rec.Headers))
	for k := range rec.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.SetHeader(k, rec.Headers[k])
	}

	messageID, ok := lookupHeader(rec.Headers, "Message-ID")
	if !ok {
		messageID = "<" + uuid.NewString() + "@" + c.localName + ">"
		m.SetHeader("Message-ID", messageID)
	}
	if _, ok := lookupHeader(rec.Headers, "X-Mailer"); !ok && c.mailer != "" {
		m.SetHeader("X-Mailer", c.mailer)
	}

	switch {
	case rec.Text != "" && rec.HTML != "":
		m.SetBody("text/plain", rec.Text)
		m.AddAlternative("text/html", rec.HTML)
	case rec.HTML != "":
		m.SetBody("text/html", rec.HTML)
	default:
		m.SetBody("text/plain", rec.Text)
	}

	for _, att := range rec.Attachments {
		if att.Filename != "" {
			m.Attach(att.Path, mail.Rename(att.Filename))
		} else {
			m.Attach(att.Path)
		}
	}

	return m, messageID, nil
}

func setAddressHeader(m *mail.Message, field string, addrs []string) {
	if len(addrs) == 0 {
		return
	}
	values := make([]string, len(addrs))
	for i, a := range addrs {
		values[i] = headerAddress(m, a)
	}
	m.SetHeader(field, values...)
}

// headerAddress re-encodes a formatted address so non-ASCII display names
// survive header encoding. Unparseable values are kept as given.
func headerAddress(m *mail.Message, formatted string) string {
	a, err := netmail.ParseAddress(formatted)
	if err != nil {
		return formatted
	}
	return m.FormatAddress(a.Address, a.Name)
}

func envelopeAddress(formatted string) string {
	a, err := netmail.ParseAddress(formatted)
	if err != nil {
		return formatted
	}
	return a.Address
}

func envelopeAddresses(lists ...[]string) []string {
	out := []string{}
	for _, list := range lists {
		for _, a := range list {
			out = append(out, envelopeAddress(a))
		}
	}
	return out
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
