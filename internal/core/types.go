package core

import (
	"context"
	"maps"
	"time"
)

// Dialer builds live, verified connections to a mail server.
// Implementations handle transport-specific logic for connecting and authenticating.
type Dialer interface {
	// Dial connects, negotiates TLS and authenticates.
	// It returns either a verified connection or an error, never a half-open connection.
	Dial(ctx context.Context) (Connection, error)
}

// Connection is a live session capable of delivering messages.
type Connection interface {
	// Send delivers a formatted message over the session.
	Send(ctx context.Context, rec *Record) (*Receipt, error)

	// Close releases the session.
	Close() error
}

// Address represents an email address with optional display name.
type Address struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"` // Display name (optional)
	Email string `json:"email" yaml:"email"`                   // Email address (required)
}

// String returns the formatted email address.
// If Name is provided, returns "\"Name\" <email@domain.com>"
// Otherwise returns just "email@domain.com"
func (a Address) String() string {
	if a.Name != "" {
		return `"` + a.Name + `" <` + a.Email + `>`
	}
	return a.Email
}

// Attachment references a file on disk to be attached to the message.
type Attachment struct {
	// Path is the location of the file to attach.
	Path string `json:"path"`

	// Filename overrides the name shown to recipients (optional).
	Filename string `json:"filename,omitempty"`
}

// Message represents an email message as built by the emailer.
type Message struct {
	From        Address           `json:"from"`
	To          []Address         `json:"to"`
	CC          []Address         `json:"cc"`
	BCC         []Address         `json:"bcc"`
	ReplyTo     *Address          `json:"reply_to,omitempty"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Headers     map[string]string `json:"headers"`
	Attachments []Attachment      `json:"attachments"`
}

// NewMessage returns an empty message with initialized collections.
func NewMessage() *Message {
	return &Message{
		To:          []Address{},
		CC:          []Address{},
		BCC:         []Address{},
		Headers:     map[string]string{},
		Attachments: []Attachment{},
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.To = append([]Address{}, m.To...)
	c.CC = append([]Address{}, m.CC...)
	c.BCC = append([]Address{}, m.BCC...)
	c.Attachments = append([]Attachment{}, m.Attachments...)
	c.Headers = make(map[string]string, len(m.Headers))
	maps.Copy(c.Headers, m.Headers)
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		c.ReplyTo = &r
	}
	return &c
}

// TotalRecipients returns the total number of recipients (To + CC + BCC).
func (m *Message) TotalRecipients() int {
	return len(m.To) + len(m.CC) + len(m.BCC)
}

// Envelope holds the SMTP envelope used for a delivery.
type Envelope struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// Receipt is the transport's acknowledgment of a delivered message.
type Receipt struct {
	// MessageID is the Message-ID header the message was sent with.
	MessageID string `json:"message_id"`

	// Accepted lists recipients the server accepted.
	Accepted []string `json:"accepted"`

	// Rejected lists recipients the server refused.
	Rejected []string `json:"rejected"`

	// Envelope is the MAIL FROM / RCPT TO pair used.
	Envelope Envelope `json:"envelope"`

	// Timestamp when the message was accepted.
	Timestamp time.Time `json:"timestamp"`
}
