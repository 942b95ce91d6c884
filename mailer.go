package smtpmail

import (
	"context"
)

// Public interfaces for the smtpmail library
type (
	// Mailer defines the capabilities an application relies on.
	// *Emailer implements it.
	Mailer interface {
		// VerifyConfig reports whether the emailer holds a verified connection.
		VerifyConfig() bool

		// Connect dials and verifies the SMTP server if not already connected.
		Connect(ctx context.Context) error

		// Disconnect releases the connection. Calling it twice is a no-op.
		Disconnect() error

		// Send delivers the message under construction.
		// Delivery failures are reported in the result, not as an error.
		Send(ctx context.Context, data any) (*DeliveryResult, error)

		// BuildMessage returns the message under construction rendered with data.
		BuildMessage(data any) (*Message, error)
	}

	// TemplateEngine defines the interface for template rendering.
	TemplateEngine interface {
		// Render renders a registered template with the provided data.
		Render(templateName string, data any) (string, error)

		// RenderInline parses and renders content as a one-off template.
		// kind is "subject", "text" or "html"; html content is auto-escaped.
		RenderInline(kind, content string, data any) (string, error)

		// RegisterTemplate registers a template with the given name and content.
		RegisterTemplate(name string, content string) error

		// LoadTemplatesFromDir loads all templates from the specified directory.
		// Templates should follow the naming convention: <name>.<type>.<ext>
		// where type is 'subject', 'html', or 'text'.
		LoadTemplatesFromDir(dir string) error
	}
)

var _ Mailer = (*Emailer)(nil)
