// Package smtpmail sends email for a tenant through that tenant's own SMTP
// server.
//
// A tenant is described by five settings (smtp_host, smtp_port,
// smtp_secure, smtp_username and smtp_password). They are validated as a
// whole, turned into a verified SMTP connection, and used by an Emailer
// that assembles messages with a fluent builder.
//
// # Basic Usage
//
//	tenant := smtpmail.Settings{
//		smtpmail.KeyHost:     "mail.example.com",
//		smtpmail.KeyPort:     587,
//		smtpmail.KeySecure:   false,
//		smtpmail.KeyUsername: "support@example.com",
//		smtpmail.KeyPassword: os.Getenv("SMTP_PASSWORD"),
//	}
//
//	emailer, err := smtpmail.New(ctx, tenant)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer smtpmail.Close(emailer)
//
//	result, err := emailer.
//		From("Support <support@example.com>").
//		To("user@example.com").
//		Subject("Welcome, {{.Name}}").
//		TextBody("Hello {{.Name}}!").
//		Send(ctx, map[string]string{"Name": "Ann"})
//	if err != nil {
//		log.Fatal(err) // rendering or connection problem
//	}
//	if !result.Success {
//		log.Println("delivery failed:", result.Err)
//	}
//
// # Connect Policy
//
// By default New dials and verifies the server before returning. With
// WithLazyConnect the first Send connects instead, and a Send after
// Disconnect reconnects.
//
// # Errors
//
// Invalid settings yield ValidationErrors listing every bad field.
// Connection problems yield a *ConnectionError. Delivery problems are not
// returned as errors: Send reports them in DeliveryResult.Err as a
// *DeliveryError.
//
// # Templates
//
// Named template sets are loaded with WithTemplates from files such as
// otp.subject.txt, otp.html and otp.txt, and selected with Template("otp").
// Without a named set, a non-nil Send data value renders the subject and
// bodies set on the builder as inline templates.
package smtpmail
