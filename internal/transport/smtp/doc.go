// Package smtp connects to tenant mail servers through gopkg.in/mail.v2.
//
// A Dialer turns a validated core.SMTPConfig into a verified Connection: Dial
// performs the TCP/TLS handshake, the optional STARTTLS upgrade and AUTH before
// returning, so a returned Connection is always usable. Connection.Send turns a
// core.Record into a MIME message and delivers it over the open session.
package smtp
