package smtp_test

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/require"

	"github.com/lattiq/smtpmail/internal/core"
)

// received is one message accepted by the test server.
type received struct {
	From  string
	Rcpts []string
	Data  string
}

// testBackend is an in-process SMTP server that records accepted mail.
type testBackend struct {
	username string
	password string
	reject   string

	mu       sync.Mutex
	messages []received
	logins   int
}

func (b *testBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &testSession{backend: b}, nil
}

func (b *testBackend) Messages() []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]received{}, b.messages...)
}

func (b *testBackend) Logins() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins
}

type testSession struct {
	backend *testBackend
	from    string
	rcpts   []string
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != s.backend.username || password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.backend.mu.Lock()
		s.backend.logins++
		s.backend.mu.Unlock()
		return nil
	}), nil
}

func (s *testSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if to == s.backend.reject {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "mailbox unavailable",
		}
	}
	s.rcpts = append(s.rcpts, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, received{
		From:  s.from,
		Rcpts: append([]string{}, s.rcpts...),
		Data:  string(data),
	})
	s.backend.mu.Unlock()
	return nil
}

func (s *testSession) Reset() {
	s.from = ""
	s.rcpts = nil
}

func (s *testSession) Logout() error {
	return nil
}

// startServer runs a plain-text SMTP server on a loopback port.
func startServer(t *testing.T, backend *testBackend) core.SMTPConfig {
	t.Helper()
	cfg, _ := serve(t, backend)
	return cfg
}

// serve is startServer that also hands back the server so a test can stop it.
func serve(t *testing.T, backend *testBackend) (core.SMTPConfig, *gosmtp.Server) {
	t.Helper()

	server := gosmtp.NewServer(backend)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	return core.SMTPConfig{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Secure:   false,
		Username: backend.username,
		Password: backend.password,
	}, server
}

// unusedPort returns a loopback port with nothing listening on it.
func unusedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
