package smtpmail_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lattiq/smtpmail"
)

// fakeDialer hands out in-memory connections and counts dials.
type fakeDialer struct {
	mu      sync.Mutex
	err     error
	sendErr error
	dials   int
	conns   []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context) (smtpmail.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{sendErr: d.sendErr}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeConn struct {
	mu      sync.Mutex
	sendErr error
	sent    []*smtpmail.Record
	closes  int
}

func (c *fakeConn) Send(_ context.Context, rec *smtpmail.Record) (*smtpmail.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, rec)

	rcpts := append(append(append([]string{}, rec.To...), rec.CC...), rec.BCC...)
	return &smtpmail.Receipt{
		MessageID: "<fake@localhost>",
		Accepted:  rcpts,
		Rejected:  []string{},
		Envelope:  smtpmail.Envelope{From: rec.From, To: rcpts},
		Timestamp: time.Now(),
	}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeConn) Sent() []*smtpmail.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*smtpmail.Record{}, c.sent...)
}

func (c *fakeConn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func validTenant() smtpmail.Settings {
	return smtpmail.Settings{
		smtpmail.KeyHost:     "mail.example.com",
		smtpmail.KeyPort:     587,
		smtpmail.KeySecure:   false,
		smtpmail.KeyUsername: "support@example.com",
		smtpmail.KeyPassword: "secret",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions wires a fake dialer with logging and tracing off.
func testOptions(d *fakeDialer, extra ...smtpmail.Option) []smtpmail.Option {
	opts := []smtpmail.Option{
		smtpmail.WithDialer(d),
		smtpmail.WithLogger(quietLogger()),
		smtpmail.WithoutTracing(),
	}
	return append(opts, extra...)
}
