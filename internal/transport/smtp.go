package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const defaultSendTimeout = 30 * time.Second

// SMTP dials a mail server with gomail. Each Open produces a fresh
// connection; bulk mail servers tend to throttle or drop long-lived ones.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string

	// SendTimeout bounds a single send attempt. Zero means the default.
	SendTimeout time.Duration

	// DialMaxElapsed bounds the dial retry backoff. Zero means one second
	// initial interval up to ten seconds total.
	DialMaxElapsed time.Duration

	Log *zap.Logger
}

type smtpConn struct {
	sc      gomail.SendCloser
	timeout time.Duration
	log     *zap.Logger
}

// Open dials and authenticates. Transient dial failures are retried with
// exponential backoff before the chunk is given up on.
func (s *SMTP) Open(ctx context.Context) (Conn, error) {
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	var sc gomail.SendCloser

	operation := func() error {
		var err error
		sc, err = d.Dial()
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = s.DialMaxElapsed
	if b.MaxElapsedTime == 0 {
		b.MaxElapsedTime = 10 * time.Second
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	timeout := s.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &smtpConn{sc: sc, timeout: timeout, log: s.Log}, nil
}

// Send delivers one BCC message over the open connection, bounded by the
// configured hard timeout. A hung server fails the chunk instead of blocking
// the caller indefinitely.
func (c *smtpConn) Send(ctx context.Context, msg *Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Bcc", msg.BCC...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- gomail.Send(c.sc, m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &TransportError{Op: "send", Err: err}
		}
		return nil
	case <-ctx.Done():
		// The send goroutine is abandoned; closing the connection below
		// unblocks it.
		if c.log != nil {
			c.log.Warn("smtp send timed out",
				zap.Duration("timeout", c.timeout),
				zap.Int("recipients", len(msg.BCC)),
			)
		}
		return &TransportError{Op: "send", Err: ctx.Err()}
	}
}

func (c *smtpConn) Close() error {
	return c.sc.Close()
}
