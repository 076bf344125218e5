package transport

import (
	"context"
	"fmt"
)

// Message is one outbound mail delivered to many recipients via BCC.
type Message struct {
	From    string
	ReplyTo string
	BCC     []string
	Subject string
	HTML    string
}

// Conn is a scoped mail-transport connection. One Conn is opened per chunk
// and closed on every exit path; connections are never pooled or shared.
type Conn interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// Dialer opens transport connections. Open establishes connectivity and
// authenticates before any send happens on the returned Conn.
type Dialer interface {
	Open(ctx context.Context) (Conn, error)
}

// TransportError is a connection, auth, or timeout failure at the mail
// transport layer. It fails the whole chunk and is eligible for the retry
// ladder.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RecipientError reports address-specific rejections from a transport that
// surfaces per-recipient granularity. Addresses not listed in Failed were
// accepted.
type RecipientError struct {
	Failed map[string]string
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("transport rejected %d recipients", len(e.Failed))
}
