package transport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubSendCloser stands in for an open SMTP connection.
type stubSendCloser struct {
	sendErr error
	hang    time.Duration
	from    string
	to      []string
	closed  bool
}

func (s *stubSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	if s.hang > 0 {
		time.Sleep(s.hang)
	}
	s.from = from
	s.to = to
	return s.sendErr
}

func (s *stubSendCloser) Close() error {
	s.closed = true
	return nil
}

func TestSendDeliversBCCRecipients(t *testing.T) {
	stub := &stubSendCloser{}
	conn := &smtpConn{sc: stub, timeout: time.Second, log: zap.NewNop()}

	msg := &Message{
		From:    "news@org.example",
		ReplyTo: "office@org.example",
		BCC:     []string{"a@x.com", "b@x.com"},
		Subject: "Weekly Update",
		HTML:    "<p>news</p>",
	}

	require.NoError(t, conn.Send(context.Background(), msg))
	assert.Equal(t, "news@org.example", stub.from)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, stub.to)

	require.NoError(t, conn.Close())
	assert.True(t, stub.closed)
}

func TestSendWrapsTransportFailure(t *testing.T) {
	stub := &stubSendCloser{sendErr: errors.New("451 try again later")}
	conn := &smtpConn{sc: stub, timeout: time.Second, log: zap.NewNop()}

	err := conn.Send(context.Background(), &Message{From: "news@org.example", BCC: []string{"a@x.com"}})

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "send", terr.Op)
	assert.Contains(t, err.Error(), "451")
}

func TestSendTimesOutOnHungConnection(t *testing.T) {
	stub := &stubSendCloser{hang: 200 * time.Millisecond}
	conn := &smtpConn{sc: stub, timeout: 20 * time.Millisecond, log: zap.NewNop()}

	start := time.Now()
	err := conn.Send(context.Background(), &Message{From: "news@org.example", BCC: []string{"a@x.com"}})

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The caller is released well before the hung send would have returned.
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestOpenFailsFastAgainstUnreachableServer(t *testing.T) {
	s := &SMTP{
		Host:           "127.0.0.1",
		Port:           1, // nothing listens here
		DialMaxElapsed: 50 * time.Millisecond,
		Log:            zap.NewNop(),
	}

	_, err := s.Open(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
}
