package chat_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

const waitTimeout = time.Second

// fakeConn is an in-memory chat.Conn. Messages delivered to the client are
// pushed to out; messages the client "sends" are queued on in.
type fakeConn struct {
	acceptErr   error
	ignoreClose bool

	mu      sync.Mutex
	sendErr error
	got     []chat.Message
	closed  bool

	out       chan chat.Message
	in        chan chat.Message
	recvErr   chan error
	done      chan struct{}
	closeOnce sync.Once
	accepted  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		out:     make(chan chat.Message, 512),
		in:      make(chan chat.Message, 64),
		recvErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acceptErr != nil {
		return c.acceptErr
	}
	c.accepted = true
	return nil
}

func (c *fakeConn) Send(msg chat.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.closed {
		return chat.ErrConnClosed
	}
	c.got = append(c.got, msg)
	c.out <- msg
	return nil
}

func (c *fakeConn) Receive() (chat.Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case err := <-c.recvErr:
		return nil, err
	case <-c.done:
		return nil, chat.ErrConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if !c.ignoreClose {
		c.closeOnce.Do(func() { close(c.done) })
	}
	return nil
}

func (c *fakeConn) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// hangUp simulates the peer going away.
func (c *fakeConn) hangUp() {
	c.recvErr <- errors.New("peer closed")
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) received() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.got...)
}

func expectMessage(t *testing.T, c *fakeConn, want chat.Message) {
	t.Helper()
	select {
	case got := <-c.out:
		require.Equal(t, want, got)
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func expectNoMessage(t *testing.T, c *fakeConn, within time.Duration) {
	t.Helper()
	select {
	case got := <-c.out:
		t.Fatalf("unexpected message %v", got)
	case <-time.After(within):
	}
}

// recordingHandle is a bare chat.Handle used by registry and dispatcher tests.
type recordingHandle struct {
	mu   sync.Mutex
	got  []chat.Message
	err  error
	boom bool
}

func (h *recordingHandle) Send(msg chat.Message) error {
	if h.boom {
		panic("handle exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.got = append(h.got, msg)
	return nil
}

func (h *recordingHandle) Accept() error { return nil }

func (h *recordingHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.got)
}
