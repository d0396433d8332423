package connection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/gorilla/websocket"
)

// fakeConn is an in-memory transport.Conn. Frames queued with feed are read
// before a close is observed.
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) feed(frame string) {
	c.inbound <- []byte(frame)
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		return websocket.TextMessage, f, nil
	default:
	}
	select {
	case f := <-c.inbound:
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) SetWriteDeadline(_ time.Time) error { return nil }

func (c *fakeConn) frames() []transport.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.Envelope, 0, len(c.written))
	for _, f := range c.written {
		var env transport.Envelope
		_ = json.Unmarshal(f, &env)
		out = append(out, env)
	}
	return out
}

// fakeDialer hands out queued connections, or err when set.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	dials int
	block chan struct{}
}

func (d *fakeDialer) add(c *fakeConn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conns = append(d.conns, c)
}

func (d *fakeDialer) Dial(ctx context.Context) (transport.Conn, error) {
	d.mu.Lock()
	d.dials++
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no connection queued")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recorder collects dispatched events and reset calls in loop order.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) dispatch(_ context.Context, event string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, event+":"+string(data))
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, "reset")
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}
