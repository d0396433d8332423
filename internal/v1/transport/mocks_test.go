package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MockConnection implements Conn
type MockConnection struct {
	ReadMessageFunc  func() (int, []byte, error)
	WriteMessageFunc func(int, []byte) error
	CloseFunc        func() error
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	if m.ReadMessageFunc != nil {
		return m.ReadMessageFunc()
	}
	return 0, nil, errors.New("no read func")
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}
	return nil
}

func (m *MockConnection) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockConnection) SetWriteDeadline(_ time.Time) error {
	return nil
}

type frame struct {
	messageType int
	data        []byte
}

// pipeConn is a Conn whose reads are fed by the test and whose reads fail once
// it is closed, like a real socket.
type pipeConn struct {
	inbound chan frame
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written []frame
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		inbound: make(chan frame, 16),
		closed:  make(chan struct{}),
	}
}

func (p *pipeConn) feed(data string) {
	p.inbound <- frame{messageType: websocket.TextMessage, data: []byte(data)}
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-p.inbound:
		return f.messageType, f.data, nil
	case <-p.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (p *pipeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-p.closed:
		return errors.New("use of closed connection")
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, frame{messageType: messageType, data: data})
	return nil
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) SetWriteDeadline(_ time.Time) error {
	return nil
}

func (p *pipeConn) frames() []frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]frame, len(p.written))
	copy(out, p.written)
	return out
}
