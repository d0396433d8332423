package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var (
	ErrClosed         = errors.New("session closed")
	ErrSendBufferFull = errors.New("session send buffer full")
)

// Conn defines the websocket operations a Session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error) // Read the next message from the connection
	WriteMessage(messageType int, data []byte) error     // Write a message to the connection
	Close() error                                        // Close the connection
	SetWriteDeadline(t time.Time) error
}

// Session is one live transport connection to the chat server. A read pump
// decodes frames and hands them to the owner; a write pump drains the send
// buffer. Sessions are single use: once closed they cannot be restarted.
type Session struct {
	conn Conn

	mu     sync.RWMutex // Protects closed and the send channel close
	closed bool
	send   chan []byte
}

// NewSession wraps conn with a send buffer of the given size.
func NewSession(conn Conn, sendBuffer int) *Session {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// Start launches the pumps. onEnvelope is called from the read pump for every
// decoded frame, in arrival order. onClose is called exactly once, after the
// read pump exits, with the error that ended it.
func (s *Session) Start(wg *sync.WaitGroup, onEnvelope func(Envelope), onClose func(error)) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	go func() {
		defer wg.Done()
		s.readPump(onEnvelope, onClose)
	}()
}

// Send queues a frame without blocking.
func (s *Session) Send(frame []byte) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	// Add panic recovery as a safety net
	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "Recovered from panic in Session.Send", zap.Any("panic", r))
			err = ErrClosed
		}
	}()

	select {
	case s.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the session. The write pump flushes queued frames, sends a
// close frame and closes the connection, which ends the read pump.
func (s *Session) Close() {
	s.shutdown()
}

func (s *Session) shutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}

func (s *Session) readPump(onEnvelope func(Envelope), onClose func(error)) {
	var readErr error
	defer func() {
		s.shutdown()
		s.conn.Close()
		if onClose != nil {
			onClose(readErr)
		}
	}()

	for {
		messageType, frame, err := s.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		env, err := Decode(frame)
		if err != nil {
			logging.Debug(context.Background(), "Dropping undecodable frame", zap.Error(err), zap.Int("bytes", len(frame)))
			continue
		}

		onEnvelope(env)
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()

	for frame := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logging.Warn(context.Background(), "error writing frame", zap.Error(err))
			return
		}
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
