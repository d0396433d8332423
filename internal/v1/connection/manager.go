package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/L0C8/gooser/internal/v1/state"
	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/L0C8/gooser/internal/v1/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSendBuffer = 256

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("connection manager closed")
)

// DispatchFunc applies one inbound event. It always runs on the dispatch loop.
type DispatchFunc func(ctx context.Context, event string, data json.RawMessage)

// Observer sees every inbound envelope of the current session just before it
// is dispatched.
type Observer func(ctx context.Context, env transport.Envelope)

type Option func(*Manager)

// WithSendBuffer sets the per-session outbound queue size.
func WithSendBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.sendBuffer = n
		}
	}
}

// WithObserver registers an observer for inbound envelopes.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// Manager owns the single transport session of a chat client.
//
// Inbound envelopes are queued by the session read pump and applied one at a
// time by a dispatch loop goroutine, so reducers never run concurrently.
// Every session gets a generation number; envelopes read by a session that
// has since been disconnected or replaced are dropped by the loop.
type Manager struct {
	dialer     transport.Dialer
	status     *state.Slice[types.ConnectionStatus]
	dispatch   DispatchFunc
	onReset    func()
	observers  []Observer
	sendBuffer int

	mu         sync.Mutex
	session    *transport.Session
	generation uint64
	dialing    bool
	dialGen    uint64
	current    types.ConnectionStatus
	closed     bool

	mailbox  *mailbox
	wg       sync.WaitGroup // session pumps
	loopDone chan struct{}
}

// NewManager starts the dispatch loop. onReset runs on the loop when
// Reconnect is called, before Reconnect dials again.
func NewManager(dialer transport.Dialer, status *state.Slice[types.ConnectionStatus], dispatch DispatchFunc, onReset func(), opts ...Option) *Manager {
	m := &Manager{
		dialer:     dialer,
		status:     status,
		dispatch:   dispatch,
		onReset:    onReset,
		sendBuffer: defaultSendBuffer,
		current:    status.Get(),
		mailbox:    newMailbox(),
		loopDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.run()
	return m
}

// Status returns the last published connection status.
func (m *Manager) Status() types.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Connect establishes the session. It is a no-op while a session is active
// or a dial is already in flight.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.session != nil || (m.dialing && m.dialGen == m.generation) {
		m.mu.Unlock()
		return nil
	}
	m.dialing = true
	m.dialGen = m.generation
	gen := m.generation
	m.setStatusLocked(types.StatusConnecting)
	m.mu.Unlock()
	m.status.Deliver()

	conn, err := m.dialer.Dial(ctx)

	m.mu.Lock()
	if m.dialGen == gen {
		m.dialing = false
	}
	if err != nil {
		metrics.DialFailures.Inc()
		if gen == m.generation && m.session == nil {
			m.setStatusLocked(types.StatusDisconnected)
		}
		m.mu.Unlock()
		m.status.Deliver()
		logging.Warn(ctx, "Failed to connect to chat server", zap.Error(err))
		return fmt.Errorf("failed to connect: %w", err)
	}
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		_ = conn.Close()
		if m.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("connect aborted: %w", ErrNotConnected)
	}

	m.generation++
	gen = m.generation
	sess := transport.NewSession(conn, m.sendBuffer)
	m.session = sess
	m.setStatusLocked(types.StatusConnected)
	sess.Start(&m.wg,
		func(env transport.Envelope) { m.mailbox.put(item{gen: gen, env: env}) },
		func(err error) { m.sessionClosed(gen, err) },
	)
	m.mu.Unlock()
	m.status.Deliver()

	logging.Info(ctx, "Connected to chat server", zap.Uint64("generation", gen))
	return nil
}

// Disconnect closes the active session without touching durable slices.
// Events already read from that session but not yet dispatched are dropped.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.detachLocked()
	m.setStatusLocked(types.StatusDisconnected)
	m.mu.Unlock()
	m.status.Deliver()

	if sess != nil {
		sess.Close()
		logging.Info(context.Background(), "Disconnected from chat server")
	}
}

// Reconnect tears down the session, clears the durable slices on the
// dispatch loop and connects again. The reset is ordered ahead of any event
// of the next session, and Reconnect returns only after it has run, so it
// must not be called synchronously from a subscriber callback.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	sess := m.detachLocked()
	if sess != nil {
		m.setStatusLocked(types.StatusDisconnected)
	}
	var reset chan struct{}
	if m.onReset != nil {
		reset = make(chan struct{})
		onReset := m.onReset
		m.mailbox.put(item{task: func() {
			defer close(reset)
			onReset()
		}})
	}
	m.mu.Unlock()
	m.status.Deliver()

	if sess != nil {
		sess.Close()
	}
	metrics.Reconnects.Inc()
	logging.Info(ctx, "Reconnecting to chat server")

	if reset != nil {
		select {
		case <-reset:
		case <-m.loopDone:
			return ErrClosed
		case <-ctx.Done():
			return fmt.Errorf("waiting for state reset: %w", ctx.Err())
		}
	}

	return m.Connect(ctx)
}

// Emit sends an outbound command and returns its correlation id. It never
// blocks: a full send buffer fails with transport.ErrSendBufferFull.
func (m *Manager) Emit(event string, data any) (string, error) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess == nil {
		return "", ErrNotConnected
	}

	id := uuid.NewString()
	frame, err := transport.Encode(event, data, id)
	if err != nil {
		return id, err
	}
	if err := sess.Send(frame); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return id, ErrNotConnected
		}
		return id, err
	}
	return id, nil
}

// Flush blocks until every envelope and task queued before the call has been
// processed by the dispatch loop.
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !m.mailbox.put(item{task: func() { close(done) }}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects, lets the dispatch loop drain and waits for every
// goroutine the manager started.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sess := m.detachLocked()
	m.setStatusLocked(types.StatusDisconnected)
	m.mu.Unlock()
	m.status.Deliver()

	if sess != nil {
		sess.Close()
	}
	m.mailbox.close()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		<-m.loopDone
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for connection shutdown: %w", ctx.Err())
	}
}

func (m *Manager) run() {
	defer close(m.loopDone)
	for {
		batch, ok := m.mailbox.take()
		if !ok {
			return
		}
		for _, it := range batch {
			m.process(it)
		}
	}
}

func (m *Manager) process(it item) {
	if it.task != nil {
		it.task()
		return
	}

	m.mu.Lock()
	current := it.gen == m.generation
	m.mu.Unlock()
	if !current {
		metrics.InboundEvents.WithLabelValues(it.env.Event, "stale").Inc()
		return
	}

	ctx := context.Background()
	for _, o := range m.observers {
		o(ctx, it.env)
	}
	m.dispatch(ctx, it.env.Event, it.env.Data)
}

func (m *Manager) sessionClosed(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.generation || m.session == nil {
		m.mu.Unlock()
		return
	}
	// generation stays: envelopes read before the close are still applied
	m.session = nil
	m.setStatusLocked(types.StatusDisconnected)
	m.mu.Unlock()
	m.status.Deliver()

	logging.Warn(context.Background(), "Connection to chat server closed", zap.Error(err))
}

// detachLocked invalidates the current generation and returns the session to
// close, if any.
func (m *Manager) detachLocked() *transport.Session {
	sess := m.session
	m.session = nil
	m.generation++
	return sess
}

func (m *Manager) setStatusLocked(s types.ConnectionStatus) {
	if m.current == s {
		return
	}
	m.current = s
	m.status.Stage(s)
	metrics.SetConnectionStatus(string(s))
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
