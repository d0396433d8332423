package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// peer is one server-side websocket connection.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) send(event string, data any) {
	frame, err := transport.Encode(event, data, "")
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.WriteMessage(websocket.TextMessage, frame)
}

// chatServer is a scripted chat server. onConnect runs for every accepted
// connection with its 1-based ordinal; onCommand runs for every frame read.
type chatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	onConnect func(n int, p *peer)
	onCommand func(env transport.Envelope, p *peer)

	mu       sync.Mutex
	peers    []*peer
	received []transport.Envelope
}

func newChatServer(t *testing.T) *chatServer {
	s := &chatServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	p := &peer{conn: conn}
	s.mu.Lock()
	s.peers = append(s.peers, p)
	n := len(s.peers)
	onConnect, onCommand := s.onConnect, s.onCommand
	s.mu.Unlock()

	if onConnect != nil {
		onConnect(n, p)
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := transport.Decode(frame)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
		if onCommand != nil {
			onCommand(env, p)
		}
	}
}

func (s *chatServer) commands() []transport.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Envelope(nil), s.received...)
}

func (s *chatServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// dropAll closes every server-side connection abruptly.
func (s *chatServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		_ = p.conn.Close()
	}
}

func newTestClient(t *testing.T, s *chatServer, observers ...func(context.Context, transport.Envelope)) *Client {
	d, err := transport.NewWebsocketDialer(s.srv.URL, "", time.Second)
	require.NoError(t, err)

	opts := Options{Dialer: d}
	for _, o := range observers {
		opts.Observers = append(opts.Observers, o)
	}
	c := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}
