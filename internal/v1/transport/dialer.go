package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/L0C8/gooser/internal/v1/auth"
	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const dialBreakerName = "dial"

// Dialer opens a transport connection to the chat server.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebsocketDialer dials the chat server over gorilla/websocket behind a
// circuit breaker, so a server that keeps refusing handshakes fails fast.
type WebsocketDialer struct {
	url    string
	token  string
	dialer *websocket.Dialer
	cb     *gobreaker.CircuitBreaker
}

// NewWebsocketDialer normalises serverURL (http -> ws, https -> wss) and
// prepares the handshake. token may be empty for guest sessions.
func NewWebsocketDialer(serverURL, token string, handshakeTimeout time.Duration) (*WebsocketDialer, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL %q has no host", serverURL)
	}

	st := gobreaker.Settings{
		Name:        dialBreakerName,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to.String()))
		},
	}

	return &WebsocketDialer{
		url:   u.String(),
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		cb: gobreaker.NewCircuitBreaker(st),
	}, nil
}

// URL returns the normalised websocket URL.
func (d *WebsocketDialer) URL() string { return d.url }

func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	d.inspectToken(ctx)

	res, err := d.cb.Execute(func() (interface{}, error) {
		conn, resp, err := d.dialer.DialContext(ctx, d.url, auth.BearerHeader(d.token))
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err)
			}
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.CircuitBreakerFailures.WithLabelValues(dialBreakerName).Inc()
		}
		return nil, fmt.Errorf("failed to dial %s: %w", d.url, err)
	}
	return res.(*websocket.Conn), nil
}

func (d *WebsocketDialer) inspectToken(ctx context.Context) {
	if d.token == "" {
		return
	}
	info, err := auth.InspectToken(d.token)
	if err != nil {
		logging.Debug(ctx, "Auth token is not a readable JWT, sending as-is", zap.Error(err))
		return
	}
	if info.Expired(time.Now()) {
		logging.Warn(ctx, "Auth token has expired, the server will likely reject it",
			zap.String("subject", info.Subject),
			zap.Time("expired_at", info.ExpiresAt),
			zap.String("token", logging.Redact(d.token)),
		)
	}
}
