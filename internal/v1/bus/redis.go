package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const breakerName = "redis"

// MirrorPayload is the container published for every inbound event a chat
// client dispatched, so sidecar tools can follow the session. Publishes run
// concurrently and may reach Redis out of order; Seq restores dispatch order.
type MirrorPayload struct {
	SessionID  string          `json:"sessionId"`
	Seq        uint64          `json:"seq"`
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt int64           `json:"receivedAt"` // unix millis
}

// Channel returns the pub/sub channel for a client session.
// Channel schema: "chat:session:{id}"
func Channel(sessionID string) string {
	return fmt.Sprintf("chat:session:%s", sessionID)
}

// Service handles all interaction with Redis.
type Service struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// Client returns the underlying Redis client.
func (s *Service) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// NewService connects to Redis and verifies the connection with a PING.
func NewService(addr, password string) (*Service, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0, // Default DB
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	// Ping to verify connection immediately
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to.String()))
		},
	}

	slog.Info("Connected to Redis Pub/Sub", "addr", addr)
	return &Service{
		client: rdb,
		cb:     gobreaker.NewCircuitBreaker(st),
	}, nil
}

// Publish mirrors one inbound event onto the session channel. With the
// breaker open the event is dropped and nil is returned.
func (s *Service) Publish(ctx context.Context, msg MirrorPayload) error {
	if s == nil || s.client == nil {
		return nil // Mirror disabled
	}
	if msg.ReceivedAt == 0 {
		msg.ReceivedAt = time.Now().UnixMilli()
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal mirror payload: %w", err)
		}

		return nil, s.client.Publish(ctx, Channel(msg.SessionID), payload).Err()
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			metrics.CircuitBreakerFailures.WithLabelValues(breakerName).Inc()
			slog.Warn("Redis Circuit Breaker Open: dropping mirror publish", "sessionID", msg.SessionID, "event", msg.Event)
			return nil // Graceful degradation: drop message, don't crash caller
		}
		slog.Error("Redis Publish Failed", "sessionID", msg.SessionID, "event", msg.Event, "error", err)
		return err
	}

	return nil
}

// Ping checks Redis connectivity using the PING command.
// Used by the readiness check.
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil // Mirror disabled
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			metrics.CircuitBreakerFailures.WithLabelValues(breakerName).Inc()
		}
		return err
	}
	return nil
}

// Close gracefully shuts down the Redis connection
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil // Mirror disabled
	}
	return s.client.Close()
}
