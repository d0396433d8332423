package bus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/L0C8/gooser/internal/v1/types"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of Service the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, msg MirrorPayload) error
}

// Mirror forwards inbound envelopes to Redis without blocking the dispatch
// loop. At most maxInFlight publishes run at once; beyond that events are
// dropped with a warning. Payloads carry a sequence number in dispatch
// order, and API keys never leave the process.
type Mirror struct {
	pub       Publisher
	sessionID string
	seq       atomic.Uint64

	publishChan chan struct{}
	wg          sync.WaitGroup
}

func NewMirror(pub Publisher, sessionID string, maxInFlight int) *Mirror {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Mirror{
		pub:         pub,
		sessionID:   sessionID,
		publishChan: make(chan struct{}, maxInFlight),
	}
}

// SessionID returns the id used in the mirror channel name.
func (m *Mirror) SessionID() string { return m.sessionID }

// Observe has the connection.Observer signature.
func (m *Mirror) Observe(ctx context.Context, env transport.Envelope) {
	msg := MirrorPayload{
		SessionID:  m.sessionID,
		Seq:        m.seq.Add(1),
		Event:      env.Event,
		Data:       redactAPIKeys(env.Event, env.Data),
		ReceivedAt: time.Now().UnixMilli(),
	}

	select {
	case m.publishChan <- struct{}{}:
		m.wg.Add(1)
		go func() {
			defer func() {
				<-m.publishChan
				m.wg.Done()
			}()

			pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()

			if err := m.pub.Publish(pubCtx, msg); err != nil {
				metrics.MirrorPublishes.WithLabelValues("error").Inc()
				return
			}
			metrics.MirrorPublishes.WithLabelValues("success").Inc()
		}()
	default:
		metrics.MirrorPublishes.WithLabelValues("dropped").Inc()
		logging.Warn(ctx, "Dropping Redis mirror publish - queue full", zap.String("event", env.Event))
	}
}

// Close waits for in-flight publishes.
func (m *Mirror) Close() {
	m.wg.Wait()
}

// redactAPIKeys masks the apiKey of every config in apiConfigs and
// apiConfigResult payloads. A payload that cannot be parsed is not mirrored.
func redactAPIKeys(event string, data json.RawMessage) json.RawMessage {
	switch event {
	case types.EventAPIConfigs:
		var configs []map[string]json.RawMessage
		if err := json.Unmarshal(data, &configs); err != nil {
			return nil
		}
		for _, c := range configs {
			maskAPIKey(c)
		}
		return remarshal(configs)
	case types.EventAPIConfigResult:
		var res map[string]json.RawMessage
		if err := json.Unmarshal(data, &res); err != nil {
			return nil
		}
		if raw, ok := res["config"]; ok {
			var config map[string]json.RawMessage
			if err := json.Unmarshal(raw, &config); err != nil {
				return nil
			}
			maskAPIKey(config)
			res["config"] = remarshal(config)
		}
		return remarshal(res)
	default:
		return data
	}
}

func maskAPIKey(obj map[string]json.RawMessage) {
	if _, ok := obj["apiKey"]; ok {
		obj["apiKey"] = json.RawMessage(`"***"`)
	}
}

func remarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}
