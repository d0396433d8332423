package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/L0C8/gooser/internal/v1/state"
	"github.com/L0C8/gooser/internal/v1/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	statusOK        = "ok"
	statusIgnored   = "ignored"
	statusMalformed = "malformed"
)

type handler func(ctx context.Context, data json.RawMessage) error

// Router applies inbound protocol events to the slice store. It is not safe
// for concurrent use; the connection manager calls Dispatch from its single
// dispatch loop.
type Router struct {
	store    *state.Store
	handlers map[string]handler
	tracer   trace.Tracer
}

func New(store *state.Store) *Router {
	r := &Router{
		store:  store,
		tracer: otel.Tracer("github.com/L0C8/gooser/internal/v1/router"),
	}

	r.handlers = map[string]handler{
		types.EventMessages:       replaceInto(types.EventMessages, store.Messages),
		types.EventMessage:        r.handleMessage,
		types.EventMessageDeleted: r.handleMessageDeleted,
		types.EventUsers:          replaceInto(types.EventUsers, store.Users),
		types.EventRoomUsers:      replaceInto(types.EventRoomUsers, store.RoomUsers),
		types.EventRooms:          replaceInto(types.EventRooms, store.Rooms),
		types.EventCharacters:     replaceInto(types.EventCharacters, store.Characters),
		types.EventAPIConfigs:     replaceInto(types.EventAPIConfigs, store.APIConfigs),
		types.EventRoomResult:     r.handleRoomResult,

		types.EventAuthResult:      publishInto(store.AuthResult),
		types.EventAdminResult:     publishInto(store.AdminResult),
		types.EventCharacterResult: publishInto(store.CharacterResult),
		types.EventAPIConfigResult: publishInto(store.APIConfigResult),
	}

	return r
}

// Dispatch decodes data and applies the reducer registered for event.
// Unknown events and malformed payloads are dropped.
func (r *Router) Dispatch(ctx context.Context, event string, data json.RawMessage) {
	h, ok := r.handlers[event]
	if !ok {
		metrics.InboundEvents.WithLabelValues("unknown", statusIgnored).Inc()
		return
	}

	ctx, span := r.tracer.Start(ctx, "router.Dispatch", trace.WithAttributes(attribute.String("chat.event", event)))
	defer span.End()
	ctx = logging.WithEvent(ctx, event)

	start := time.Now()
	err := h(ctx, data)
	metrics.DispatchDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed payload")
		metrics.InboundEvents.WithLabelValues(event, statusMalformed).Inc()
		logging.Debug(ctx, "Dropping malformed inbound event", zap.Error(err))
		return
	}
	metrics.InboundEvents.WithLabelValues(event, statusOK).Inc()
}

func (r *Router) handleMessage(_ context.Context, data json.RawMessage) error {
	var msg types.Message
	if err := decode(data, &msg); err != nil {
		return err
	}
	r.store.Messages.Update(func(prior []types.Message) []types.Message {
		return AppendMessage(prior, msg)
	})
	return nil
}

func (r *Router) handleMessageDeleted(_ context.Context, data json.RawMessage) error {
	var id string
	if err := decode(data, &id); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	r.store.Messages.Update(func(prior []types.Message) []types.Message {
		return DeleteMessage(prior, id)
	})
	return nil
}

func (r *Router) handleRoomResult(ctx context.Context, data json.RawMessage) error {
	var res types.RoomResult
	if err := decode(data, &res); err != nil {
		return err
	}

	r.store.RoomResult.Publish(res)

	r.store.CurrentRoom.UpdateIf(func(prior *types.Room) (*types.Room, bool) {
		next := CurrentRoomAfter(prior, res)
		if next == prior {
			return prior, false
		}
		if next != nil {
			ctx = context.WithValue(ctx, logging.RoomIDKey, next.ID)
		}
		logging.Debug(ctx, "Current room changed", zap.Bool("in_room", next != nil))
		return next, true
	})
	return nil
}

// replaceInto publishes a list snapshot. Entries that fail to decode are
// dropped one by one; only a payload that is not a list at all is malformed.
func replaceInto[T any](event string, s *state.Slice[[]T]) handler {
	return func(ctx context.Context, data json.RawMessage) error {
		var raw []json.RawMessage
		if err := decode(data, &raw); err != nil {
			return err
		}

		next := make([]T, 0, len(raw))
		for i, entry := range raw {
			var v T
			if err := json.Unmarshal(entry, &v); err != nil {
				metrics.SnapshotEntriesDropped.WithLabelValues(event).Inc()
				logging.Debug(ctx, "Dropping invalid snapshot entry", zap.Int("index", i), zap.Error(err))
				continue
			}
			next = append(next, v)
		}
		s.Publish(Replace(next))
		return nil
	}
}

func publishInto[T any](s *state.Slice[T]) handler {
	return func(_ context.Context, data json.RawMessage) error {
		var v T
		if err := decode(data, &v); err != nil {
			return err
		}
		s.Publish(v)
		return nil
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
