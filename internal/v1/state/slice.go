package state

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"go.uber.org/zap"
)

// Slice is an independently observable unit of client state.
//
// A durable slice replays its current value to every new subscriber; a
// transient slice only delivers values published after the subscription.
// Deliveries are queued per slice and drained by whichever goroutine is
// already delivering, so a Publish issued from inside a callback is seen by
// every subscriber after the current value, never interleaved with it.
type Slice[T any] struct {
	name    string
	durable bool
	initial T

	mu        sync.Mutex
	value     T
	listeners []*listener[T]
	queue     []delivery[T]
	draining  bool
}

type listener[T any] struct {
	fn     func(T)
	active atomic.Bool
}

type delivery[T any] struct {
	value   T
	targets []*listener[T]
}

// NewDurable creates a replay-latest slice holding initial until the first publish.
func NewDurable[T any](name string, initial T) *Slice[T] {
	return &Slice[T]{name: name, durable: true, initial: initial, value: initial}
}

// NewTransient creates a no-replay slice.
func NewTransient[T any](name string) *Slice[T] {
	return &Slice[T]{name: name}
}

// Name returns the slice label used in logs and metrics.
func (s *Slice[T]) Name() string { return s.name }

// Get returns the current value. For a transient slice this is the most
// recently published outcome (or the zero value).
func (s *Slice[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe registers fn and returns a function that removes it. The returned
// function may be called any number of times, from any goroutine, including
// from inside fn.
func (s *Slice[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	l := &listener[T]{fn: fn}
	l.active.Store(true)

	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	metrics.SliceSubscribers.WithLabelValues(s.name).Set(float64(len(s.listeners)))
	if s.durable {
		s.queue = append(s.queue, delivery[T]{value: s.value, targets: []*listener[T]{l}})
	}
	s.drainLocked()

	return func() { s.remove(l) }
}

// Publish replaces the value and fans it out to every current subscriber.
func (s *Slice[T]) Publish(v T) {
	s.mu.Lock()
	s.publishLocked(v)
	s.drainLocked()
}

// Update applies fn to the current value and publishes the result atomically
// with respect to other publishers.
func (s *Slice[T]) Update(fn func(T) T) {
	s.UpdateIf(func(prior T) (T, bool) { return fn(prior), true })
}

// UpdateIf is Update for reducers that may leave the value unchanged. Nothing
// is published when fn reports false.
func (s *Slice[T]) UpdateIf(fn func(T) (T, bool)) {
	s.mu.Lock()
	if next, changed := fn(s.value); changed {
		s.publishLocked(next)
	}
	s.drainLocked()
}

// Stage replaces the value and queues its delivery without running any
// callback. Owners that must order publishes under their own lock stage while
// holding it and call Deliver after releasing it.
func (s *Slice[T]) Stage(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(v)
}

// Deliver runs queued deliveries unless another goroutine is already doing so.
func (s *Slice[T]) Deliver() {
	s.mu.Lock()
	s.drainLocked()
}

// Reset publishes the value the slice was created with.
func (s *Slice[T]) Reset() {
	s.Publish(s.initial)
}

func (s *Slice[T]) publishLocked(v T) {
	s.value = v
	if len(s.listeners) == 0 {
		return
	}
	targets := make([]*listener[T], len(s.listeners))
	copy(targets, s.listeners)
	s.queue = append(s.queue, delivery[T]{value: v, targets: targets})
}

// drainLocked must be called with s.mu held and releases it. If another call
// is already draining, the queued deliveries are left to it.
func (s *Slice[T]) drainLocked() {
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, l := range d.targets {
			if l.active.Load() {
				s.invoke(l, d.value)
			}
		}

		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *Slice[T]) invoke(l *listener[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SubscriberPanics.WithLabelValues(s.name).Inc()
			logging.Error(context.Background(), "Recovered from panic in slice subscriber",
				zap.String("slice", s.name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	l.fn(v)
}

func (s *Slice[T]) remove(l *listener[T]) {
	if !l.active.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.listeners {
		if other == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			break
		}
	}
	metrics.SliceSubscribers.WithLabelValues(s.name).Set(float64(len(s.listeners)))
}
