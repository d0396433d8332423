package state

import (
	"sync"
	"testing"

	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](s *Slice[T]) (*[]T, func()) {
	var got []T
	unsub := s.Subscribe(func(v T) { got = append(got, v) })
	return &got, unsub
}

func TestDurable_ReplaysLatestOnSubscribe(t *testing.T) {
	s := NewDurable("test_durable_replay", 0)
	s.Publish(1)
	s.Publish(2)

	got, unsub := collect(s)
	defer unsub()
	assert.Equal(t, []int{2}, *got)

	s.Publish(3)
	assert.Equal(t, []int{2, 3}, *got)
}

func TestDurable_ReplaysInitialValue(t *testing.T) {
	s := NewDurable("test_durable_initial", "start")
	got, unsub := collect(s)
	defer unsub()
	assert.Equal(t, []string{"start"}, *got)
}

func TestTransient_NoReplay(t *testing.T) {
	s := NewTransient[string]("test_transient")
	s.Publish("stale")

	got, unsub := collect(s)
	defer unsub()
	assert.Empty(t, *got)

	s.Publish("fresh")
	assert.Equal(t, []string{"fresh"}, *got)
	assert.Equal(t, "fresh", s.Get())
}

func TestFanOut_SubscribersSeeIdenticalSequences(t *testing.T) {
	s := NewDurable("test_fanout", 0)
	a, unsubA := collect(s)
	b, unsubB := collect(s)
	defer unsubA()
	defer unsubB()

	for i := 1; i <= 5; i++ {
		s.Publish(i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, *a)
	assert.Equal(t, *a, *b)
}

func TestFanOut_SubscriptionOrder(t *testing.T) {
	s := NewTransient[int]("test_order")
	var order []string
	defer s.Subscribe(func(int) { order = append(order, "first") })()
	defer s.Subscribe(func(int) { order = append(order, "second") })()
	defer s.Subscribe(func(int) { order = append(order, "third") })()

	s.Publish(1)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribe(t *testing.T) {
	s := NewDurable("test_unsub", 0)
	got, unsub := collect(s)
	unsub()
	unsub() // idempotent

	s.Publish(1)
	assert.Equal(t, []int{0}, *got)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SliceSubscribers.WithLabelValues("test_unsub")))
}

func TestUnsubscribe_InsideCallback(t *testing.T) {
	s := NewTransient[int]("test_unsub_inside")

	var selfGot, otherGot []int
	var unsubSelf func()
	unsubSelf = s.Subscribe(func(v int) {
		selfGot = append(selfGot, v)
		unsubSelf()
	})
	defer s.Subscribe(func(v int) { otherGot = append(otherGot, v) })()

	s.Publish(1)
	s.Publish(2)

	assert.Equal(t, []int{1}, selfGot)
	assert.Equal(t, []int{1, 2}, otherGot)
}

func TestUnsubscribe_OtherListenerDuringDelivery(t *testing.T) {
	s := NewTransient[int]("test_unsub_other")

	var secondGot []int
	var unsubSecond func()
	defer s.Subscribe(func(int) { unsubSecond() })()
	unsubSecond = s.Subscribe(func(v int) { secondGot = append(secondGot, v) })

	s.Publish(1)
	assert.Empty(t, secondGot, "a listener removed earlier in the same fan-out is skipped")
}

func TestPublish_InsideCallbackIsQueued(t *testing.T) {
	s := NewDurable("test_reentrant", 0)

	var a, b []int
	defer s.Subscribe(func(v int) {
		a = append(a, v)
		if v == 1 {
			s.Publish(2)
		}
	})()
	defer s.Subscribe(func(v int) { b = append(b, v) })()

	s.Publish(1)

	// b must see 1 before 2 even though 2 was published while 1 was in flight
	assert.Equal(t, []int{0, 1, 2}, a)
	assert.Equal(t, []int{0, 1, 2}, b)
	assert.Equal(t, 2, s.Get())
}

func TestSubscribe_InsideCallback(t *testing.T) {
	s := NewDurable("test_subscribe_inside", 0)

	var late []int
	defer s.Subscribe(func(v int) {
		if v == 1 {
			s.Subscribe(func(v int) { late = append(late, v) })
		}
	})()

	s.Publish(1)
	assert.Equal(t, []int{1}, late)
}

func TestUpdate(t *testing.T) {
	s := NewDurable("test_update", []int{})
	got, unsub := collect(s)
	defer unsub()

	s.Update(func(prev []int) []int { return append(prev, 1) })
	s.Update(func(prev []int) []int { return append(prev, 2) })

	assert.Equal(t, []int{1, 2}, s.Get())
	require.Len(t, *got, 3)
}

func TestUpdateIf_SkipsUnchanged(t *testing.T) {
	s := NewDurable("test_update_if", 0)
	got, unsub := collect(s)
	defer unsub()

	s.UpdateIf(func(prev int) (int, bool) { return prev, false })
	s.UpdateIf(func(prev int) (int, bool) { return prev + 5, true })

	assert.Equal(t, 5, s.Get())
	assert.Equal(t, []int{0, 5}, *got)
}

func TestStageThenDeliver(t *testing.T) {
	s := NewDurable("test_stage", 0)
	got, unsub := collect(s)
	defer unsub()

	s.Stage(1)
	s.Stage(2)
	assert.Equal(t, 2, s.Get())
	assert.Equal(t, []int{0}, *got, "staged values are not delivered yet")

	s.Deliver()
	assert.Equal(t, []int{0, 1, 2}, *got)

	s.Deliver()
	assert.Equal(t, []int{0, 1, 2}, *got)
}

func TestReset(t *testing.T) {
	s := NewDurable("test_reset", "initial")
	s.Publish("changed")
	s.Reset()
	assert.Equal(t, "initial", s.Get())
}

func TestPanickingSubscriberIsRecovered(t *testing.T) {
	s := NewTransient[int]("test_panic")
	before := testutil.ToFloat64(metrics.SubscriberPanics.WithLabelValues("test_panic"))

	var got []int
	defer s.Subscribe(func(int) { panic("boom") })()
	defer s.Subscribe(func(v int) { got = append(got, v) })()

	assert.NotPanics(t, func() { s.Publish(7) })
	assert.Equal(t, []int{7}, got)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SubscriberPanics.WithLabelValues("test_panic")))
}

func TestSubscriberGauge(t *testing.T) {
	s := NewTransient[int]("test_gauge")
	u1 := s.Subscribe(func(int) {})
	u2 := s.Subscribe(func(int) {})
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SliceSubscribers.WithLabelValues("test_gauge")))

	u1()
	u2()
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SliceSubscribers.WithLabelValues("test_gauge")))
}

func TestConcurrentPublishers(t *testing.T) {
	s := NewDurable("test_concurrent", 0)

	var mu sync.Mutex
	var a, b []int
	defer s.Subscribe(func(v int) { mu.Lock(); a = append(a, v); mu.Unlock() })()
	defer s.Subscribe(func(v int) { mu.Lock(); b = append(b, v); mu.Unlock() })()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Publish(v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, a, 51)
	assert.Equal(t, a, b)
}
