package connection

import (
	"sync"

	"github.com/L0C8/gooser/internal/v1/transport"
)

// item is either an inbound envelope tagged with the session generation that
// read it, or a task to run on the dispatch loop.
type item struct {
	gen  uint64
	env  transport.Envelope
	task func()
}

// mailbox is an unbounded FIFO between session read pumps and the dispatch
// loop. Read pumps never block on a slow subscriber.
type mailbox struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// put appends it and reports whether the mailbox still accepts work.
func (b *mailbox) put(it item) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.items = append(b.items, it)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
	return true
}

// take blocks until items are available and returns all of them. It returns
// false once the mailbox is closed and drained.
func (b *mailbox) take() ([]item, bool) {
	for {
		b.mu.Lock()
		if len(b.items) > 0 {
			batch := b.items
			b.items = nil
			b.mu.Unlock()
			return batch, true
		}
		if b.closed {
			b.mu.Unlock()
			return nil, false
		}
		b.mu.Unlock()
		<-b.signal
	}
}

func (b *mailbox) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}
