package queue

import (
	"sync"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// subscriber is one registered event consumer. done is closed by the
// unsubscribe func so a publisher blocked on a full channel can give up.
type subscriber struct {
	ch   chan models.DownloadEvent
	done chan struct{}
}

// eventBus fans job events out to subscribers. Lifecycle events block until
// each subscriber takes delivery or unsubscribes; progress events are
// dropped for subscribers whose buffer is full.
type eventBus struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[*subscriber]struct{})}
}

// subscribe registers a consumer with the given channel buffer. The
// returned func unsubscribes; the channel itself is never closed, so
// consumers select on their own stop signal.
func (b *eventBus) subscribe(buffer int) (<-chan models.DownloadEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscriber{
		ch:   make(chan models.DownloadEvent, buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.done)
		return sub.ch, func() {}
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(sub.done)
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

func (b *eventBus) snapshot() []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	subs := make([]*subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	return subs
}

// publish delivers a lifecycle event to every subscriber, waiting on full
// buffers. Unsubscribing releases a waiting publisher.
func (b *eventBus) publish(e models.DownloadEvent) {
	for _, sub := range b.snapshot() {
		select {
		case sub.ch <- e:
		case <-sub.done:
		}
	}
}

// publishProgress delivers a progress event where there is room, dropping
// it for subscribers that have fallen behind.
func (b *eventBus) publishProgress(e models.DownloadEvent) {
	for _, sub := range b.snapshot() {
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// close detaches every subscriber and rejects future publishes.
func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.done)
		delete(b.subs, sub)
	}
}
