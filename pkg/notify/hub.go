// Package notify implements the in-process change broadcast: a
// payload-free signal telling subscribers to re-fetch state. There is
// no diff protocol; the occupancy document is small enough to re-read
// whole.
package notify

import "sync"

type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]chan struct{}),
	}
}

// Subscribe registers a listener and returns its channel plus a cancel
// function. The channel has capacity one, so back-to-back broadcasts
// coalesce into a single pending signal for slow consumers.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan struct{})
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Broadcast signals every subscriber without blocking. A subscriber
// that already has a pending signal is skipped.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close shuts the hub; subscriber channels are closed so readers see
// the hub going away.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
