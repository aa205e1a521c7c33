package scoreboard

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Subscriber is one connected TV display. The websocket writer drains
// send; the hub only ever enqueues without blocking. The send channel is
// never closed, so a late publish after Close goes nowhere instead of
// panicking; done tells the writer to quit.
type Subscriber struct {
	ws   *websocket.Conn // nil in tests
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func NewSubscriber(ws *websocket.Conn) *Subscriber {
	return &Subscriber{
		ws:   ws,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// Close stops the writer and shuts the socket. Safe to call repeatedly.
func (c *Subscriber) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// Hub is the per-address fan-out table. A subscriber follows at most one
// address at a time; subscribing to a second address moves it.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscriber]struct{}
	topics map[*Subscriber]string
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		topics: make(map[*Subscriber]string),
	}
}

// Subscribe registers the connection against the address. Idempotent; the
// address does not need a match yet, a display may join and wait.
func (h *Hub) Subscribe(address string, sub *Subscriber) {
	address = canon(address)

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.topics[sub]; ok {
		if prev == address {
			return
		}
		h.removeLocked(prev, sub)
	}

	set, ok := h.subs[address]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[address] = set
	}
	set[sub] = struct{}{}
	h.topics[sub] = address
}

// Unsubscribe removes the connection from whatever address it follows.
// Safe to call repeatedly and on a never-subscribed connection.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	address, ok := h.topics[sub]
	if !ok {
		return
	}
	h.removeLocked(address, sub)
}

func (h *Hub) removeLocked(address string, sub *Subscriber) {
	if set, ok := h.subs[address]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, address)
		}
	}
	delete(h.topics, sub)
}

// Publish enqueues the message for every current subscriber of the
// address. A subscriber whose buffer is full misses this message rather
// than stalling the rest; a dead connection gets pruned by its reader
// loop, never awaited here.
func (h *Hub) Publish(address string, msg []byte) int {
	address = canon(address)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.subs[address] {
		select {
		case sub.send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Retire drops the address's whole subscriber list and closes the
// connections, so displays on a released address see a clean close
// instead of silence.
func (h *Hub) Retire(address string) {
	address = canon(address)

	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[address]
	delete(h.subs, address)
	for sub := range set {
		delete(h.topics, sub)
		sub.Close()
	}
}

func (h *Hub) Count(address string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[canon(address)])
}
