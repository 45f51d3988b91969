// Package sse implements a Server-Sent Events broker that tells open
// dashboards when the memory corpus changed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeMemoryCreated    = "memory.created"
	TypeMemoryUpdated    = "memory.updated"
	TypeMemoryDeleted    = "memory.deleted"
	TypeAnalyticsUpdated = "analytics.updated"
	TypeIndexCompleted   = "index.completed"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 25 * time.Second
	// retryMillis is sent once per stream so EventSource reconnects quickly
	// after a restart.
	retryMillis = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// change is a corpus file event waiting to be fanned out.
type change struct {
	kind string
	path string
}

// inbound is what the event loop receives from publishers: exactly one of
// event or change is set.
type inbound struct {
	event  *Event
	change *change
}

// Option customizes a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often an idle stream gets a comment line so proxies
// do not drop it. Zero or less disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the hub. Public methods talk to it
// over channels.
type Broker struct {
	analyticsMin time.Duration
	keepAlive    time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	inboundCh     chan inbound
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits analytics.updated at most once per
// analyticsThrottle.
func NewBroker(analyticsThrottle time.Duration, opts ...Option) *Broker {
	if analyticsThrottle <= 0 {
		analyticsThrottle = 2 * time.Second
	}

	b := &Broker{
		analyticsMin:  analyticsThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		inboundCh:     make(chan inbound, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// hub is the event loop's state. Only run touches it.
type hub struct {
	clients       map[chan []byte]struct{}
	seq           uint64
	lastAnalytics time.Time
	analyticsMin  time.Duration
}

// broadcast stamps the next id on event and offers it to every client.
// A client whose buffer is full misses the event; the stream stays open.
func (h *hub) broadcast(event Event) {
	h.seq++
	raw, err := encode(h.seq, event)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
		}
	}
}

// corpusChanged announces one file event, then analytics.updated unless one
// went out within the throttle window.
func (h *hub) corpusChanged(c change, now time.Time) {
	typ, ok := memoryEventType(c.kind)
	if !ok {
		return
	}
	h.broadcast(Event{Type: typ, Data: map[string]string{"path": c.path}})

	if now.Sub(h.lastAnalytics) < h.analyticsMin {
		return
	}
	h.lastAnalytics = now
	h.broadcast(Event{Type: TypeAnalyticsUpdated, Data: map[string]string{}})
}

func (h *hub) closeAll() {
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{}), analyticsMin: b.analyticsMin}
	for {
		select {
		case <-b.stopCh:
			h.closeAll()
			return

		case ch := <-b.subscribeCh:
			h.clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case in := <-b.inboundCh:
			switch {
			case in.event != nil:
				h.broadcast(*in.event)
			case in.change != nil:
				h.corpusChanged(*in.change, time.Now())
			}

		case resp := <-b.countReqCh:
			resp <- len(h.clients)
		}
	}
}

func memoryEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeMemoryCreated, true
	case "updated":
		return TypeMemoryUpdated, true
	case "deleted":
		return TypeMemoryDeleted, true
	}
	return "", false
}

func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", event.Type, id, payload)), nil
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) send(in inbound) {
	if b.closed.Load() {
		return
	}
	select {
	case b.inboundCh <- in:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.send(inbound{event: &event})
}

// PublishMemoryEvent publishes a corpus change (kind is "created",
// "updated" or "deleted") followed by a throttled analytics.updated.
// Unknown kinds are ignored.
func (b *Broker) PublishMemoryEvent(kind, path string) {
	b.send(inbound{change: &change{kind: kind, path: path}})
}

// PublishIndexResult announces the end of a reindex run.
func (b *Broker) PublishIndexResult(success bool, output string) {
	b.Publish(Event{Type: TypeIndexCompleted, Data: map[string]any{
		"success": success,
		"output":  output,
	}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		ticker := time.NewTicker(b.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
