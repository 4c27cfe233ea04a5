// Package fanout distributes conversation events to in-process
// subscribers. Delivery is best effort; a slow subscriber drops events
// rather than stalling the ledger write path.
package fanout

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/valyala/bytebufferpool"

	"hiretalk/pkg/logger"
)

// Event types published on the bus.
const (
	EventMessage = "message"
	EventRead    = "read"
)

// Event is a conversation change delivered to subscribers.
type Event struct {
	Conversation string `json:"conversation"`
	Type         string `json:"type"`
	Seq          uint64 `json:"seq,omitempty"`
	Actor        string `json:"actor,omitempty"`
	Payload      []byte `json:"payload,omitempty"`
}

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hiretalk_fanout_dropped_total",
	Help: "Events dropped because a subscriber queue was full.",
})

// Bus fans events out to subscribers over bounded channels.
type Bus struct {
	mu        sync.RWMutex
	subs      map[int]chan Event
	nextID    int
	capacity  int
	maxPooled int
}

// NewBus returns a bus whose subscriber queues hold capacity events.
// maxPooled bounds the size of encode buffers returned to the shared
// pool; larger ones are discarded.
func NewBus(capacity, maxPooled int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	if maxPooled <= 0 {
		maxPooled = 64 * 1024
	}
	return &Bus{subs: make(map[int]chan Event), capacity: capacity, maxPooled: maxPooled}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.capacity)
	b.subs[id] = ch
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking. Full queues
// count as drops.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			droppedEvents.Inc()
			logger.Warn("fanout_drop", "conversation", ev.Conversation, "type", ev.Type)
		}
	}
}

// PublishJSON encodes payload and publishes it under the given event
// header. Encoding failures are logged and the event is skipped.
func (b *Bus) PublishJSON(conversation, typ string, seq uint64, actor string, payload any) {
	buf := bytebufferpool.Get()
	enc := json.NewEncoder(buf)
	if err := enc.Encode(payload); err != nil {
		bytebufferpool.Put(buf)
		logger.Error("fanout_encode", "error", err.Error(), "conversation", conversation, "type", typ)
		return
	}
	raw := buf.Bytes()
	// Encoder appends a newline; drop it.
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		raw = raw[:n-1]
	}
	body := make([]byte, len(raw))
	copy(body, raw)
	if buf.Len() <= b.maxPooled {
		bytebufferpool.Put(buf)
	}
	b.Publish(Event{Conversation: conversation, Type: typ, Seq: seq, Actor: actor, Payload: body})
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
