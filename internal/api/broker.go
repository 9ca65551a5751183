package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/trailstash/harlens/internal/harlog"
)

const subscriberBufSize = 256

// Broker fans live capture entries out to all stream subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan []byte
	nextID      atomic.Int64
}

// NewBroker creates an entry stream broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan []byte),
	}
}

// Subscribe registers a new client. Returns the subscriber ID and a channel
// of serialized entries. The channel is buffered; slow consumers have
// entries dropped.
func (b *Broker) Subscribe() (int64, <-chan []byte) {
	id := b.nextID.Add(1)
	ch := make(chan []byte, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// PublishEntry serializes an entry and sends it to all subscribers.
// Non-blocking: slow clients have entries dropped.
func (b *Broker) PublishEntry(entry harlog.Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		slog.Debug("stream entry marshal failed", "error", err)
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
