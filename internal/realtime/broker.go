// Package realtime fans out row inserts to live subscribers. Topics name a
// table and a filter, e.g. "notifications:user_id=<uuid>".
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"clientportal/internal/metrics"
)

const (
	TableNotifications     = "notifications"
	TableProjectActivities = "project_activities"

	EventInsert = "INSERT"

	DefaultBuffer = 32
)

// Event is one change delivered to subscribers.
type Event struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// NewInsert encodes record as an INSERT event on table.
func NewInsert(table string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s record: %w", table, err)
	}
	return Event{Table: table, Type: EventInsert, Record: raw}, nil
}

func NotificationsTopic(userID string) string {
	return fmt.Sprintf("%s:user_id=%s", TableNotifications, userID)
}

func ProjectActivitiesTopic(projectID string) string {
	return fmt.Sprintf("%s:project_id=%s", TableProjectActivities, projectID)
}

// Publisher is what writers need from the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event)
}

type subscriber struct {
	ch chan Event
}

// Broker is an in-memory topic broker. Delivery never blocks the publisher:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu      sync.RWMutex
	topics  map[string]map[*subscriber]struct{}
	bufSize int
	relay   Relay
	log     *slog.Logger
}

func NewBroker(bufSize int, log *slog.Logger) *Broker {
	if bufSize <= 0 {
		bufSize = DefaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Broker{
		topics:  make(map[string]map[*subscriber]struct{}),
		bufSize: bufSize,
		log:     log,
	}
}

// SetRelay forwards every local publish to other instances. It must be
// called before the broker is used.
func (b *Broker) SetRelay(r Relay) {
	b.relay = r
}

// Subscribe registers for a topic. The returned channel is closed after
// cancel is called or ctx is done.
func (b *Broker) Subscribe(ctx context.Context, topic string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.bufSize)}

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*subscriber]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.unsubscribe(topic, sub)
			metrics.RealtimeSubscribers.Dec()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.ch, cancel
}

func (b *Broker) unsubscribe(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.topics[topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	// Closing under the write lock means no deliver holds this channel.
	close(sub.ch)
}

// Publish delivers ev to local subscribers of topic and hands it to the
// relay, if any. Callers publish only after the row is committed.
func (b *Broker) Publish(ctx context.Context, topic string, ev Event) {
	metrics.RealtimePublished.WithLabelValues(ev.Table).Inc()
	b.deliver(topic, ev)
	if b.relay != nil {
		if err := b.relay.Forward(ctx, topic, ev); err != nil {
			b.log.Warn("realtime relay publish failed", "topic", topic, "error", err)
		}
	}
}

func (b *Broker) deliver(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RealtimeDropped.WithLabelValues(ev.Table).Inc()
			b.log.Warn("realtime subscriber buffer full, event dropped", "topic", topic, "table", ev.Table)
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
