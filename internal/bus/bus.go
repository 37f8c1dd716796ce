// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package bus implements the inter-shard event bus: publish-subscribe over
// dotted topic names with full-string matching, concurrent per-event
// handler dispatch, and at-least-once delivery.
package bus

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/metrics"
)

// Event is the envelope delivered to every subscriber of a topic.
type Event struct {
	Type      string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	Source    string                 `json:"source"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// Handler processes a delivered event. A returned error is logged and does
// not prevent delivery to other subscribers of the same topic.
type Handler func(ctx context.Context, ev Event) error

// Bus is a dotted-topic publish-subscribe hub. Handlers for a topic are
// invoked concurrently on emit, and a slow or failing handler never blocks
// or fails delivery to its siblings.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	seq         map[string]int64 // per-topic counter issuing subscription tokens
}

type subscription struct {
	id      int64
	handler Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]*subscription),
		seq:         make(map[string]int64),
	}
}

// Subscribe registers handler for topic and returns a token usable with
// Unsubscribe.
func (b *Bus) Subscribe(topic string, handler Handler) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq[topic]++
	id := b.seq[topic]
	b.subscribers[topic] = append(b.subscribers[topic], &subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes the handler registered under id for topic.
func (b *Bus) Unsubscribe(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to every subscriber currently registered on topic,
// concurrently, and waits for all of them to finish (or fail independently)
// before returning. This is the at-least-once, isolated-failure contract:
// handler failures are logged per-handler, and handlers run on a context
// detached from ctx's cancellation, so Emit always returns nil.
func (b *Bus) Emit(ctx context.Context, eventType string, payload map[string]interface{}, source string) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	ev := Event{Type: eventType, Payload: payload, Source: source, EmittedAt: time.Now()}
	metrics.EventsPublished.WithLabelValues(eventType).Inc()

	if len(subs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, s := range subs {
		s := s
		g.Go(func() error {
			if err := s.handler(gctx, ev); err != nil {
				logger.Errorf("bus: handler for %s failed: %v", eventType, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Topics reports the set of currently subscribed topics, for diagnostics.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.subscribers))
	for t, subs := range b.subscribers {
		if len(subs) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// SubscriberCount reports how many handlers are registered on topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
