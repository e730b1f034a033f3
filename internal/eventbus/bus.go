// Package eventbus implements the Event Bus (C9): in-process pub/sub with
// single-wildcard-segment topic patterns, grounded on the teacher's
// datasync/chaindatafetcher/event package (EventPublish/EventSubscribe topic
// handles) generalized into a real dispatcher, and on go-ethereum's
// event.Feed/Subscription naming used throughout the teacher
// (chainSub event.Subscription in chaindata_fetcher.go) for the Subscription
// handle shape.
package eventbus

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.EventBus)

// MaxListenersPerTopic caps subscriptions on a single exact topic pattern.
const MaxListenersPerTopic = 20

// Event is the abstract {topic, aggregateId, timestamp, payload} envelope
// from spec.md §3.
type Event struct {
	Topic       string
	AggregateID string
	Timestamp   time.Time
	Payload     any
}

// Handler receives a delivered event. Handlers run synchronously within the
// emitting goroutine's call to Emit but may themselves be asynchronous
// (e.g. spawn their own goroutine) — Bus does not wait for async work.
type Handler func(Event)

type subscription struct {
	id      uint64
	pattern string
	segs    []string
	handler Handler
}

// Bus is the in-process publish/subscribe dispatcher.
type Bus struct {
	mu        sync.RWMutex
	subsByPat map[string][]*subscription
	nextID    uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subsByPat: make(map[string][]*subscription)}
}

// Subscription is a handle returned by On, used to unregister a handler.
type Subscription struct {
	bus     *Bus
	pattern string
	id      uint64
}

// Unsubscribe removes the handler this Subscription was created for.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subsByPat[s.pattern]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.subsByPat[s.pattern] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// On registers handler for topicPattern, which may contain at most one
// wildcard segment written as "*", e.g. "user.*.added" or "user.*". Returns
// an error if the pattern already has MaxListenersPerTopic handlers.
func (b *Bus) On(topicPattern string, handler Handler) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.subsByPat[topicPattern]
	if len(existing) >= MaxListenersPerTopic {
		return nil, fmt.Errorf("eventbus: topic pattern %q already has %d listeners (max %d)", topicPattern, len(existing), MaxListenersPerTopic)
	}

	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		pattern: topicPattern,
		segs:    strings.Split(topicPattern, "."),
		handler: handler,
	}
	b.subsByPat[topicPattern] = append(existing, sub)
	return &Subscription{bus: b, pattern: topicPattern, id: sub.id}, nil
}

// Emit delivers event synchronously to every handler whose pattern matches
// topic. Handlers registered under the same pattern run in registration
// order; the order between buckets of distinct matching patterns is not
// defined (the buckets are visited in map iteration order).
func (b *Bus) Emit(topic string, payload any, aggregateID string) {
	ev := Event{Topic: topic, AggregateID: aggregateID, Timestamp: time.Now(), Payload: payload}
	topicSegs := strings.Split(topic, ".")

	b.mu.RLock()
	var matched []*subscription
	for pattern, subs := range b.subsByPat {
		if matchPattern(strings.Split(pattern, "."), topicSegs) {
			matched = append(matched, subs...)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		func(s *subscription) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("event handler panicked", "topic", topic, "pattern", s.pattern, "recover", r)
				}
			}()
			s.handler(ev)
		}(sub)
	}
}

// matchPattern treats each "*" segment as a wildcard matching any single
// segment at that position. Segment counts must match exactly.
func matchPattern(pattern, topic []string) bool {
	if len(pattern) != len(topic) {
		return false
	}
	for i, p := range pattern {
		if p == "*" {
			continue
		}
		if p != topic[i] {
			return false
		}
	}
	return true
}
