// Package stream fans captain presence updates out to live subscribers
// (the SSE feed riders watch while waiting for a match).
package stream

import (
	"context"
	"sync"
	"time"

	"hailway.org/internal/principal"
)

// PresenceEvent describes one captain availability update.
type PresenceEvent struct {
	CaptainID string              `json:"captain_id"`
	Status    principal.Status    `json:"status"`
	Location  *principal.Location `json:"location,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Stream fan-outs presence events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan PresenceEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan PresenceEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan PresenceEvent {
	ch := make(chan PresenceEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt PresenceEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
