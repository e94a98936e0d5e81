// Package ws fans change notifications out to websocket subscribers.
// Delivery is at-most-once best-effort: a subscriber that cannot keep up
// loses events rather than blocking the publisher.
package ws

import (
	"sync"

	"github.com/google/uuid"
)

const (
	EventBusChanged      = "bus.changed"
	EventLocationCreated = "location.created"
	EventLivenessChanged = "liveness.changed"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Subscription is an explicit handle owned by whoever requested it. Cancel
// must be called on teardown; it is safe to call more than once.
type Subscription struct {
	id     string
	events chan Event
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.events)
	})
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscription),
	}
}

// Subscribe registers a new subscriber with a small buffer. The returned
// handle is the only way to unsubscribe; there are no ambient channels.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		events: make(chan Event, 16),
		hub:    h,
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	return sub
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

// Publish delivers the event to every subscriber that has buffer space.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.events <- event:
		default:
			// Slow subscriber; drop. Consumers re-fetch state on every
			// event anyway, so a lost notification self-heals.
		}
	}
}

// PublishBusChanged satisfies the service layer's notifier. An empty id is
// a fleet-wide change and carries no payload.
func (h *Hub) PublishBusChanged(busID string) {
	if busID == "" {
		h.Publish(Event{Type: EventBusChanged})
		return
	}
	h.Publish(Event{Type: EventBusChanged, Payload: map[string]string{"bus_id": busID}})
}

// PublishLocationCreated satisfies the service layer's notifier.
func (h *Hub) PublishLocationCreated(busID string) {
	h.Publish(Event{Type: EventLocationCreated, Payload: map[string]string{"bus_id": busID}})
}

// PublishLivenessChanged satisfies the liveness monitor's publisher.
func (h *Hub) PublishLivenessChanged(activeBusIDs []string) {
	h.Publish(Event{Type: EventLivenessChanged, Payload: map[string][]string{"active_bus_ids": activeBusIDs}})
}

// SubscriberCount is used by the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
