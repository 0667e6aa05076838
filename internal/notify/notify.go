// Package notify broadcasts topic/action/id change events to subscribers.
// Delivery is strictly best-effort: a slow or gone subscriber loses events,
// and nothing here ever fails or delays the triggering operation.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

type Event struct {
	Topic   string `json:"topic"`
	Action  string `json:"action"`
	ID      string `json:"id"`
	Payload any    `json:"payload,omitempty"`
}

type Notifier interface {
	Notify(topic, action, id string, payload any)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(topic, action, id string, payload any) {}

const subscriberBuffer = 16

// Hub fans events out to live subscribers (the SSE endpoint).
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	lg   *zap.SugaredLogger
}

func NewHub(lg *zap.SugaredLogger) *Hub {
	return &Hub{subs: make(map[chan Event]struct{}), lg: lg}
}

func (h *Hub) Notify(topic, action, id string, payload any) {
	ev := Event{Topic: topic, Action: action, ID: id, Payload: payload}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop rather than block the mutation path.
			if h.lg != nil {
				h.lg.Debugw("dropping event for slow subscriber", "topic", topic, "action", action)
			}
		}
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}
