package jobs

import "sync"

// Event types published while a run executes.
const (
	EventSubscribed = "subscribed"
	EventFile       = "file"
	EventCompleted  = "completed"
	EventFailed     = "failed"
)

// Event is one progress notification for a run.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Task  string `json:"task,omitempty"`
	Path  string `json:"path,omitempty"`
	Index int    `json:"index,omitempty"`
	Total int    `json:"total,omitempty"`
	Error string `json:"error,omitempty"`
}

// Terminal reports whether no further events follow e for its run attempt.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

const subscriberBuffer = 32

// Hub fans run events out to subscribers. A subscriber that falls behind
// loses progress events rather than blocking the worker; terminal events
// always arrive, displacing the oldest buffered event when needed.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for runID and a cancel func that
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(runID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[chan Event]struct{})
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[runID], ch)
			if len(h.subs[runID]) == 0 {
				delete(h.subs, runID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to the current subscribers of e.RunID. A nil Hub
// discards events.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[e.RunID] {
		select {
		case ch <- e:
			continue
		default:
		}
		if !e.Terminal() {
			continue
		}
		// Publish is the only sender and holds mu, so after dropping one
		// event the send cannot block.
		select {
		case <-ch:
		default:
		}
		ch <- e
	}
}
