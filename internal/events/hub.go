package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ats-platform/ats-backend/internal/workflow"
)

const TypeStatusChanged = "application.status_changed"

// StatusChanged is pushed to connected recruiter dashboards whenever a
// transition commits, so other viewers of the same board see the move
// without re-fetching.
type StatusChanged struct {
	Type          string          `json:"type"`
	ApplicationID int64           `json:"application_id"`
	JobID         int64           `json:"job_id"`
	FromStatus    workflow.Status `json:"from_status"`
	ToStatus      workflow.Status `json:"to_status"`
	ChangedBy     string          `json:"changed_by"`
	ChangedAt     time.Time       `json:"changed_at"`
}

// Hub fans events out to subscribers. Slow subscribers are dropped
// rather than allowed to block a transition.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) PublishStatusChanged(ev StatusChanged) {
	ev.Type = TypeStatusChanged
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
	h.mu.Unlock()
}

// SubscriberCount is exposed for tests and the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
