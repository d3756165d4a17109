package collab

import (
	"sync"
	"time"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
)

// Broadcast is the reserved recipient id that fans a message out to every
// registered agent except the sender.
const Broadcast = "broadcast"

// Message is one queued note between agents.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextEntry is a shared-context value tagged with provenance.
type ContextEntry struct {
	Value     any       `json:"value"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscriber receives messages synchronously as they are sent, independent
// of the mailbox queues.
type Subscriber func(msg Message)

// Hub is the collaboration mailbox: per-agent queues, broadcast delivery,
// synchronous pub/sub and a shared mutable context. Safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	agents      map[string]bool
	queues      map[string][]Message
	subscribers map[string]map[string]Subscriber
	shared      map[string]ContextEntry
	logger      logging.Logger
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// NewHub constructs an empty collaboration hub.
func NewHub(optFns ...func(o *HubOptions)) *Hub {
	opts := HubOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Hub{
		agents:      map[string]bool{},
		queues:      map[string][]Message{},
		subscribers: map[string]map[string]Subscriber{},
		shared:      map[string]ContextEntry{},
		logger:      opts.Logger,
	}
}

// RegisterAgent makes an agent addressable. Registration is idempotent.
func (h *Hub) RegisterAgent(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents[agentID] = true
}

// Send queues a message for the recipient, or for every other registered
// agent when to is Broadcast. Subscribers for each recipient and for the
// broadcast channel are notified synchronously before Send returns, whether
// or not the queue is ever polled; a broadcast notifies recipient
// subscribers with their per-recipient copy.
func (h *Hub) Send(from, to, content string) []Message {
	msg := Message{
		ID:        core.NewID(),
		From:      from,
		To:        to,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	h.mu.Lock()
	var recipients []string
	if to == Broadcast {
		for agent := range h.agents {
			if agent != from {
				recipients = append(recipients, agent)
			}
		}
	} else {
		recipients = []string{to}
	}

	delivered := make([]Message, 0, len(recipients))
	for _, recipient := range recipients {
		m := msg
		m.To = recipient
		h.queues[recipient] = append(h.queues[recipient], m)
		delivered = append(delivered, m)
	}

	type pending struct {
		sub Subscriber
		msg Message
	}
	var notify []pending
	if to == Broadcast {
		// Each recipient's own subscribers get the per-recipient copy; the
		// broadcast channel gets the original once.
		for _, m := range delivered {
			for _, sub := range h.subscribers[m.To] {
				notify = append(notify, pending{sub: sub, msg: m})
			}
		}
		for _, sub := range h.subscribers[Broadcast] {
			notify = append(notify, pending{sub: sub, msg: msg})
		}
	} else {
		for _, sub := range h.subscribers[to] {
			notify = append(notify, pending{sub: sub, msg: msg})
		}
		for _, sub := range h.subscribers[Broadcast] {
			notify = append(notify, pending{sub: sub, msg: msg})
		}
	}
	h.mu.Unlock()

	h.logger.Debug("collab message sent", "from", from, "to", to, "recipients", len(delivered))

	for _, p := range notify {
		p.sub(p.msg)
	}

	return delivered
}

// Drain returns and clears the recipient's queued messages. Messages are
// delivered only on explicit polling.
func (h *Hub) Drain(agentID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.queues[agentID]
	delete(h.queues, agentID)
	return msgs
}

// Pending returns the number of queued messages without draining them.
func (h *Hub) Pending(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.queues[agentID])
}

// Subscribe registers a synchronous listener for messages addressed to
// agentID (or to every message when agentID is Broadcast). The returned
// function removes the subscription.
func (h *Hub) Subscribe(agentID string, sub Subscriber) func() {
	id := core.NewID()

	h.mu.Lock()
	if h.subscribers[agentID] == nil {
		h.subscribers[agentID] = map[string]Subscriber{}
	}
	h.subscribers[agentID][id] = sub
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[agentID], id)
	}
}

// SetContext writes a shared-context value recording the writer and time.
func (h *Hub) SetContext(agentID, key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shared[key] = ContextEntry{Value: value, UpdatedBy: agentID, UpdatedAt: time.Now().UTC()}
}

// GetContext reads a shared-context entry.
func (h *Hub) GetContext(key string) (ContextEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.shared[key]
	return entry, ok
}

// SnapshotContext returns a copy of the whole shared context.
func (h *Hub) SnapshotContext() map[string]ContextEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]ContextEntry, len(h.shared))
	for k, v := range h.shared {
		out[k] = v
	}
	return out
}
