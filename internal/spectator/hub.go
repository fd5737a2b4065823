// Package spectator fans game snapshots out to read-only observers: a
// local log view, SSH terminals and WebSocket clients. Observers never
// send commands.
package spectator

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

// ErrSpectatorLimit is returned when the hub already has its maximum number
// of subscribers. Nothing changes.
var ErrSpectatorLimit = errors.New("spectator: limit reached")

// Snapshot is one published view of the game.
type Snapshot struct {
	Matrix world.Matrix
	Update protocol.PlayerUpdate
}

// Sink consumes snapshots for one spectator. A returned error ends the
// subscription.
type Sink interface {
	Deliver(s Snapshot) error
}

// Subscription is one registered spectator.
type Subscription struct {
	ID   string
	sink Sink
	mail chan Snapshot
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// offer hands over a snapshot without blocking; a slow spectator only ever
// sees the latest one.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case s.mail <- snap:
		return
	default:
	}
	select {
	case <-s.mail:
	default:
	}
	select {
	case s.mail <- snap:
	default:
	}
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.quit) })
}

// Hub is a publish/subscribe point with a fixed subscriber cap.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	limit  int
	logger *log.Logger
}

// NewHub creates a hub accepting at most limit subscribers.
func NewHub(limit int, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		limit:  limit,
		logger: logger.WithPrefix("spectator"),
	}
}

// Subscribe registers sink and starts delivering to it.
func (h *Hub) Subscribe(sink Sink) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) >= h.limit {
		h.logger.Warn("subscriber rejected", "limit", h.limit)
		return nil, ErrSpectatorLimit
	}
	sub := &Subscription{
		ID:   uuid.NewString(),
		sink: sink,
		mail: make(chan Snapshot, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.subs[sub.ID] = sub
	h.logger.Info("subscriber added", "id", sub.ID, "count", len(h.subs))
	go h.deliver(sub)
	return sub, nil
}

// Unsubscribe removes a subscriber. It reports false for an unknown id.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if !ok {
		return false
	}
	sub.stop()
	h.logger.Info("subscriber removed", "id", id, "count", n)
	return true
}

// Publish offers snap to every subscriber without blocking.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		sub.offer(snap)
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

func (h *Hub) deliver(sub *Subscription) {
	defer close(sub.done)
	for {
		select {
		case <-sub.quit:
			return
		case snap := <-sub.mail:
			if err := sub.sink.Deliver(snap); err != nil {
				h.logger.Debug("delivery failed", "id", sub.ID, "err", err)
				h.Unsubscribe(sub.ID)
				return
			}
		}
	}
}
