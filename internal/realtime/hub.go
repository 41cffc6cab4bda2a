package realtime

import (
	"context"
	"log/slog"
	"sync"

	"livepoll/internal/domain/vote"
)

const subscriberBuffer = 8

// Hub fans committed tally changes out to the viewers of each poll. Delivery
// is at-most-once: a subscriber that cannot keep up has events dropped rather
// than slowing the publisher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan vote.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan vote.Event]struct{})}
}

// Run consumes the engine's event channel until ctx is canceled.
func (h *Hub) Run(ctx context.Context, events <-chan vote.Event) {
	slog.Info("realtime hub started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("realtime hub stopped")
			return
		case ev := <-events:
			h.Publish(ev)
		}
	}
}

// Subscribe joins the poll's room. The returned cancel func leaves the room
// and must be called exactly once, typically on client disconnect.
func (h *Hub) Subscribe(pollID string) (<-chan vote.Event, func()) {
	ch := make(chan vote.Event, subscriberBuffer)

	h.mu.Lock()
	room, ok := h.rooms[pollID]
	if !ok {
		room = make(map[chan vote.Event]struct{})
		h.rooms[pollID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if room, ok := h.rooms[pollID]; ok {
			delete(room, ch)
			if len(room) == 0 {
				delete(h.rooms, pollID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber of its poll, dropping it
// for subscribers whose buffers are full.
func (h *Hub) Publish(ev vote.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.rooms[ev.PollID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the current viewer count for a poll.
func (h *Hub) Subscribers(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[pollID])
}
