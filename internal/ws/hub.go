// Package ws is the websocket presentation layer: it owns the live
// connections of each session, fans session events out to them, and
// turns inbound client messages into decision submissions.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duskvale/server/internal/cache"
	"github.com/duskvale/server/internal/game"
	"github.com/duskvale/server/internal/models"
	"github.com/duskvale/server/internal/registry"
)

// Hub tracks the connection room of every session and wires each new
// session's broadcast callbacks.
type Hub struct {
	reg *registry.Registry

	mu    sync.RWMutex
	rooms map[string]*room
	log   *logrus.Entry
}

type room struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*models.Player
	journal int64 // action index for the historian journal
}

// NewHub creates a hub over the registry.
func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		reg:   reg,
		rooms: make(map[string]*room),
		log:   logrus.WithField("component", "ws"),
	}
}

// Bind attaches the hub's broadcast plumbing to a freshly created
// session and allocates its room.
func (h *Hub) Bind(s *game.Session) {
	h.mu.Lock()
	h.rooms[s.Code] = &room{players: make(map[uuid.UUID]*models.Player)}
	h.mu.Unlock()

	s.BroadcastFn = func(ev game.Event) { h.broadcast(s.Code, ev) }
	s.BroadcastToPlayerFn = func(pid uuid.UUID, ev game.Event) { h.broadcastTo(s.Code, pid, ev) }
}

// DropRoom releases the connection room after a session is evicted.
func (h *Hub) DropRoom(code string) {
	h.mu.Lock()
	r := h.rooms[code]
	delete(h.rooms, code)
	h.mu.Unlock()
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		p.Close(4000, "session closed")
	}
}

func (h *Hub) room(code string) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[code]
}

// broadcast fans one event out to every connection in the room and
// journals it for the historian.
func (h *Hub) broadcast(code string, ev game.Event) {
	r := h.room(code)
	if r == nil {
		return
	}
	h.journal(r, ev, uuid.Nil)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if err := p.SendJSON(ev); err != nil {
			h.log.WithFields(logrus.Fields{"session": code, "player": p.ID}).
				WithError(err).Debug("broadcast write failed")
		}
	}
}

// broadcastTo delivers a private event to one participant.
func (h *Hub) broadcastTo(code string, pid uuid.UUID, ev game.Event) {
	r := h.room(code)
	if r == nil {
		return
	}
	r.mu.RLock()
	p := r.players[pid]
	r.mu.RUnlock()
	if p == nil {
		return // bot or disconnected participant
	}
	if err := p.SendJSON(ev); err != nil {
		h.log.WithFields(logrus.Fields{"session": code, "player": pid}).
			WithError(err).Debug("private write failed")
	}
}

// journal publishes a public event to the Redis action journal.
// Best-effort and asynchronous; a missing Redis client is a no-op.
func (h *Hub) journal(r *room, ev game.Event, actor uuid.UUID) {
	r.mu.Lock()
	r.journal++
	idx := r.journal
	r.mu.Unlock()

	rec := cache.SessionActionRecord{
		SessionCode: ev.Session,
		ActionIndex: idx,
		ActorID:     actor,
		ActionType:  string(ev.Type),
		Timestamp:   time.Now().UnixMilli(),
	}
	if ev.Phase != "" {
		rec.Payload = map[string]interface{}{"phase": ev.Phase, "round": ev.Round}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishSessionAction(ctx, rec); err != nil {
			h.log.WithField("session", rec.SessionCode).WithError(err).Warn("journal publish failed")
		}
	}()
}

// attach registers a player connection in the session's room.
func (h *Hub) attach(code string, p *models.Player) {
	r := h.room(code)
	if r == nil {
		return
	}
	r.mu.Lock()
	r.players[p.ID] = p
	r.mu.Unlock()
}

// detach removes a player record from the session's room.
func (h *Hub) detach(code string, pid uuid.UUID) {
	r := h.room(code)
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.players, pid)
	r.mu.Unlock()
}

// player finds an existing player record, for reconnects.
func (h *Hub) player(code string, pid uuid.UUID) *models.Player {
	r := h.room(code)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[pid]
}
