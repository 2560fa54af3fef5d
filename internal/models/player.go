// Package models holds the connection-facing records shared between the
// websocket layer and the session registry.
package models

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player binds a participant identity to its live websocket connection.
// Conn is nil for bot-backed participants and for humans who have
// dropped; Connected tracks the latter for reconnect handling.
type Player struct {
	ID        uuid.UUID
	Name      string
	Session   string
	Connected bool

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewPlayer creates a connected player record.
func NewPlayer(id uuid.UUID, name, session string, conn *websocket.Conn) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Session:   session,
		Connected: conn != nil,
		conn:      conn,
	}
}

// Attach swaps in a fresh connection on reconnect.
func (p *Player) Attach(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
	p.Connected = conn != nil
}

// Detach drops the connection without closing it.
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = nil
	p.Connected = false
}

// SendJSON writes one message to the player's connection. A write error
// marks the player disconnected; delivery is best-effort.
func (p *Player) SendJSON(v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.conn.Write(ctx, websocket.MessageText, raw); err != nil {
		p.Connected = false
		return err
	}
	return nil
}

// Close closes the underlying connection with the given status.
func (p *Player) Close(status websocket.StatusCode, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close(status, reason)
		p.conn = nil
	}
	p.Connected = false
}
