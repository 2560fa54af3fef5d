package game

import (
	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
)

// EventType represents the type of a session event delivered to the
// presentation layer.
type EventType string

// Constants defining the session event types.
const (
	EventPlayerJoined  EventType = "player_joined"   // Public: a participant entered the lobby.
	EventPlayerLeft    EventType = "player_left"     // Public: a participant left the lobby.
	EventPlayerReady   EventType = "player_ready"    // Public: a participant toggled ready.
	EventPhaseEntered  EventType = "phase_entered"   // Public: new phase, duration, round.
	EventPhaseTick     EventType = "phase_tick"      // Public: countdown tick.
	EventDeaths        EventType = "death_occurred"  // Public: night death list.
	EventElimination   EventType = "elimination"     // Public: vote elimination.
	EventVoteTie       EventType = "vote_tie"        // Public: tied targets, nobody eliminated.
	EventActionAck     EventType = "action_ack"      // Private: decision recorded.
	EventPrivateRole   EventType = "private_role"    // Private: your assigned role.
	EventPrivateReveal EventType = "private_reveal"  // Private: seer result.
	EventPairFormed    EventType = "pair_formed"     // Private: you are one of the linked pair.
	EventGameEnded     EventType = "game_ended"      // Public: winner declared (or none on force stop).
	EventError         EventType = "error"           // Private: rejected command.
)

// EventParticipant identifies a participant within an event payload.
type EventParticipant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role,omitempty"` // revealed on death and game end
}

// Event is the structure broadcast for session state changes. Private
// events are delivered through BroadcastToPlayerFn only.
type Event struct {
	Type      EventType          `json:"type"`
	Session   string             `json:"session,omitempty"`
	Phase     string             `json:"phase,omitempty"`
	Round     int                `json:"round,omitempty"`
	Remaining int                `json:"remaining,omitempty"` // seconds left in phase
	Player    *EventParticipant  `json:"player,omitempty"`
	Deaths    []EventParticipant `json:"deaths,omitempty"`
	Tied      []EventParticipant `json:"tied,omitempty"`
	Role      string             `json:"role,omitempty"`
	Winner    string             `json:"winner,omitempty"`
	Action    string             `json:"action,omitempty"`
}

// eventParticipant builds the payload identity for a roster participant,
// revealing the role when asked.
func eventParticipant(p *engine.Participant, revealRole bool) EventParticipant {
	ep := EventParticipant{ID: p.ID, Name: p.Name}
	if revealRole {
		ep.Role = p.Role.String()
	}
	return ep
}
