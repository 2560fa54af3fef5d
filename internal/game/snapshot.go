package game

import (
	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
)

// SnapshotParticipant is one roster entry as seen by a specific viewer.
// Role is populated only when the viewer is entitled to it.
type SnapshotParticipant struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Alive bool      `json:"alive"`
	Host  bool      `json:"host"`
	Role  string    `json:"role,omitempty"`
}

// Snapshot is a viewer-scoped copy of session state. Dead participants
// have their role exposed to everyone; living ones only to themselves,
// and wolves to fellow wolves. Seer results are delivered as one-time
// notifications and never appear here.
type Snapshot struct {
	Session string                `json:"session"`
	Phase   string                `json:"phase"`
	Round   int                   `json:"round"`
	SelfID  uuid.UUID             `json:"self_id"`
	Role    string                `json:"role,omitempty"`
	Alive   bool                  `json:"alive"`
	Players []SnapshotParticipant `json:"players"`

	// Witch-only, night phase: current consensus victim if the wolves
	// have already converged, and the remaining one-shots.
	PendingVictim   uuid.UUID `json:"pending_victim,omitempty"`
	HealAvailable   bool      `json:"heal_available,omitempty"`
	PoisonAvailable bool      `json:"poison_available,omitempty"`

	PairedWith uuid.UUID `json:"paired_with,omitempty"`

	Acted bool `json:"acted"` // night decision recorded this phase
	Voted bool `json:"voted"`
}

// Snapshot returns the viewer-scoped session state for one participant.
func (s *Session) Snapshot(pid uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	viewer := s.roster.Get(pid)
	if viewer == nil {
		return Snapshot{}, engine.ErrInvalidTarget
	}
	return s.snapshotForLocked(viewer), nil
}

func (s *Session) snapshotForLocked(viewer *engine.Participant) Snapshot {
	snap := Snapshot{
		Session: s.Code,
		Phase:   s.phase.String(),
		Round:   s.round,
		SelfID:  viewer.ID,
		Alive:   viewer.Alive,
		Voted:   s.ledger.HasVoted(viewer.ID),
	}
	if s.phase != PhaseLobby {
		snap.Role = viewer.Role.String()
	}

	viewerIsWolf := viewer.Role.Faction() == engine.FactionWolves && s.phase != PhaseLobby
	ended := s.phase == PhaseEnded
	for _, p := range s.roster.All() {
		sp := SnapshotParticipant{ID: p.ID, Name: p.Name, Alive: p.Alive, Host: p.Host}
		switch {
		case s.phase == PhaseLobby:
		case p.ID == viewer.ID, !p.Alive, ended:
			sp.Role = p.Role.String()
		case viewerIsWolf && p.Role.Faction() == engine.FactionWolves:
			sp.Role = p.Role.String()
		}
		snap.Players = append(snap.Players, sp)
	}

	if viewer.Role == engine.RoleWitch && s.phase == PhaseNight {
		if victim, ok := engine.KillConsensus(s.roster, s.ledger); ok {
			snap.PendingVictim = victim
		}
		snap.HealAvailable = !s.night.HealUsed
		snap.PoisonAvailable = !s.night.PoisonUsed
	}
	if s.night.Paired {
		if s.night.Pair[0] == viewer.ID {
			snap.PairedWith = s.night.Pair[1]
		} else if s.night.Pair[1] == viewer.ID {
			snap.PairedWith = s.night.Pair[0]
		}
	}
	if s.phase == PhaseNight {
		snap.Acted = s.ledger.HasNightEntry(viewer)
	}
	return snap
}
