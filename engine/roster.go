package engine

import "github.com/google/uuid"

// Stats holds per-session counters for one participant.
type Stats struct {
	MessagesSent   int
	VotesCast      int
	VotesReceived  int
	RoundsSurvived int
}

// Participant is one player record owned by a session's Roster.
// Role is assigned once at session start; Alive transitions true→false
// exactly once and never back.
type Participant struct {
	ID    uuid.UUID
	Name  string
	Role  Role
	Alive bool
	Host  bool
	Bot   bool
	Stats Stats
}

// Roster maps participant identity to the mutable participant record for
// one session. Iteration helpers walk participants in insertion order so
// resolution is deterministic.
type Roster struct {
	byID  map[uuid.UUID]*Participant
	order []uuid.UUID
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{byID: make(map[uuid.UUID]*Participant)}
}

// Add inserts a participant. Re-adding an existing id is a no-op.
func (r *Roster) Add(p *Participant) {
	if _, ok := r.byID[p.ID]; ok {
		return
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
}

// Remove deletes a participant. Only legal before roles are assigned;
// the session enforces that.
func (r *Roster) Remove(id uuid.UUID) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the participant record, or nil if unknown.
func (r *Roster) Get(id uuid.UUID) *Participant {
	return r.byID[id]
}

// Len returns the total participant count, dead or alive.
func (r *Roster) Len() int { return len(r.order) }

// All returns all participants in insertion order.
func (r *Roster) All() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Alive returns the living participants in insertion order.
func (r *Roster) Alive() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		if p := r.byID[id]; p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// AliveWithRole returns the living participants holding the role.
func (r *Roster) AliveWithRole(role Role) []*Participant {
	var out []*Participant
	for _, p := range r.Alive() {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// CountAliveInFaction returns the number of living participants in the
// faction.
func (r *Roster) CountAliveInFaction(f Faction) int {
	n := 0
	for _, p := range r.Alive() {
		if p.Role.Faction() == f {
			n++
		}
	}
	return n
}

// MarkDead transitions a participant alive→dead. Idempotent; reports
// whether the participant was alive before the call.
func (r *Roster) MarkDead(id uuid.UUID) bool {
	p := r.byID[id]
	if p == nil || !p.Alive {
		return false
	}
	p.Alive = false
	return true
}
