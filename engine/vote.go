package engine

import "github.com/google/uuid"

// VoteOutcome is the result of resolving one vote phase.
type VoteOutcome struct {
	Eliminated  uuid.UUID
	HasVictim   bool
	Deaths      []uuid.UUID // eliminated participant plus any pair cascade
	Tied        []uuid.UUID // targets sharing the top count when nobody falls
	Counts      map[uuid.UUID]int
	HunterFalls bool // the eliminated participant holds the revenge role
}

// ResolveVote tallies the recorded votes with role weights (the elder
// counts double). The target with the strictly highest weighted count is
// eliminated; a tie at the top eliminates nobody and reports the tied
// targets. The linked-pair cascade applies to the elimination.
func ResolveVote(r *Roster, l *ActionLedger, st *NightState) VoteOutcome {
	out := VoteOutcome{Counts: make(map[uuid.UUID]int)}

	for voter, target := range l.Votes() {
		p := r.Get(voter)
		if p == nil || !p.Alive {
			continue
		}
		out.Counts[target] += p.Role.VoteWeight()
	}

	best := 0
	for _, p := range r.All() {
		c := out.Counts[p.ID]
		if c == 0 {
			continue
		}
		switch {
		case c > best:
			best = c
			out.Eliminated = p.ID
			out.HasVictim = true
			out.Tied = out.Tied[:0]
		case c == best:
			out.HasVictim = false
			if len(out.Tied) == 0 {
				out.Tied = append(out.Tied, out.Eliminated)
			}
			out.Tied = append(out.Tied, p.ID)
		}
	}
	if !out.HasVictim {
		out.Eliminated = uuid.Nil
		return out
	}

	out.Tied = nil
	out.Deaths = PairCascade(st, []uuid.UUID{out.Eliminated})
	if p := r.Get(out.Eliminated); p != nil && p.Role == RoleHunter {
		out.HunterFalls = true
	}
	return out
}
