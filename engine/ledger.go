package engine

import "github.com/google/uuid"

// NightDecision is one recorded night action: a kind plus an optional
// target (ActionPass carries none).
type NightDecision struct {
	Kind   NightActionKind
	Target uuid.UUID
}

// ActionLedger accumulates the decisions of the current phase, keyed by
// submitter. A new ledger is built on every phase entry; ledgers are
// never retained across phases.
//
// One entry per submitter per phase, with two documented exceptions: the
// witch holds heal and poison (or a pass) independently, and the cupid
// accumulates up to two distinct pair targets.
type ActionLedger struct {
	night map[uuid.UUID]map[NightActionKind]uuid.UUID
	pairs map[uuid.UUID][]uuid.UUID
	votes map[uuid.UUID]uuid.UUID
}

// NewActionLedger returns an empty ledger for one phase.
func NewActionLedger() *ActionLedger {
	return &ActionLedger{
		night: make(map[uuid.UUID]map[NightActionKind]uuid.UUID),
		pairs: make(map[uuid.UUID][]uuid.UUID),
		votes: make(map[uuid.UUID]uuid.UUID),
	}
}

// RecordNight stores a night decision. Resubmitting the same kind
// overwrites, except ActionPair: a duplicate target is rejected with
// ErrInvalidTarget and a third distinct target with ErrAlreadyActed.
func (l *ActionLedger) RecordNight(submitter uuid.UUID, d NightDecision) error {
	if d.Kind == ActionPair {
		chosen := l.pairs[submitter]
		for _, t := range chosen {
			if t == d.Target {
				return ErrInvalidTarget
			}
		}
		if len(chosen) >= 2 {
			return ErrAlreadyActed
		}
		l.pairs[submitter] = append(chosen, d.Target)
		return nil
	}
	entry := l.night[submitter]
	if entry == nil {
		entry = make(map[NightActionKind]uuid.UUID)
		l.night[submitter] = entry
	}
	entry[d.Kind] = d.Target
	return nil
}

// RecordVote stores a day vote. A second vote from the same voter is
// rejected with ErrAlreadyVoted.
func (l *ActionLedger) RecordVote(voter, target uuid.UUID) error {
	if _, ok := l.votes[voter]; ok {
		return ErrAlreadyVoted
	}
	l.votes[voter] = target
	return nil
}

// HasNightEntry reports whether the submitter has any recorded decision
// counting toward the night barrier. Cupid counts only with both pair
// targets recorded.
func (l *ActionLedger) HasNightEntry(p *Participant) bool {
	if p.Role == RoleCupid {
		return len(l.pairs[p.ID]) == 2
	}
	return len(l.night[p.ID]) > 0
}

// NightComplete reports whether every alive night-acting participant has
// a recorded decision for the round.
func (l *ActionLedger) NightComplete(r *Roster, round int) bool {
	for _, p := range r.Alive() {
		if !p.Role.ActsAtNight(round) {
			continue
		}
		if !l.HasNightEntry(p) {
			return false
		}
	}
	return true
}

// VotesComplete reports whether every alive participant has voted.
func (l *ActionLedger) VotesComplete(r *Roster) bool {
	for _, p := range r.Alive() {
		if _, ok := l.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// kill returns the submitter's kill target, if recorded.
func (l *ActionLedger) kill(submitter uuid.UUID) (uuid.UUID, bool) {
	t, ok := l.night[submitter][ActionKill]
	return t, ok
}

// single returns the target of the first recorded decision of the kind,
// scanning the roster in insertion order for determinism.
func (l *ActionLedger) single(r *Roster, kind NightActionKind) (uuid.UUID, bool) {
	for _, p := range r.All() {
		if t, ok := l.night[p.ID][kind]; ok {
			return t, true
		}
	}
	return uuid.Nil, false
}

// pairTargets returns the recorded pair targets in submission order.
func (l *ActionLedger) pairTargets(r *Roster) []uuid.UUID {
	for _, p := range r.All() {
		if chosen := l.pairs[p.ID]; len(chosen) > 0 {
			return chosen
		}
	}
	return nil
}

// Votes returns a copy of the recorded votes (voter → target).
func (l *ActionLedger) Votes() map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID, len(l.votes))
	for v, t := range l.votes {
		out[v] = t
	}
	return out
}

// HasVoted reports whether the voter already has a recorded vote.
func (l *ActionLedger) HasVoted(voter uuid.UUID) bool {
	_, ok := l.votes[voter]
	return ok
}
