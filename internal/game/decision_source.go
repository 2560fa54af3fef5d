package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
)

// DecisionSource supplies decisions for a participant that has no human
// behind it. Every decision it returns goes through the same submission
// contract as a human's; the session cannot tell the two apart, and an
// illegal decision is rejected the same way.
type DecisionSource interface {
	// DecideNight picks one night action for the participant. A Pass
	// with a Nil target is always legal for a night-acting role.
	DecideNight(snap Snapshot, deadline time.Time) (engine.NightActionKind, uuid.UUID)

	// DecideVote picks an elimination target.
	DecideVote(snap Snapshot, deadline time.Time) uuid.UUID

	// DecideRevenge picks the revenge-shot target, or Nil to skip.
	DecideRevenge(snap Snapshot, deadline time.Time) uuid.UUID
}

// dispatchSourcesLocked hands the new phase to every attached
// DecisionSource with a decision to make. Snapshots are captured under
// mu; the sources run and submit on their own goroutines so a slow or
// blocking source never stalls the state machine. Assumes mu is held.
func (s *Session) dispatchSourcesLocked(p Phase, deadline time.Time) {
	// Cupid's pairing decision is two submissions of the same kind.
	type task struct {
		src   DecisionSource
		snap  Snapshot
		id    uuid.UUID
		night bool
		pairs int
	}
	var tasks []task

	switch p {
	case PhaseNight:
		for _, pl := range s.roster.Alive() {
			src, ok := s.sources[pl.ID]
			if !ok || !pl.Role.ActsAtNight(s.round) {
				continue
			}
			tk := task{src: src, snap: s.snapshotForLocked(pl), id: pl.ID, night: true}
			if pl.Role == engine.RoleCupid {
				tk.pairs = 2
			}
			tasks = append(tasks, tk)
		}
	case PhaseVote:
		for _, pl := range s.roster.Alive() {
			if src, ok := s.sources[pl.ID]; ok {
				tasks = append(tasks, task{src: src, snap: s.snapshotForLocked(pl), id: pl.ID})
			}
		}
	case PhaseRevenge:
		if src, ok := s.sources[s.hunterID]; ok {
			if pl := s.roster.Get(s.hunterID); pl != nil {
				tasks = append(tasks, task{src: src, snap: s.snapshotForLocked(pl), id: pl.ID})
			}
		}
	default:
		return
	}

	for _, tk := range tasks {
		tk := tk
		go func() {
			switch {
			case tk.pairs > 0:
				for i := 0; i < tk.pairs; i++ {
					kind, target := tk.src.DecideNight(tk.snap, deadline)
					if err := s.SubmitNightAction(tk.id, kind, target); err != nil {
						s.log.WithField("player", tk.id).WithError(err).Debug("source pair decision rejected")
					}
				}
			case tk.night:
				kind, target := tk.src.DecideNight(tk.snap, deadline)
				if err := s.SubmitNightAction(tk.id, kind, target); err != nil {
					s.log.WithField("player", tk.id).WithError(err).Debug("source night decision rejected")
				}
			case tk.snap.Phase == PhaseRevenge.String():
				target := tk.src.DecideRevenge(tk.snap, deadline)
				if target == uuid.Nil {
					return
				}
				s.SubmitRevengeShot(tk.id, target)
			default:
				target := tk.src.DecideVote(tk.snap, deadline)
				if err := s.SubmitVote(tk.id, target); err != nil {
					s.log.WithField("player", tk.id).WithError(err).Debug("source vote rejected")
				}
			}
		}()
	}
}
