package game

import (
	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
)

// SubmitNightAction records one night decision. Validation happens
// entirely under mu and mutates nothing on failure. When the recording
// completes the night barrier, resolution is triggered after mu is
// released so the resolver can take the phase lock first.
func (s *Session) SubmitNightAction(pid uuid.UUID, kind engine.NightActionKind, target uuid.UUID) error {
	s.mu.Lock()

	if s.phase != PhaseNight {
		s.mu.Unlock()
		return engine.ErrInvalidPhase
	}
	actor := s.roster.Get(pid)
	if actor == nil || !actor.Alive {
		s.mu.Unlock()
		return engine.ErrInvalidPhase
	}
	if !kind.AllowedFor(actor.Role) {
		s.mu.Unlock()
		return engine.ErrInvalidRole
	}
	if kind != engine.ActionPass {
		if err := s.checkNightTargetLocked(actor, kind, target); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if err := s.ledger.RecordNight(pid, engine.NightDecision{Kind: kind, Target: target}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.fireTo(pid, Event{Type: EventActionAck, Action: kind.String()})

	complete := s.ledger.NightComplete(s.roster, s.round)
	epoch := s.epoch
	s.mu.Unlock()

	if complete {
		s.triggerNightResolution(epoch)
	}
	return nil
}

// checkNightTargetLocked validates the target for a non-pass decision.
// Heal is the one action allowed to reference the pending victim, who
// is otherwise still alive anyway until resolution applies deaths.
func (s *Session) checkNightTargetLocked(actor *engine.Participant, kind engine.NightActionKind, target uuid.UUID) error {
	t := s.roster.Get(target)
	if t == nil || !t.Alive {
		return engine.ErrInvalidTarget
	}
	switch kind {
	case engine.ActionKill:
		if target == actor.ID {
			return engine.ErrSelfTarget
		}
		if t.Role.Faction() == engine.FactionWolves {
			return engine.ErrInvalidTarget
		}
	case engine.ActionInspect, engine.ActionPoison, engine.ActionPair:
		if target == actor.ID {
			return engine.ErrSelfTarget
		}
	}
	return nil
}

// SubmitVote records one weighted vote. Completing the vote barrier
// triggers resolution the same way the deadline does.
func (s *Session) SubmitVote(pid, target uuid.UUID) error {
	s.mu.Lock()

	if s.phase != PhaseVote {
		s.mu.Unlock()
		return engine.ErrInvalidPhase
	}
	voter := s.roster.Get(pid)
	if voter == nil || !voter.Alive {
		s.mu.Unlock()
		return engine.ErrInvalidPhase
	}
	if pid == target {
		s.mu.Unlock()
		return engine.ErrSelfTarget
	}
	if t := s.roster.Get(target); t == nil || !t.Alive {
		s.mu.Unlock()
		return engine.ErrInvalidTarget
	}
	if err := s.ledger.RecordVote(pid, target); err != nil {
		s.mu.Unlock()
		return err
	}
	voter.Stats.VotesCast++
	s.fireTo(pid, Event{Type: EventActionAck, Action: "vote"})

	complete := s.ledger.VotesComplete(s.roster)
	epoch := s.epoch
	s.mu.Unlock()

	if complete {
		s.triggerVoteResolution(epoch)
	}
	return nil
}

// SubmitRevengeShot is the eliminated revenge-holder's single shot.
// Target rules match a kill: alive, existing, not self.
func (s *Session) SubmitRevengeShot(pid, target uuid.UUID) error {
	s.mu.Lock()

	if s.phase != PhaseRevenge {
		s.mu.Unlock()
		return engine.ErrInvalidPhase
	}
	if pid != s.hunterID {
		s.mu.Unlock()
		return engine.ErrUnauthorized
	}
	if pid == target {
		s.mu.Unlock()
		return engine.ErrSelfTarget
	}
	if t := s.roster.Get(target); t == nil || !t.Alive {
		s.mu.Unlock()
		return engine.ErrInvalidTarget
	}
	epoch := s.epoch
	s.mu.Unlock()

	s.resolveRevenge(epoch, target, true)
	return nil
}
