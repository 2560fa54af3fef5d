package game

import (
	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
)

// triggerNightResolution is the single entry point for ending the
// night, reached both by the last required decision and by the
// scheduler deadline. The nightLock serializes the two; the phase and
// epoch check under mu turns the loser of the race into a no-op.
func (s *Session) triggerNightResolution(epoch uint64) {
	s.nightLock.Lock()
	defer s.nightLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseNight || s.epoch != epoch {
		return
	}
	s.sched.Stop()

	out := s.runNightResolverLocked()

	for _, rv := range out.Reveals {
		s.fireTo(rv.To, Event{
			Type:   EventPrivateReveal,
			Player: &EventParticipant{ID: rv.About, Role: rv.Role.String()},
			Role:   rv.Role.String(),
		})
	}
	if out.PairFormed {
		for _, member := range out.Pair {
			s.fireTo(member, Event{
				Type:   EventPairFormed,
				Player: &EventParticipant{ID: otherPairMember(out.Pair, member)},
			})
		}
	}

	fallen := s.applyDeathsLocked(out.Deaths)
	ev := Event{Type: EventDeaths, Phase: PhaseNight.String(), Round: s.round}
	for _, p := range fallen {
		ev.Deaths = append(ev.Deaths, eventParticipant(p, true))
	}
	s.fire(ev)
	s.log.WithFields(map[string]interface{}{
		"round":  s.round,
		"deaths": len(fallen),
	}).Info("night resolved")

	if w := engine.EvaluateWin(s.roster); w != engine.WinnerNone {
		s.endLocked(w)
		return
	}
	s.enterPhaseLocked(PhaseDay, s.Config.DayDuration)
}

// runNightResolverLocked shields the state machine from a resolver
// failure: a panic is logged and the phase advances with no deaths
// rather than leaving the session stuck mid-night.
func (s *Session) runNightResolverLocked() (out engine.NightOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("night resolver failed, advancing without deaths")
			out = engine.NightOutcome{}
			s.night.ProtectedID = uuid.Nil
		}
	}()
	return engine.ResolveNight(s.roster, s.ledger, &s.night, s.round)
}

// triggerVoteResolution ends the vote phase. Same discipline as the
// night path, on voteLock.
func (s *Session) triggerVoteResolution(epoch uint64) {
	s.voteLock.Lock()
	defer s.voteLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseVote || s.epoch != epoch {
		return
	}
	s.sched.Stop()

	out := s.runVoteResolverLocked()
	for id, weight := range out.Counts {
		if p := s.roster.Get(id); p != nil {
			p.Stats.VotesReceived += weight
		}
	}

	if !out.HasVictim {
		ev := Event{Type: EventVoteTie, Round: s.round}
		for _, id := range out.Tied {
			if p := s.roster.Get(id); p != nil {
				ev.Tied = append(ev.Tied, eventParticipant(p, false))
			}
		}
		s.fire(ev)
		s.log.WithField("round", s.round).Info("vote tied, nobody eliminated")
		s.round++
		s.enterPhaseLocked(PhaseNight, s.Config.NightDuration)
		return
	}

	fallen := s.applyDeathsLocked(out.Deaths)
	ev := Event{Type: EventElimination, Phase: PhaseVote.String(), Round: s.round}
	for _, p := range fallen {
		ev.Deaths = append(ev.Deaths, eventParticipant(p, true))
	}
	s.fire(ev)
	s.log.WithFields(map[string]interface{}{
		"round":      s.round,
		"eliminated": out.Eliminated,
	}).Info("vote resolved")

	if w := engine.EvaluateWin(s.roster); w != engine.WinnerNone {
		s.endLocked(w)
		return
	}
	if out.HunterFalls {
		s.hunterID = out.Eliminated
		s.enterPhaseLocked(PhaseRevenge, s.Config.RevengeDuration)
		return
	}
	s.round++
	s.enterPhaseLocked(PhaseNight, s.Config.NightDuration)
}

func (s *Session) runVoteResolverLocked() (out engine.VoteOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("vote resolver failed, advancing without elimination")
			out = engine.VoteOutcome{}
		}
	}()
	return engine.ResolveVote(s.roster, s.ledger, &s.night)
}

// resolveRevenge closes the revenge window, with or without a shot. The
// holder's submission and the deadline race on voteLock exactly like
// the vote barrier; whichever loses sees a stale epoch.
func (s *Session) resolveRevenge(epoch uint64, target uuid.UUID, shot bool) {
	s.voteLock.Lock()
	defer s.voteLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRevenge || s.epoch != epoch {
		return
	}
	s.sched.Stop()

	if shot {
		deaths := engine.PairCascade(&s.night, []uuid.UUID{target})
		fallen := s.applyDeathsLocked(deaths)
		ev := Event{Type: EventDeaths, Phase: PhaseRevenge.String(), Round: s.round}
		for _, p := range fallen {
			ev.Deaths = append(ev.Deaths, eventParticipant(p, true))
		}
		s.fire(ev)
		s.log.WithField("target", target).Info("revenge shot landed")
		if w := engine.EvaluateWin(s.roster); w != engine.WinnerNone {
			s.endLocked(w)
			return
		}
	} else {
		s.log.Info("revenge window expired without a shot")
	}

	s.hunterID = uuid.Nil
	s.round++
	s.enterPhaseLocked(PhaseNight, s.Config.NightDuration)
}

// revengeDeadline skips the shot when the holder never decides.
func (s *Session) revengeDeadline(epoch uint64) {
	s.resolveRevenge(epoch, uuid.Nil, false)
}

func otherPairMember(pair [2]uuid.UUID, member uuid.UUID) uuid.UUID {
	if pair[0] == member {
		return pair[1]
	}
	return pair[0]
}
