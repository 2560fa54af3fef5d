package engine

import "github.com/google/uuid"

// NightState is the session's decision-resolution bag carried across
// phases: the one-shot potion flags, the protected participant (valid
// for exactly one night), the linked pair (formed at most once), and the
// most recent night victim.
type NightState struct {
	HealUsed    bool
	PoisonUsed  bool
	ProtectedID uuid.UUID
	Paired      bool
	Pair        [2]uuid.UUID
	LastVictim  uuid.UUID
}

// NightOutcome is the result of resolving one night.
type NightOutcome struct {
	Deaths     []uuid.UUID // deduplicated, in application order
	Reveals    []Reveal    // seer results, delivered privately
	PairFormed bool
	Pair       [2]uuid.UUID
	Saved      bool // protection or heal negated the wolf kill
	SavedID    uuid.UUID
}

// KillConsensus tallies the kill targets recorded by living wolves. The
// target with strictly the most votes is the proposed victim; a tie
// among the top count means abstention, not a random pick.
func KillConsensus(r *Roster, l *ActionLedger) (uuid.UUID, bool) {
	counts := make(map[uuid.UUID]int)
	for _, w := range r.AliveWithRole(RoleWerewolf) {
		if t, ok := l.kill(w.ID); ok {
			counts[t]++
		}
	}
	var victim uuid.UUID
	best, tied := 0, false
	for _, p := range r.All() {
		c := counts[p.ID]
		if c == 0 {
			continue
		}
		switch {
		case c > best:
			best, victim, tied = c, p.ID, false
		case c == best:
			tied = true
		}
	}
	if best == 0 || tied {
		return uuid.Nil, false
	}
	return victim, true
}

// ResolveNight resolves one night from the roster and ledger. Pure with
// respect to the roster: deaths are reported in the outcome, not applied.
// The state bag is updated in place (one-shot flags, pair formation) and
// its protected id is consumed.
//
// Missing decisions are treated as abstentions, so a deadline-forced
// partial ledger resolves the same way as a complete one.
func ResolveNight(r *Roster, l *ActionLedger, st *NightState, round int) NightOutcome {
	var out NightOutcome

	// 1. Protection.
	if t, ok := l.single(r, ActionProtect); ok {
		st.ProtectedID = t
	}

	// 2. Wolf consensus.
	victim, hasVictim := KillConsensus(r, l)

	// 3. Protection check.
	if hasVictim && victim == st.ProtectedID {
		out.Saved, out.SavedID = true, victim
		hasVictim = false
	}

	// 4. Insight reveals. No mutation, notification only.
	for _, seer := range r.AliveWithRole(RoleSeer) {
		if t, ok := l.night[seer.ID][ActionInspect]; ok {
			if target := r.Get(t); target != nil {
				out.Reveals = append(out.Reveals, Reveal{To: seer.ID, About: t, Role: target.Role})
			}
		}
	}

	// 5. Pairing, round 1 only, at most once per session.
	if round == 1 && !st.Paired {
		if pt := l.pairTargets(r); len(pt) == 2 {
			st.Paired = true
			st.Pair = [2]uuid.UUID{pt[0], pt[1]}
			out.PairFormed = true
			out.Pair = st.Pair
		}
	}

	// 6. Potions. The heal consumes only when it actually negates the
	// pending victim; the poison always lands.
	if t, ok := l.single(r, ActionHeal); ok && !st.HealUsed {
		if hasVictim && t == victim {
			st.HealUsed = true
			out.Saved, out.SavedID = true, victim
			hasVictim = false
		}
	}
	var poisoned uuid.UUID
	hasPoison := false
	if t, ok := l.single(r, ActionPoison); ok && !st.PoisonUsed {
		if target := r.Get(t); target != nil && target.Alive {
			st.PoisonUsed = true
			poisoned, hasPoison = t, true
		}
	}

	// Collect deaths in rule order: wolf kill first, then poison.
	deaths := make([]uuid.UUID, 0, 3)
	if hasVictim {
		deaths = append(deaths, victim)
		st.LastVictim = victim
	}
	if hasPoison && (!hasVictim || poisoned != victim) {
		deaths = append(deaths, poisoned)
	}

	// 7. Linked-pair cascade.
	out.Deaths = PairCascade(st, deaths)

	// 8. The protection is valid for exactly one night.
	st.ProtectedID = uuid.Nil
	return out
}

// PairCascade appends the surviving pair member when exactly one member
// of the linked pair is in the death set. The pair has exactly two
// members, so the cascade applies at most once.
func PairCascade(st *NightState, deaths []uuid.UUID) []uuid.UUID {
	if !st.Paired {
		return deaths
	}
	inSet := [2]bool{}
	for _, d := range deaths {
		for i, m := range st.Pair {
			if d == m {
				inSet[i] = true
			}
		}
	}
	if inSet[0] != inSet[1] {
		if inSet[0] {
			deaths = append(deaths, st.Pair[1])
		} else {
			deaths = append(deaths, st.Pair[0])
		}
	}
	return deaths
}
