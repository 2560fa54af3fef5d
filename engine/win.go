package engine

// EvaluateWin is the stateless win check over the living roster. The
// village wins the moment no wolf is left; the wolves win when they are
// at least as numerous as the living villagers. Run after every
// death-producing resolution, since night deaths alone can end the game.
func EvaluateWin(r *Roster) Winner {
	wolves := r.CountAliveInFaction(FactionWolves)
	village := r.CountAliveInFaction(FactionVillage)
	switch {
	case wolves == 0:
		return WinnerVillage
	case wolves >= village:
		return WinnerWolves
	}
	return WinnerNone
}
