package game

import (
	"time"

	"github.com/duskvale/server/engine"
)

// Config holds the per-session settings supplied at creation time:
// phase durations, the minimum table size, and an optional role
// composition override.
type Config struct {
	MinPlayers      int
	NightDuration   time.Duration
	DayDuration     time.Duration
	VoteDuration    time.Duration
	RevengeDuration time.Duration
	TickInterval    time.Duration

	// Composition overrides the default role composition when non-zero.
	Composition *engine.Composition
}

// DefaultConfig returns the standard phase-duration profile.
func DefaultConfig() Config {
	return Config{
		MinPlayers:      4,
		NightDuration:   90 * time.Second,
		DayDuration:     3 * time.Minute,
		VoteDuration:    60 * time.Second,
		RevengeDuration: 30 * time.Second,
		TickInterval:    time.Second,
	}
}

// FastConfig returns a short profile for quick games and testing.
func FastConfig() Config {
	return Config{
		MinPlayers:      4,
		NightDuration:   30 * time.Second,
		DayDuration:     45 * time.Second,
		VoteDuration:    20 * time.Second,
		RevengeDuration: 10 * time.Second,
		TickInterval:    time.Second,
	}
}

// composition resolves the effective role composition for n participants.
func (c Config) composition(n int) engine.Composition {
	if c.Composition != nil {
		return *c.Composition
	}
	return engine.DefaultComposition(n)
}
