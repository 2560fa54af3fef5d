// Package bot provides a DecisionSource that plays random legal moves.
// It exists so lobbies can be filled out and the session code exercised
// end to end without human participants.
package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duskvale/server/engine"
	"github.com/duskvale/server/internal/game"
)

// RandomSource picks uniformly among plausible targets. It reads only
// the snapshot it is handed, so it knows exactly what a human client
// would know.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a source seeded from the clock.
func New() *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded creates a deterministic source for tests.
func NewSeeded(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

// DecideNight picks the role's night action with a random target.
func (b *RandomSource) DecideNight(snap game.Snapshot, _ time.Time) (engine.NightActionKind, uuid.UUID) {
	switch snap.Role {
	case engine.RoleWerewolf.String():
		return engine.ActionKill, b.pick(snap, func(p game.SnapshotParticipant) bool {
			return p.Role != engine.RoleWerewolf.String()
		})
	case engine.RoleSeer.String():
		return engine.ActionInspect, b.pick(snap, nil)
	case engine.RoleDoctor.String():
		// the doctor may guard anyone, including itself
		return engine.ActionProtect, b.pickAny(snap)
	case engine.RoleWitch.String():
		if snap.HealAvailable && snap.PendingVictim != uuid.Nil && b.coin() {
			return engine.ActionHeal, snap.PendingVictim
		}
		if snap.PoisonAvailable && b.coin() {
			return engine.ActionPoison, b.pick(snap, nil)
		}
		return engine.ActionPass, uuid.Nil
	case engine.RoleCupid.String():
		// called twice; distinct random picks usually land a valid pair,
		// and the deadline covers the collisions
		return engine.ActionPair, b.pick(snap, nil)
	}
	return engine.ActionPass, uuid.Nil
}

// DecideVote votes for a random living participant other than itself.
func (b *RandomSource) DecideVote(snap game.Snapshot, _ time.Time) uuid.UUID {
	return b.pick(snap, nil)
}

// DecideRevenge shoots a random living participant.
func (b *RandomSource) DecideRevenge(snap game.Snapshot, _ time.Time) uuid.UUID {
	return b.pick(snap, nil)
}

// pick selects a random living participant excluding self, optionally
// filtered further. Returns Nil when nobody qualifies.
func (b *RandomSource) pick(snap game.Snapshot, keep func(game.SnapshotParticipant) bool) uuid.UUID {
	var pool []uuid.UUID
	for _, p := range snap.Players {
		if !p.Alive || p.ID == snap.SelfID {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		pool = append(pool, p.ID)
	}
	if len(pool) == 0 {
		return uuid.Nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return pool[b.rng.Intn(len(pool))]
}

// pickAny is pick including self.
func (b *RandomSource) pickAny(snap game.Snapshot) uuid.UUID {
	var pool []uuid.UUID
	for _, p := range snap.Players {
		if p.Alive {
			pool = append(pool, p.ID)
		}
	}
	if len(pool) == 0 {
		return uuid.Nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return pool[b.rng.Intn(len(pool))]
}

func (b *RandomSource) coin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(2) == 0
}
