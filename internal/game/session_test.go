package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvale/server/engine"
)

// mockBroadcaster captures session events for assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event
	playerEvents map[uuid.UUID][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]Event)}
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(pid uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[pid] = append(mb.playerEvents[pid], ev)
}

func (mb *mockBroadcaster) findEventByType(t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == t {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) findPlayerEventByType(pid uuid.UUID, t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	evs := mb.playerEvents[pid]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == t {
			return &evs[i]
		}
	}
	return nil
}

// setupNightSession builds a session already in round-1 night with the
// given roles dealt in order. Durations are long enough that no
// deadline fires during a test.
func setupNightSession(t *testing.T, roles ...engine.Role) (*Session, *mockBroadcaster, []uuid.UUID) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.NightDuration = time.Hour
	cfg.DayDuration = time.Hour
	cfg.VoteDuration = time.Hour
	cfg.RevengeDuration = time.Hour
	cfg.TickInterval = time.Hour

	mb := newMockBroadcaster()
	s := NewSession("TESTG", cfg)
	s.BroadcastFn = mb.broadcastFn
	s.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	ids := make([]uuid.UUID, len(roles))
	for i, role := range roles {
		id := uuid.New()
		ids[i] = id
		s.roster.Add(&engine.Participant{
			ID:    id,
			Name:  fmt.Sprintf("p%d", i),
			Role:  role,
			Alive: true,
			Host:  i == 0,
		})
	}

	s.mu.Lock()
	s.round = 1
	s.enterPhaseLocked(PhaseNight, cfg.NightDuration)
	s.mu.Unlock()

	t.Cleanup(s.sched.Stop)
	return s, mb, ids
}

func advanceToVote(s *Session) {
	s.mu.Lock()
	s.phase = PhaseVote
	s.epoch++
	s.ledger = engine.NewActionLedger()
	s.mu.Unlock()
}

func currentEpoch(s *Session) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func TestLobbyStartAuthorization(t *testing.T) {
	s := NewSession("LOBBY", DefaultConfig())
	mb := newMockBroadcaster()
	s.BroadcastFn = mb.broadcastFn
	s.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	t.Cleanup(s.sched.Stop)

	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, s.AddPlayer(ids[i], fmt.Sprintf("p%d", i), nil))
	}

	assert.ErrorIs(t, s.Start(ids[1]), engine.ErrUnauthorized)
	assert.ErrorIs(t, s.Start(ids[0]), engine.ErrNotReady)

	for _, id := range ids[1:] {
		require.NoError(t, s.SetReady(id, true))
	}
	require.NoError(t, s.Start(ids[0]))

	assert.Equal(t, PhaseNight, s.Phase())
	assert.Equal(t, 1, s.Round())
	for _, id := range ids {
		ev := mb.findPlayerEventByType(id, EventPrivateRole)
		require.NotNil(t, ev, "every player gets a private role event")
		assert.NotEmpty(t, ev.Role)
	}
	// starting twice is not legal
	assert.ErrorIs(t, s.Start(ids[0]), engine.ErrInvalidPhase)
}

func TestStartRequiresMinimumPlayers(t *testing.T) {
	s := NewSession("SMALL", DefaultConfig())
	t.Cleanup(s.sched.Stop)
	host := uuid.New()
	require.NoError(t, s.AddPlayer(host, "host", nil))
	require.NoError(t, s.AddPlayer(uuid.New(), "p1", nil))
	assert.ErrorIs(t, s.Start(host), engine.ErrNotEnoughPlayers)
}

// idleSource is a DecisionSource that always abstains.
type idleSource struct{}

func (idleSource) DecideNight(Snapshot, time.Time) (engine.NightActionKind, uuid.UUID) {
	return engine.ActionPass, uuid.Nil
}
func (idleSource) DecideVote(Snapshot, time.Time) uuid.UUID    { return uuid.Nil }
func (idleSource) DecideRevenge(Snapshot, time.Time) uuid.UUID { return uuid.Nil }

func TestBotsNeverHoldHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NightDuration = time.Hour
	cfg.TickInterval = time.Hour
	s := NewSession("BOTSY", cfg)
	t.Cleanup(s.sched.Stop)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddPlayer(uuid.New(), fmt.Sprintf("bot%d", i), idleSource{}))
	}
	human := uuid.New()
	require.NoError(t, s.AddPlayer(human, "human", nil))

	for _, p := range s.roster.All() {
		if p.Bot {
			assert.False(t, p.Host, "bot %s holds the host seat", p.Name)
		}
	}
	require.True(t, s.roster.Get(human).Host, "first human becomes host despite joining last")

	require.NoError(t, s.Start(human))
	assert.Equal(t, PhaseNight, s.Phase())
	require.NoError(t, s.ForceStop(human))
}

func TestHostReassignSkipsBots(t *testing.T) {
	s := NewSession("SKIPB", DefaultConfig())
	t.Cleanup(s.sched.Stop)

	a, b := uuid.New(), uuid.New()
	require.NoError(t, s.AddPlayer(a, "a", nil))
	require.NoError(t, s.AddPlayer(uuid.New(), "bot", idleSource{}))
	require.NoError(t, s.AddPlayer(b, "b", nil))

	require.NoError(t, s.RemovePlayer(a))
	assert.True(t, s.roster.Get(b).Host, "host passes over the bot to the next human")
}

func TestHostReassignsOnLeave(t *testing.T) {
	s := NewSession("LEAVE", DefaultConfig())
	t.Cleanup(s.sched.Stop)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, s.AddPlayer(a, "a", nil))
	require.NoError(t, s.AddPlayer(b, "b", nil))

	require.NoError(t, s.RemovePlayer(a))
	assert.True(t, s.roster.Get(b).Host)
}

func TestNightBarrierResolvesEarly(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleSeer, engine.RoleDoctor, engine.RoleWitch, engine.RoleVillager)
	wolf, seer, doctor, witch, villager := ids[0], ids[1], ids[2], ids[3], ids[4]

	require.NoError(t, s.SubmitNightAction(seer, engine.ActionInspect, wolf))
	require.NoError(t, s.SubmitNightAction(doctor, engine.ActionProtect, doctor))
	require.NoError(t, s.SubmitNightAction(witch, engine.ActionPass, uuid.Nil))
	assert.Equal(t, PhaseNight, s.Phase(), "barrier incomplete without the wolf")

	require.NoError(t, s.SubmitNightAction(wolf, engine.ActionKill, villager))

	assert.Equal(t, PhaseDay, s.Phase(), "last decision triggers resolution")
	assert.False(t, s.roster.Get(villager).Alive)

	death := mb.findEventByType(EventDeaths)
	require.NotNil(t, death)
	require.Len(t, death.Deaths, 1)
	assert.Equal(t, villager, death.Deaths[0].ID)
	assert.Equal(t, engine.RoleVillager.String(), death.Deaths[0].Role, "death reveals the role")

	reveal := mb.findPlayerEventByType(seer, EventPrivateReveal)
	require.NotNil(t, reveal)
	assert.Equal(t, engine.RoleWerewolf.String(), reveal.Role)

	// submissions after resolution are rejected, never queued
	assert.ErrorIs(t, s.SubmitNightAction(wolf, engine.ActionKill, seer), engine.ErrInvalidPhase)
}

func TestNightSubmissionValidation(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleWerewolf, engine.RoleSeer, engine.RoleVillager)
	w1, w2, seer, villager := ids[0], ids[1], ids[2], ids[3]

	assert.ErrorIs(t, s.SubmitNightAction(villager, engine.ActionKill, seer), engine.ErrInvalidRole)
	assert.ErrorIs(t, s.SubmitNightAction(w1, engine.ActionKill, w2), engine.ErrInvalidTarget)
	assert.ErrorIs(t, s.SubmitNightAction(w1, engine.ActionKill, w1), engine.ErrSelfTarget)
	assert.ErrorIs(t, s.SubmitNightAction(seer, engine.ActionInspect, uuid.New()), engine.ErrInvalidTarget)

	s.roster.MarkDead(seer)
	assert.ErrorIs(t, s.SubmitNightAction(seer, engine.ActionInspect, w1), engine.ErrInvalidPhase)
	assert.ErrorIs(t, s.SubmitNightAction(w1, engine.ActionKill, seer), engine.ErrInvalidTarget)
}

func TestNightDeadlineWithPartialLedger(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleSeer, engine.RoleVillager, engine.RoleVillager)

	require.NoError(t, s.SubmitNightAction(ids[1], engine.ActionInspect, ids[0]))
	s.triggerNightResolution(currentEpoch(s))

	assert.Equal(t, PhaseDay, s.Phase())
	for _, id := range ids {
		assert.True(t, s.roster.Get(id).Alive, "absent wolf decision means no kill")
	}
	death := mb.findEventByType(EventDeaths)
	require.NotNil(t, death)
	assert.Empty(t, death.Deaths)
}

func TestStaleResolutionTriggerIsNoOp(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)
	staleEpoch := currentEpoch(s)

	require.NoError(t, s.SubmitNightAction(ids[0], engine.ActionKill, ids[1]))
	require.Equal(t, PhaseDay, s.Phase())
	deadBefore := len(s.deathLog)

	// obsolete deadline firing after the barrier already resolved
	s.triggerNightResolution(staleEpoch)

	assert.Equal(t, PhaseDay, s.Phase())
	assert.Equal(t, deadBefore, len(s.deathLog), "no double resolution")
}

func TestVoteEliminatesStrictMajorityTarget(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)
	wolf := ids[0]
	advanceToVote(s)

	assert.ErrorIs(t, s.SubmitVote(ids[1], ids[1]), engine.ErrSelfTarget)

	require.NoError(t, s.SubmitVote(ids[1], wolf))
	require.NoError(t, s.SubmitVote(ids[2], wolf))
	require.NoError(t, s.SubmitVote(ids[3], ids[1]))
	require.NoError(t, s.SubmitVote(ids[4], wolf))
	require.NoError(t, s.SubmitVote(wolf, ids[1]))

	assert.Equal(t, engine.WinnerVillage, s.Winner())
	assert.Equal(t, PhaseEnded, s.Phase())
	assert.False(t, s.roster.Get(wolf).Alive)

	elim := mb.findEventByType(EventElimination)
	require.NotNil(t, elim)
	require.Len(t, elim.Deaths, 1)
	assert.Equal(t, wolf, elim.Deaths[0].ID)

	ended := mb.findEventByType(EventGameEnded)
	require.NotNil(t, ended)
	assert.Equal(t, engine.WinnerVillage.String(), ended.Winner)
}

func TestVoteTieEliminatesNobody(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)
	advanceToVote(s)

	require.NoError(t, s.SubmitVote(ids[0], ids[1]))
	require.NoError(t, s.SubmitVote(ids[1], ids[0]))
	require.NoError(t, s.SubmitVote(ids[2], ids[1]))
	require.NoError(t, s.SubmitVote(ids[3], ids[0]))

	assert.Equal(t, PhaseNight, s.Phase(), "tie advances straight to the next night")
	assert.Equal(t, 2, s.Round())
	for _, id := range ids {
		assert.True(t, s.roster.Get(id).Alive)
	}
	tie := mb.findEventByType(EventVoteTie)
	require.NotNil(t, tie)
	assert.Len(t, tie.Tied, 2)
}

func TestVoteDeadlineWithoutBallots(t *testing.T) {
	s, _, _ := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)
	advanceToVote(s)

	s.triggerVoteResolution(currentEpoch(s))

	assert.Equal(t, PhaseNight, s.Phase())
	assert.Equal(t, 2, s.Round())
}

func TestHunterRevengeShot(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleHunter, engine.RoleVillager, engine.RoleVillager)
	wolf, hunter := ids[0], ids[1]
	advanceToVote(s)

	require.NoError(t, s.SubmitVote(wolf, hunter))
	require.NoError(t, s.SubmitVote(ids[2], hunter))
	require.NoError(t, s.SubmitVote(ids[3], hunter))
	require.NoError(t, s.SubmitVote(hunter, wolf))

	require.Equal(t, PhaseRevenge, s.Phase(), "eliminated revenge holder opens the revenge window")
	assert.False(t, s.roster.Get(hunter).Alive)

	assert.ErrorIs(t, s.SubmitRevengeShot(ids[2], wolf), engine.ErrUnauthorized)
	assert.ErrorIs(t, s.SubmitRevengeShot(hunter, hunter), engine.ErrSelfTarget)

	require.NoError(t, s.SubmitRevengeShot(hunter, wolf))

	assert.False(t, s.roster.Get(wolf).Alive)
	assert.Equal(t, engine.WinnerVillage, s.Winner())
	assert.Equal(t, PhaseEnded, s.Phase())
	require.NotNil(t, mb.findEventByType(EventGameEnded))
}

func TestRevengeDeadlineSkipsShot(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleHunter, engine.RoleVillager, engine.RoleVillager)
	wolf, hunter := ids[0], ids[1]
	advanceToVote(s)

	require.NoError(t, s.SubmitVote(wolf, hunter))
	require.NoError(t, s.SubmitVote(ids[2], hunter))
	require.NoError(t, s.SubmitVote(ids[3], hunter))
	require.NoError(t, s.SubmitVote(hunter, wolf))
	require.Equal(t, PhaseRevenge, s.Phase())

	s.revengeDeadline(currentEpoch(s))

	assert.Equal(t, PhaseNight, s.Phase(), "expired window skips the shot")
	assert.Equal(t, 2, s.Round())
	assert.True(t, s.roster.Get(wolf).Alive, "nobody else dies")

	// the window is gone for good
	assert.ErrorIs(t, s.SubmitRevengeShot(hunter, wolf), engine.ErrInvalidPhase)
}

func TestNightKillCanEndTheGame(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager)

	require.NoError(t, s.SubmitNightAction(ids[0], engine.ActionKill, ids[1]))

	// one wolf vs one villager is parity
	assert.Equal(t, engine.WinnerWolves, s.Winner())
	assert.Equal(t, PhaseEnded, s.Phase())
	ended := mb.findEventByType(EventGameEnded)
	require.NotNil(t, ended)
	assert.Equal(t, engine.WinnerWolves.String(), ended.Winner)
}

func TestForceStop(t *testing.T) {
	s, mb, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)

	assert.ErrorIs(t, s.ForceStop(ids[1]), engine.ErrUnauthorized)
	require.NoError(t, s.ForceStop(ids[0]))

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, engine.WinnerNone, s.Winner())
	ended := mb.findEventByType(EventGameEnded)
	require.NotNil(t, ended)
	assert.Equal(t, engine.WinnerNone.String(), ended.Winner)

	assert.ErrorIs(t, s.SubmitNightAction(ids[0], engine.ActionKill, ids[1]), engine.ErrInvalidPhase)
}

func TestOnSessionEndHook(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager)

	done := make(chan engine.Winner, 1)
	s.OnSessionEnd = func(code string, w engine.Winner, r *engine.Roster) {
		done <- w
	}

	require.NoError(t, s.SubmitNightAction(ids[0], engine.ActionKill, ids[1]))

	select {
	case w := <-done:
		assert.Equal(t, engine.WinnerWolves, w)
	case <-time.After(time.Second):
		t.Fatal("lifecycle hook never fired")
	}
}

func TestResolverPanicYieldsNoDeaths(t *testing.T) {
	s, _, _ := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleVillager, engine.RoleVillager, engine.RoleVillager)

	s.mu.Lock()
	good := s.roster
	s.roster = nil
	out := s.runNightResolverLocked()
	s.roster = good
	s.mu.Unlock()

	assert.Empty(t, out.Deaths, "a resolver failure produces the safe outcome")
}

func TestSnapshotObfuscation(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleWerewolf, engine.RoleSeer, engine.RoleVillager)
	w1, w2, seer := ids[0], ids[1], ids[2]

	wolfView, err := s.Snapshot(w1)
	require.NoError(t, err)
	seerView, err := s.Snapshot(seer)
	require.NoError(t, err)

	roleOf := func(snap Snapshot, id uuid.UUID) string {
		for _, p := range snap.Players {
			if p.ID == id {
				return p.Role
			}
		}
		t.Fatalf("participant %s missing from snapshot", id)
		return ""
	}

	assert.Equal(t, engine.RoleWerewolf.String(), roleOf(wolfView, w2), "wolves see each other")
	assert.Empty(t, roleOf(wolfView, seer), "wolves do not see village roles")
	assert.Empty(t, roleOf(seerView, w1), "living wolves stay hidden from the village")
	assert.Equal(t, engine.RoleSeer.String(), roleOf(seerView, seer), "self role is visible")

	s.roster.MarkDead(ids[3])
	seerView, err = s.Snapshot(seer)
	require.NoError(t, err)
	assert.Equal(t, engine.RoleVillager.String(), roleOf(seerView, ids[3]), "death reveals the role")
}

func TestSnapshotWitchSeesPendingVictim(t *testing.T) {
	s, _, ids := setupNightSession(t,
		engine.RoleWerewolf, engine.RoleWitch, engine.RoleVillager, engine.RoleVillager)
	wolf, witch, villager := ids[0], ids[1], ids[2]

	require.NoError(t, s.SubmitNightAction(wolf, engine.ActionKill, villager))

	snap, err := s.Snapshot(witch)
	require.NoError(t, err)
	assert.Equal(t, villager, snap.PendingVictim)
	assert.True(t, snap.HealAvailable)
	assert.True(t, snap.PoisonAvailable)
}
