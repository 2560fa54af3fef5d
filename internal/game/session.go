package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duskvale/server/engine"
)

// Phase is the session state machine's state.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseNight
	PhaseDay
	PhaseVote
	PhaseRevenge
	PhaseEnded
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseNight:
		return "night"
	case PhaseDay:
		return "day"
	case PhaseVote:
		return "vote"
	case PhaseRevenge:
		return "revenge"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// OnSessionEndFunc is the callback executed when a session reaches
// PhaseEnded. Winner is WinnerNone on a host-forced stop.
type OnSessionEndFunc func(code string, winner engine.Winner, roster *engine.Roster)

// Session is the state machine for a single game instance. All state is
// guarded by mu; external decisions and scheduler callbacks serialize
// through it. Resolution additionally goes through the phase-transition
// lock of its phase (nightLock for night, voteLock for vote and
// revenge) together with an epoch check, so at most one resolution
// executes per phase no matter how the two triggers race.
type Session struct {
	Code   string
	Config Config

	mu       sync.Mutex
	phase    Phase
	round    int
	epoch    uint64 // increments on every phase entry; stale triggers are no-ops
	roster   *engine.Roster
	ledger   *engine.ActionLedger
	night    engine.NightState
	ready    map[uuid.UUID]bool
	hunterID uuid.UUID // current revenge holder, valid in PhaseRevenge
	winner   engine.Winner
	deathLog []uuid.UUID
	created  time.Time
	started  time.Time
	endedAt  time.Time
	seed     uint64

	nightLock sync.Mutex
	voteLock  sync.Mutex

	sched *PhaseScheduler
	log   *logrus.Entry

	// Communication callbacks, set by the transport before Start.
	BroadcastFn         func(ev Event)
	BroadcastToPlayerFn func(pid uuid.UUID, ev Event)
	OnSessionEnd        OnSessionEndFunc

	sources map[uuid.UUID]DecisionSource
}

// NewSession creates a session in PhaseLobby.
func NewSession(code string, cfg Config) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Session{
		Code:    code,
		Config:  cfg,
		roster:  engine.NewRoster(),
		ledger:  engine.NewActionLedger(),
		ready:   make(map[uuid.UUID]bool),
		created: time.Now(),
		seed:    uint64(time.Now().UnixNano()),
		sched:   NewPhaseScheduler(cfg.TickInterval),
		sources: make(map[uuid.UUID]DecisionSource),
		log:     logrus.WithField("session", code),
	}
}

// SetSeed overrides the role-assignment seed. Test hook; the default is
// time-based.
func (s *Session) SetSeed(seed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Round returns the current round counter.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Winner returns the declared winner, WinnerNone while ongoing.
func (s *Session) Winner() engine.Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// Roster exposes the roster for lifecycle hooks; callers must treat it
// as read-only once the session has ended.
func (s *Session) Roster() *engine.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// PlayerCount returns the number of participants, dead or alive.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Len()
}

// NoteMessage counts one inbound message from the participant. Called
// by the transport for every parsed client message.
func (s *Session) NoteMessage(pid uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.roster.Get(pid); p != nil {
		p.Stats.MessagesSent++
	}
}

// CreatedAt returns when the session record was created.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// StartedAt returns when the session left the lobby (zero if not started).
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// EndedAt returns when the session entered PhaseEnded (zero if running).
func (s *Session) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}

// AddPlayer joins a participant to the lobby. The first human
// participant becomes host; bots never hold the seat, since only a
// human can issue the start and stop commands. A DecisionSource may be
// attached for non-human participants; their decisions go through the
// same submission contract as everyone else's.
func (s *Session) AddPlayer(id uuid.UUID, name string, src DecisionSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return engine.ErrInvalidPhase
	}
	p := &engine.Participant{
		ID:    id,
		Name:  name,
		Alive: true,
		Host:  src == nil && s.hostLocked() == nil,
		Bot:   src != nil,
	}
	s.roster.Add(p)
	if src != nil {
		s.sources[id] = src
	}
	s.log.WithFields(logrus.Fields{"player": id, "name": name, "host": p.Host}).Info("player joined")
	s.fire(Event{Type: EventPlayerJoined, Player: ptr(eventParticipant(p, false))})
	return nil
}

// RemovePlayer drops a participant from the lobby. Host reassigns to
// the oldest remaining human; a bot-only lobby has no host until a
// human joins.
func (s *Session) RemovePlayer(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return engine.ErrInvalidPhase
	}
	p := s.roster.Get(id)
	if p == nil {
		return engine.ErrInvalidTarget
	}
	wasHost := p.Host
	s.roster.Remove(id)
	delete(s.ready, id)
	delete(s.sources, id)
	if wasHost {
		for _, rest := range s.roster.All() {
			if !rest.Bot {
				rest.Host = true
				break
			}
		}
	}
	s.fire(Event{Type: EventPlayerLeft, Player: &EventParticipant{ID: id, Name: p.Name}})
	return nil
}

// hostLocked returns the current host, nil if none. Assumes mu is held.
func (s *Session) hostLocked() *engine.Participant {
	for _, p := range s.roster.All() {
		if p.Host {
			return p
		}
	}
	return nil
}

// SetReady toggles a non-host participant's ready flag in the lobby.
func (s *Session) SetReady(id uuid.UUID, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return engine.ErrInvalidPhase
	}
	p := s.roster.Get(id)
	if p == nil {
		return engine.ErrInvalidTarget
	}
	s.ready[id] = ready
	s.fire(Event{Type: EventPlayerReady, Player: ptr(eventParticipant(p, false))})
	return nil
}

// Start transitions lobby→night: host only, minimum participant count,
// and every non-host participant ready. Roles are dealt from the
// configured composition, the one-shot state and ledger reset, and the
// round counter set to 1.
func (s *Session) Start(requester uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return engine.ErrInvalidPhase
	}
	req := s.roster.Get(requester)
	if req == nil || !req.Host {
		return engine.ErrUnauthorized
	}
	if s.roster.Len() < s.Config.MinPlayers {
		return engine.ErrNotEnoughPlayers
	}
	for _, p := range s.roster.All() {
		if !p.Host && !p.Bot && !s.ready[p.ID] {
			return engine.ErrNotReady
		}
	}

	engine.AssignRoles(s.roster, s.Config.composition(s.roster.Len()), s.seed)
	s.night = engine.NightState{}
	s.deathLog = nil
	s.round = 1
	s.started = time.Now()
	s.log.WithField("players", s.roster.Len()).Info("session started")

	for _, p := range s.roster.All() {
		s.fireTo(p.ID, Event{Type: EventPrivateRole, Role: p.Role.String()})
	}
	s.enterPhaseLocked(PhaseNight, s.Config.NightDuration)
	return nil
}

// ForceStop ends the session with no winner. Host only. Both phase
// locks are free once the scheduler is cancelled and the phase flipped;
// any in-flight resolution trigger sees a stale epoch and backs off.
func (s *Session) ForceStop(requester uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded {
		return engine.ErrInvalidPhase
	}
	req := s.roster.Get(requester)
	if req == nil || !req.Host {
		return engine.ErrUnauthorized
	}
	s.log.Warn("session force-stopped by host")
	s.endLocked(engine.WinnerNone)
	return nil
}

// enterPhaseLocked flips the state machine to the phase, bumps the
// epoch so stale triggers die, resets the ledger, and restarts the
// countdown. Assumes mu is held.
func (s *Session) enterPhaseLocked(p Phase, d time.Duration) {
	s.phase = p
	s.epoch++
	s.ledger = engine.NewActionLedger()
	epoch := s.epoch

	if p == PhaseNight {
		for _, pl := range s.roster.Alive() {
			pl.Stats.RoundsSurvived = s.round - 1
		}
	}

	s.fire(Event{
		Type:      EventPhaseEntered,
		Phase:     p.String(),
		Round:     s.round,
		Remaining: int(d / time.Second),
	})

	onTick := func(remaining time.Duration) {
		s.fireUnlocked(Event{
			Type:      EventPhaseTick,
			Phase:     p.String(),
			Remaining: int(remaining / time.Second),
		})
	}
	var onDeadline func()
	switch p {
	case PhaseNight:
		onDeadline = func() { s.triggerNightResolution(epoch) }
	case PhaseDay:
		onDeadline = func() { s.dayDeadline(epoch) }
	case PhaseVote:
		onDeadline = func() { s.triggerVoteResolution(epoch) }
	case PhaseRevenge:
		onDeadline = func() { s.revengeDeadline(epoch) }
	}
	s.sched.Start(d, onTick, onDeadline)
	s.dispatchSourcesLocked(p, time.Now().Add(d))
}

// dayDeadline moves day→vote. The day phase is a pure discussion
// window; its only exit is the deadline.
func (s *Session) dayDeadline(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseDay || s.epoch != epoch {
		return
	}
	s.enterPhaseLocked(PhaseVote, s.Config.VoteDuration)
}

// endLocked transitions to PhaseEnded from any phase: cancels the
// countdown, records the winner, and notifies the lifecycle consumer.
// Assumes mu is held.
func (s *Session) endLocked(w engine.Winner) {
	s.phase = PhaseEnded
	s.epoch++
	s.winner = w
	s.endedAt = time.Now()
	s.sched.Stop()

	ev := Event{Type: EventGameEnded, Winner: w.String()}
	for _, p := range s.roster.All() {
		ev.Deaths = append(ev.Deaths, eventParticipant(p, true))
	}
	s.fire(ev)
	s.log.WithField("winner", w.String()).Info("session ended")

	if s.OnSessionEnd != nil {
		cb, code, roster := s.OnSessionEnd, s.Code, s.roster
		go cb(code, w, roster)
	}
}

// applyDeathsLocked marks the deaths on the roster, deduplicating
// against the session death history. Returns the participants that
// actually died now. Assumes mu is held.
func (s *Session) applyDeathsLocked(deaths []uuid.UUID) []*engine.Participant {
	var fallen []*engine.Participant
	for _, id := range deaths {
		if s.roster.MarkDead(id) {
			s.deathLog = append(s.deathLog, id)
			fallen = append(fallen, s.roster.Get(id))
		}
	}
	return fallen
}

// fire broadcasts an event to all participants. Assumes mu is held (the
// callback itself must not call back into the session).
func (s *Session) fire(ev Event) {
	ev.Session = s.Code
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

// fireUnlocked is fire for callers not holding mu (scheduler ticks).
func (s *Session) fireUnlocked(ev Event) {
	ev.Session = s.Code
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

// fireTo sends a private event to one participant. Assumes mu is held.
func (s *Session) fireTo(pid uuid.UUID, ev Event) {
	ev.Session = s.Code
	if s.BroadcastToPlayerFn != nil {
		s.BroadcastToPlayerFn(pid, ev)
	}
}

func ptr[T any](v T) *T { return &v }
