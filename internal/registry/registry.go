// Package registry tracks every live session by join code and owns
// their end-of-life: finished sessions stay visible for a grace period,
// lobbies that never fill are dropped, and lifecycle hooks notify the
// persistence collaborators.
package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duskvale/server/engine"
	"github.com/duskvale/server/internal/game"
)

// ErrNotFound is returned when no session matches the join code.
var ErrNotFound = errors.New("session not found")

// ErrFull is returned when the registry refuses to create more sessions.
var ErrFull = errors.New("session limit reached")

const codeLen = 5

// Hooks receives session lifecycle transitions. All callbacks are
// optional and invoked outside the registry lock.
type Hooks struct {
	OnCreated func(s *game.Session)
	OnStarted func(s *game.Session)
	OnEnded   func(code string, winner engine.Winner, roster *engine.Roster)
	OnEvicted func(code string)
}

// Registry is the concurrency-safe session map. Sessions share nothing
// with each other; the registry lock covers only the map itself.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session

	maxSessions int
	finishedTTL time.Duration
	idleTTL     time.Duration
	hooks       Hooks
	log         *logrus.Entry
}

// Options configures registry limits and eviction windows.
type Options struct {
	MaxSessions int           // 0 means unlimited
	FinishedTTL time.Duration // grace period for viewing results
	IdleTTL     time.Duration // empty-lobby lifetime
}

// New creates a registry.
func New(opts Options, hooks Hooks) *Registry {
	if opts.FinishedTTL <= 0 {
		opts.FinishedTTL = 10 * time.Minute
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 15 * time.Minute
	}
	return &Registry{
		sessions:    make(map[string]*game.Session),
		maxSessions: opts.MaxSessions,
		finishedTTL: opts.FinishedTTL,
		idleTTL:     opts.IdleTTL,
		hooks:       hooks,
		log:         logrus.WithField("component", "registry"),
	}
}

// Create allocates a session under a fresh join code.
func (r *Registry) Create(cfg game.Config) (*game.Session, error) {
	r.mu.Lock()
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.mu.Unlock()
		return nil, ErrFull
	}
	code := newCode()
	for _, taken := r.sessions[code]; taken; _, taken = r.sessions[code] {
		code = newCode()
	}
	s := game.NewSession(code, cfg)
	if r.hooks.OnEnded != nil {
		s.OnSessionEnd = r.hooks.OnEnded
	}
	r.sessions[code] = s
	r.mu.Unlock()

	r.log.WithField("session", code).Info("session created")
	if r.hooks.OnCreated != nil {
		r.hooks.OnCreated(s)
	}
	return s, nil
}

// NotifyStarted reports a lobby→night transition to the lifecycle
// hooks. The transport calls this after a successful start command.
func (r *Registry) NotifyStarted(s *game.Session) {
	if r.hooks.OnStarted != nil {
		r.hooks.OnStarted(s)
	}
}

// Get looks a session up by its join code.
func (r *Registry) Get(code string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict removes a session from the map immediately.
func (r *Registry) Evict(code string) {
	r.mu.Lock()
	_, ok := r.sessions[code]
	delete(r.sessions, code)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.log.WithField("session", code).Info("session evicted")
	if r.hooks.OnEvicted != nil {
		r.hooks.OnEvicted(code)
	}
}

// Sweep evicts sessions past their grace period: finished ones after
// finishedTTL and lobbies that sit empty after idleTTL. Returns the
// evicted codes.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.RLock()
	var expired []string
	for code, s := range r.sessions {
		switch s.Phase() {
		case game.PhaseEnded:
			if now.Sub(s.EndedAt()) > r.finishedTTL {
				expired = append(expired, code)
			}
		case game.PhaseLobby:
			if s.PlayerCount() == 0 && now.Sub(s.CreatedAt()) > r.idleTTL {
				expired = append(expired, code)
			}
		}
	}
	r.mu.RUnlock()

	for _, code := range expired {
		r.Evict(code)
	}
	return expired
}

// Run sweeps periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// newCode returns a 5-letter join code.
func newCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means no entropy at all
	}
	for i, b := range buf {
		buf[i] = letters[int(b)%len(letters)]
	}
	return string(buf)
}
