package game

import (
	"sync"
	"time"
)

// PhaseScheduler owns the countdown of the active phase of one session.
// Start replaces any previous countdown, so a scheduler never fires into
// a stale phase: cancelling (early barrier, force stop, session end)
// stops both the tick stream and the pending deadline.
type PhaseScheduler struct {
	mu       sync.Mutex
	cancel   chan struct{}
	interval time.Duration
}

// NewPhaseScheduler returns a scheduler emitting ticks at the interval.
func NewPhaseScheduler(interval time.Duration) *PhaseScheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &PhaseScheduler{interval: interval}
}

// Start begins a countdown of the given duration. onTick is invoked at
// each interval with the remaining time; onDeadline exactly once when
// the countdown reaches zero, unless cancelled or restarted first.
func (ps *PhaseScheduler) Start(d time.Duration, onTick func(remaining time.Duration), onDeadline func()) {
	ps.mu.Lock()
	if ps.cancel != nil {
		close(ps.cancel)
	}
	done := make(chan struct{})
	ps.cancel = done
	ps.mu.Unlock()

	go func() {
		deadline := time.NewTimer(d)
		ticker := time.NewTicker(ps.interval)
		defer deadline.Stop()
		defer ticker.Stop()

		end := time.Now().Add(d)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if onTick != nil {
					remaining := time.Until(end)
					if remaining < 0 {
						remaining = 0
					}
					onTick(remaining)
				}
			case <-deadline.C:
				onDeadline()
				return
			}
		}
	}()
}

// Stop cancels the outstanding countdown, if any.
func (ps *PhaseScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.cancel != nil {
		close(ps.cancel)
		ps.cancel = nil
	}
}
