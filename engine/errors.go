package engine

import "errors"

// Submission error taxonomy. All of these are reported synchronously to
// the submitter and leave session state untouched.
var (
	ErrInvalidPhase     = errors.New("action not legal in current phase")
	ErrInvalidRole      = errors.New("action not permitted for role")
	ErrInvalidTarget    = errors.New("target missing, dead, or not allowed")
	ErrSelfTarget       = errors.New("self-targeting not allowed")
	ErrAlreadyActed     = errors.New("decision already recorded")
	ErrAlreadyVoted     = errors.New("vote already recorded")
	ErrUnauthorized     = errors.New("host-only command")
	ErrNotEnoughPlayers = errors.New("not enough participants to start")
	ErrNotReady         = errors.New("not all participants are ready")
)
