// Package engine implements the Duskvale game rules.
//
// This package is the pure core: role assignment, night and vote
// resolution, and win evaluation are deterministic functions of a Roster
// and an ActionLedger. It performs no I/O, holds no locks, and knows
// nothing about sessions, timers, or transports.
package engine

import "github.com/google/uuid"

// Role is one tag from the closed role set, assigned once at session
// start and immutable thereafter.
type Role uint8

const (
	RoleVillager Role = iota // filler role, no night action
	RoleWerewolf             // elimination faction, consensus night kill
	RoleSeer                 // privately learns one role per night
	RoleDoctor               // protects one participant per night
	RoleWitch                // one-shot heal + one-shot poison
	RoleCupid                // links two participants on round 1
	RoleHunter               // revenge shot on elimination
	RoleElder                // day vote counts double
)

// String returns the display name of the role.
func (r Role) String() string {
	switch r {
	case RoleVillager:
		return "villager"
	case RoleWerewolf:
		return "werewolf"
	case RoleSeer:
		return "seer"
	case RoleDoctor:
		return "doctor"
	case RoleWitch:
		return "witch"
	case RoleCupid:
		return "cupid"
	case RoleHunter:
		return "hunter"
	case RoleElder:
		return "elder"
	}
	return "unknown"
}

// Faction identifies which side a role fights for.
type Faction uint8

const (
	FactionVillage Faction = iota
	FactionWolves
)

// Faction returns the faction the role belongs to.
func (r Role) Faction() Faction {
	if r == RoleWerewolf {
		return FactionWolves
	}
	return FactionVillage
}

// ActsAtNight reports whether the role is part of the night barrier for
// the given round. Cupid acts on round 1 only; the Hunter never acts at
// night (its only decision is the post-elimination shot).
func (r Role) ActsAtNight(round int) bool {
	switch r {
	case RoleWerewolf, RoleSeer, RoleDoctor, RoleWitch:
		return true
	case RoleCupid:
		return round == 1
	}
	return false
}

// VoteWeight returns the weight of the role's day vote.
func (r Role) VoteWeight() int {
	if r == RoleElder {
		return 2
	}
	return 1
}

// NightActionKind is the closed set of decisions collectable during the
// night phase.
type NightActionKind uint8

const (
	ActionKill NightActionKind = iota
	ActionProtect
	ActionInspect
	ActionHeal
	ActionPoison
	ActionPair
	ActionPass // witch declining both potions
)

// String returns the wire name of the action kind.
func (k NightActionKind) String() string {
	switch k {
	case ActionKill:
		return "kill"
	case ActionProtect:
		return "protect"
	case ActionInspect:
		return "inspect"
	case ActionHeal:
		return "heal"
	case ActionPoison:
		return "poison"
	case ActionPair:
		return "pair"
	case ActionPass:
		return "pass"
	}
	return "unknown"
}

// AllowedFor reports whether the action kind is legal for the role.
func (k NightActionKind) AllowedFor(r Role) bool {
	switch k {
	case ActionKill:
		return r == RoleWerewolf
	case ActionProtect:
		return r == RoleDoctor
	case ActionInspect:
		return r == RoleSeer
	case ActionHeal, ActionPoison, ActionPass:
		return r == RoleWitch
	case ActionPair:
		return r == RoleCupid
	}
	return false
}

// Winner is the result of a win-condition evaluation.
type Winner uint8

const (
	WinnerNone Winner = iota
	WinnerVillage
	WinnerWolves
)

// String returns the display name of the winner.
func (w Winner) String() string {
	switch w {
	case WinnerVillage:
		return "village"
	case WinnerWolves:
		return "wolves"
	}
	return "none"
}

// Reveal is a private notification produced during resolution: To learns
// that About holds Role. It never mutates state.
type Reveal struct {
	To    uuid.UUID
	About uuid.UUID
	Role  Role
}
