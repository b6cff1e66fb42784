// Package combat implements attack resolution, post-damage hooks, the action
// layer and the turn loop of the combat core.
package combat

import (
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/tempo"
)

// Config holds the combat tuning constants.
type Config struct {
	Tempo    tempo.Config
	Resource resource.Config
	// AttunementCap bounds per-type attunement stacks; 0 disables attunement gain.
	AttunementCap int
	// AttunementStep is the damage multiplier added per attunement stack.
	AttunementStep float64
	// BaseHitChance is the hit probability before accuracy modifiers.
	BaseHitChance float64
	// CritMultiplier scales rolled base damage on a critical hit.
	CritMultiplier float64
	// MaxActionsPerTurn bounds the action requests honoured in one turn.
	MaxActionsPerTurn int
}

// DefaultConfig returns the stock combat constants.
func DefaultConfig() Config {
	return Config{
		Tempo:             tempo.DefaultConfig(),
		Resource:          resource.DefaultConfig(),
		AttunementCap:     10,
		AttunementStep:    0.02,
		BaseHitChance:     0.9,
		CritMultiplier:    1.5,
		MaxActionsPerTurn: 4,
	}
}

// ActionType identifies what an actor requests on its turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionAttack
	ActionPass
)

// String returns the action name.
func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionPass:
		return "pass"
	default:
		return "unknown"
	}
}
