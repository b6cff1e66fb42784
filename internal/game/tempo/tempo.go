// Package tempo implements the action-point and cooldown time economy.
package tempo

import (
	"math"
	"slices"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
)

// MoveTag marks actions whose cost includes move AP deltas.
const MoveTag = "move"

// minCostMult bounds the total action cost multiplier away from zero.
const minCostMult = 0.1

// Config holds the tunable AP constants.
type Config struct {
	// BaseAPGain is the AP gained per turn at a cost multiplier of 1.
	BaseAPGain int
	// APCap is the maximum AP an actor may hold.
	APCap int
}

// DefaultConfig returns the stock AP constants.
func DefaultConfig() Config {
	return Config{BaseAPGain: 100, APCap: 200}
}

// FinalAPForAction returns the AP cost of an action with baseAP and tags.
//
// Postcondition: Returns 0 iff baseAP <= 0; otherwise returns >= 1.
func FinalAPForAction(a *actor.State, baseAP int, tags []string) int {
	if baseAP <= 0 {
		return 0
	}
	t := a.ModCache.Temporal
	d := a.Derived()
	raw := float64(baseAP) + t.BaseActionAPDelta
	if slices.Contains(tags, MoveTag) {
		raw += t.MoveAPDelta + d.MoveAPDelta
	}
	raw = math.Max(1, raw)
	speed := math.Max(0, 1+t.ActionSpeedPct+d.ActionSpeedPct)
	cost := int(math.Round(raw * t.BaseActionAPMult * speed))
	if cost < 1 {
		return 1
	}
	return cost
}

// TotalActionCostMult returns baseActionAPMult * (1 + actionSpeedPct) / speedMult,
// bounded below by 0.1.
func TotalActionCostMult(a *actor.State) float64 {
	t := a.ModCache.Temporal
	speed := 1 + t.ActionSpeedPct + a.Derived().ActionSpeedPct
	m := t.BaseActionAPMult * speed
	if sm := a.ModCache.SpeedMult; sm > 0 {
		m /= sm
	}
	if m < minCostMult || math.IsNaN(m) {
		return minCostMult
	}
	return m
}

// GainAP adds the per-turn AP gain to a, capped at cfg.APCap.
//
// Postcondition: Returns the AP actually added; a.AP <= cfg.APCap unless it
// already exceeded the cap.
func GainAP(a *actor.State, cfg Config) int {
	t := a.ModCache.Temporal
	gain := int(math.Round(float64(cfg.BaseAPGain)*(1+t.APGainPct)/TotalActionCostMult(a))) + int(math.Round(t.APGainFlat))
	if gain < 0 {
		gain = 0
	}
	next := min(cfg.APCap, a.AP+gain)
	if next < a.AP {
		return 0
	}
	added := next - a.AP
	a.AP = next
	return added
}

// CanAfford reports whether a holds at least cost AP.
func CanAfford(a *actor.State, cost int) bool {
	return cost <= 0 || a.AP >= cost
}

// Spend deducts cost AP from a.
//
// Postcondition: Returns false and leaves a unchanged when a cannot afford cost.
func Spend(a *actor.State, cost int) bool {
	if !CanAfford(a, cost) {
		return false
	}
	if cost > 0 {
		a.AP -= cost
	}
	return true
}

// CooldownTurns computes the cooldown length for baseTurns and tags without
// storing it.
//
// Postcondition: Returns 0 iff baseTurns <= 0; otherwise returns >= 1.
func CooldownTurns(a *actor.State, baseTurns int, tags []string) int {
	if baseTurns <= 0 {
		return 0
	}
	t := a.ModCache.Temporal
	tagMult := 1.0
	found := false
	for _, tag := range tags {
		if m, ok := t.CooldownPerTag[tag]; ok && m > 0 {
			if !found || m < tagMult {
				tagMult = m
			}
			found = true
		}
	}
	pct := math.Max(0, 1+t.CooldownPct)
	turns := int(math.Round(float64(baseTurns) * t.CooldownMult * a.Derived().CooldownMult() * tagMult * pct))
	if turns < 1 {
		return 1
	}
	return turns
}

// StartCooldown records the cooldown for key on a.
//
// Postcondition: Returns the stored turn count; a base of 0 stores nothing.
func StartCooldown(a *actor.State, key string, baseTurns int, tags []string) int {
	turns := CooldownTurns(a, baseTurns, tags)
	if turns == 0 {
		delete(a.Cooldowns, key)
		return 0
	}
	a.Cooldowns[key] = turns
	return turns
}

// TickCooldowns decrements every cooldown of a, removing entries that reach zero.
func TickCooldowns(a *actor.State) {
	for k, v := range a.Cooldowns {
		if v-1 <= 0 {
			delete(a.Cooldowns, k)
			continue
		}
		a.Cooldowns[k] = v - 1
	}
}

// IsReady reports whether key has no positive cooldown on a.
func IsReady(a *actor.State, key string) bool {
	return a.Cooldowns[key] <= 0
}
