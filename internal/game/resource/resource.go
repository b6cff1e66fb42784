// Package resource implements per-pool regeneration, capacity, and cost payment.
package resource

import (
	"math"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/item"
)

// Config holds the passive regeneration applied every turn before modifiers.
type Config struct {
	PassiveRegen map[item.Pool]float64
}

// DefaultConfig returns the stock passive regeneration.
func DefaultConfig() Config {
	return Config{PassiveRegen: map[item.Pool]float64{
		item.PoolHP:      0,
		item.PoolStamina: 2,
		item.PoolMana:    1,
	}}
}

// Costs maps pools to base costs.
type Costs map[item.Pool]float64

// PoolMax returns the capacity of pool on a.
func PoolMax(a *actor.State, p item.Pool) int {
	return a.MaxFor(p)
}

// IsDefeated reports whether a's HP is at or below the pool floor.
func IsDefeated(a *actor.State) bool {
	return a.HP() <= actor.PoolFloor
}

// InitPools sets every pool to its maximum adjusted by start modifiers.
//
// Postcondition: every pool lies in [PoolFloor, max].
func InitPools(a *actor.State) {
	for _, p := range item.Pools() {
		mods := a.ModCache.Resource.Pool(p)
		maxV := PoolMax(a, p)
		start := int(math.Round(float64(maxV)*(1+mods.StartPct) + mods.StartFlat))
		pool := a.Pools[p]
		pool.Max = maxV
		pool.Current = clamp(start, actor.PoolFloor, maxV)
	}
}

// Update applies one turn of regeneration to every pool of a. Defeated actors
// do not regenerate.
//
// Postcondition: every pool lies in [PoolFloor, max].
func Update(a *actor.State, cfg Config) {
	if IsDefeated(a) {
		return
	}
	for _, p := range item.Pools() {
		mods := a.ModCache.Resource.Pool(p)
		maxV := PoolMax(a, p)
		gain := cfg.PassiveRegen[p] + mods.RegenFlat + float64(maxV)*mods.RegenPct
		pool := a.Pools[p]
		pool.Max = maxV
		pool.Current = clamp(pool.Current+int(math.Round(gain)), actor.PoolFloor, maxV)
	}
}

// Gain adds amount to pool on a, clamped to its max. Negative amounts are ignored.
//
// Postcondition: Returns the amount actually added.
func Gain(a *actor.State, p item.Pool, amount int) int {
	return a.Restore(string(p), amount)
}

// EffectiveCost applies the pool cost multiplier and every matching per-tag
// multiplier to base.
//
// Postcondition: Returns 0 iff base <= 0; otherwise returns >= 1.
func EffectiveCost(a *actor.State, p item.Pool, base float64, tags []string) int {
	if base <= 0 {
		return 0
	}
	v := base * a.ModCache.CostMult(p)
	for _, tag := range tags {
		if m, ok := a.ModCache.Resource.CostPerTag[tag]; ok && m > 0 {
			v *= m
		}
	}
	c := int(math.Round(v))
	if c < 1 {
		return 1
	}
	return c
}

// plan is the resolved deduction for one payment.
type plan map[item.Pool]int

// CanPay reports whether a can cover costs. A non-HP shortfall may be
// channelled from HP at the pool's channeling ratio as long as HP stays above
// the floor.
func CanPay(a *actor.State, costs Costs, tags []string) bool {
	_, ok := resolve(a, costs, tags)
	return ok
}

// Pay deducts costs from a.
//
// Postcondition: Returns false and leaves a unchanged when CanPay is false.
func Pay(a *actor.State, costs Costs, tags []string) bool {
	p, ok := resolve(a, costs, tags)
	if !ok {
		return false
	}
	for pool, amt := range p {
		a.Pools[pool].Current -= amt
	}
	return true
}

func resolve(a *actor.State, costs Costs, tags []string) (plan, bool) {
	out := plan{}
	hpCost := 0
	for _, p := range item.Pools() {
		need := EffectiveCost(a, p, costs[p], tags)
		if need == 0 {
			continue
		}
		if p == item.PoolHP {
			hpCost += need
			continue
		}
		have := a.Current(p)
		if have >= need {
			out[p] = need
			continue
		}
		ratio := a.ModCache.Resource.Channeling[p]
		if ratio <= 0 {
			return nil, false
		}
		out[p] = have
		hpCost += int(math.Ceil(float64(need-have) * ratio))
	}
	if hpCost > 0 {
		// Paying must not defeat the payer.
		if a.HP()-hpCost <= actor.PoolFloor {
			return nil, false
		}
		out[item.PoolHP] = hpCost
	}
	return out, true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
