// Package modifier folds an actor's equipped items into a single derived
// modifier cache consumed by the combat core.
package modifier

import (
	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// Resist bounds applied after aggregation.
const (
	MinResist = -0.50
	MaxResist = 0.80
)

// Brand is an aggregated brand entry.
type Brand struct {
	Type  string
	Flat  float64
	Pct   float64
	OnHit []status.Attempt
}

// Conversion moves Pct of From damage into To.
type Conversion struct {
	From string
	To   string
	Pct  float64
}

// Offense is the attacker-facing view of the cache.
type Offense struct {
	Conversions []Conversion
	BrandAdds   []Brand
	Affinities  map[string]float64
	Polarity    polarity.Vector
}

// Defense is the defender-facing view of the cache.
type Defense struct {
	Resists    map[string]float64
	Immunities map[string]bool
	Polarity   polarity.Vector
}

// Polarity holds the directional polarity biases.
type Polarity struct {
	OnHitBias   polarity.Vector
	DefenseBias polarity.Vector
}

// Cache is the derived modifier snapshot of one actor. It is rebuilt wholesale
// by Aggregate and never patched. Multipliers are resolved: a value of 1 means
// no item set it.
type Cache struct {
	Resists     map[string]float64
	Affinities  map[string]float64
	Immunities  map[string]bool
	Brands      []Brand
	Conversions []Conversion
	DmgMult     float64
	SpeedMult   float64

	Offense  Offense
	Defense  Defense
	Temporal item.Temporal
	Resource item.Resource
	Status   status.Modifiers
	Polarity Polarity
}

// Neutral returns the cache of an actor with nothing equipped.
func Neutral() Cache {
	return Aggregate(nil)
}

// Resist returns the clamped item resist for damageType.
func (c *Cache) Resist(damageType string) float64 {
	return c.Defense.Resists[damageType]
}

// Immune reports whether the cache grants immunity to damageType.
func (c *Cache) Immune(damageType string) bool {
	return c.Defense.Immunities[damageType]
}

// Affinity returns the offensive affinity for damageType.
func (c *Cache) Affinity(damageType string) float64 {
	return c.Offense.Affinities[damageType]
}

// CostMult returns the resolved cost multiplier for pool.
func (c *Cache) CostMult(p item.Pool) float64 {
	if m := c.Resource.Pool(p).CostMult; m > 0 {
		return m
	}
	return 1
}
