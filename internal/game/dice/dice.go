// Package dice provides the randomness abstraction used by the combat core:
// injectable sources, chance rolls, and dice expressions for damage and durations.
package dice

import "fmt"

// Source is the randomness provider for every roll in the combat core.
//
// Implementations returned by this package are safe for concurrent use, but an
// encounter is expected to own its Source so results stay reproducible.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// chanceResolution is the number of buckets a probability is quantised into.
const chanceResolution = 10_000

// Chance reports whether a roll against probability p succeeds.
// p <= 0 never succeeds and p >= 1 always succeeds; neither case consumes a roll.
//
// Precondition: src must be non-nil when 0 < p < 1.
// Postcondition: Exactly one Intn call is made when 0 < p < 1.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Intn(chanceResolution) < int(p*chanceResolution)
}

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string such as "2d6+3 → [4 5] +3 = 12".
func (r RollResult) String() string {
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
