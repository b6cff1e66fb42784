package combat

import (
	"sort"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
)

// RollInitiative returns actors ordered by d20 + DEX modifier, highest first.
// Ties keep the input order.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a new slice; the input is not reordered.
func RollInitiative(actors []*actor.State, src dice.Source) []*actor.State {
	type entry struct {
		a    *actor.State
		roll int
	}
	entries := make([]entry, len(actors))
	for i, a := range actors {
		entries[i] = entry{a: a, roll: src.Intn(20) + 1 + (a.Base.Dex-10)/2}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].roll > entries[j].roll })
	out := make([]*actor.State, len(entries))
	for i, e := range entries {
		out[i] = e.a
	}
	return out
}
