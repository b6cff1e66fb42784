package status

import (
	"sort"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
)

// Attempt is a request to apply a status. DurationDice, when set, is rolled
// in place of Duration.
type Attempt struct {
	ID           string
	BaseChance   float64
	Stacks       int
	Duration     int
	Potency      float64
	DurationDice *dice.Expression
	// Source is the actor ID credited with the application.
	Source string
}

// Instance is one active application of a status on an actor.
type Instance struct {
	ID         string  `json:"id"`
	Stacks     int     `json:"stacks"`
	EndsAtTurn int     `json:"endsAtTurn"`
	NextTickAt int     `json:"nextTickAt"`
	Potency    float64 `json:"potency"`
	Source     string  `json:"source,omitempty"`

	def *Definition
}

// Definition returns the registry definition backing the instance.
func (i *Instance) Definition() *Definition { return i.def }

// Set is the ordered collection of status instances on one actor together
// with their cached Derived aggregate. A Set is not safe for concurrent use.
type Set struct {
	instances []*Instance
	derived   Derived
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Instances returns a copy of the active instances in application order.
func (s *Set) Instances() []Instance {
	out := make([]Instance, len(s.instances))
	for i, inst := range s.instances {
		out[i] = *inst
	}
	return out
}

// Len returns the number of active instances.
func (s *Set) Len() int { return len(s.instances) }

// Has reports whether any instance of id is active.
func (s *Set) Has(id string) bool {
	return s.first(id) != nil
}

// Stacks returns the total stacks of id across all instances.
func (s *Set) Stacks(id string) int {
	n := 0
	for _, inst := range s.instances {
		if inst.ID == id {
			n += inst.Stacks
		}
	}
	return n
}

// Derived returns the cached aggregate of every active instance.
func (s *Set) Derived() Derived { return s.derived }

// PreventsActions reports whether any active status blocks the action phase.
func (s *Set) PreventsActions() bool {
	for _, inst := range s.instances {
		if inst.def != nil && inst.def.PreventsActions {
			return true
		}
	}
	return false
}

// Remove drops every instance of id and rebuilds the aggregate.
//
// Postcondition: Has(id) is false.
func (s *Set) Remove(id string) {
	kept := s.instances[:0]
	for _, inst := range s.instances {
		if inst.ID != id {
			kept = append(kept, inst)
		}
	}
	s.instances = kept
	s.Rebuild()
}

// Rebuild recomputes the Derived aggregate from the active instances.
func (s *Set) Rebuild() {
	var d Derived
	for _, inst := range s.instances {
		if inst.def == nil || inst.def.Derive == nil {
			continue
		}
		d = d.Plus(inst.def.Derive(inst))
	}
	s.derived = d
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	out := &Set{instances: make([]*Instance, len(s.instances))}
	for i, inst := range s.instances {
		c := *inst
		out.instances[i] = &c
	}
	out.Rebuild()
	return out
}

// RestoreSet rebuilds a Set from snapshotted instances, binding each to its
// definition in reg. Instances whose ID is unknown to reg are dropped.
func RestoreSet(reg *Registry, snaps []Instance) *Set {
	s := NewSet()
	for _, snap := range snaps {
		def, ok := reg.Get(snap.ID)
		if !ok {
			continue
		}
		inst := snap
		inst.def = def
		s.instances = append(s.instances, &inst)
	}
	s.Rebuild()
	return s
}

func (s *Set) first(id string) *Instance {
	for _, inst := range s.instances {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// trimIndependent removes the earliest-ending instances of id until at most
// room stacks of it remain.
func (s *Set) trimIndependent(id string, room int) {
	for s.Stacks(id) > room {
		var victim *Instance
		for _, inst := range s.instances {
			if inst.ID != id {
				continue
			}
			if victim == nil || inst.EndsAtTurn < victim.EndsAtTurn {
				victim = inst
			}
		}
		if victim == nil {
			return
		}
		s.removeInstance(victim)
	}
}

func (s *Set) removeInstance(target *Instance) {
	for i, inst := range s.instances {
		if inst == target {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			return
		}
	}
}

// IDs returns the distinct active status IDs, sorted.
func (s *Set) IDs() []string {
	seen := make(map[string]bool, len(s.instances))
	var out []string
	for _, inst := range s.instances {
		if !seen[inst.ID] {
			seen[inst.ID] = true
			out = append(out, inst.ID)
		}
	}
	sort.Strings(out)
	return out
}
