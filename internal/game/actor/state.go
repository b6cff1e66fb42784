// Package actor defines combatant state and its derived-data rebuild rules.
package actor

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/modifier"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// Stats holds an actor's base statistics.
type Stats struct {
	Str        int `yaml:"str" json:"str"`
	Dex        int `yaml:"dex" json:"dex"`
	Int        int `yaml:"int" json:"int"`
	Vit        int `yaml:"vit" json:"vit"`
	MaxHP      int `yaml:"max_hp" json:"maxHP"`
	MaxStamina int `yaml:"max_stamina" json:"maxStamina"`
	MaxMana    int `yaml:"max_mana" json:"maxMana"`
	BaseSpeed  int `yaml:"base_speed" json:"baseSpeed"`
}

// BaseMax returns the unmodified capacity of pool.
func (s Stats) BaseMax(p item.Pool) int {
	switch p {
	case item.PoolHP:
		return s.MaxHP
	case item.PoolStamina:
		return s.MaxStamina
	case item.PoolMana:
		return s.MaxMana
	}
	return 0
}

// PoolFloor is the lowest value any pool may hold.
const PoolFloor = 0

// Pool is the current and maximum value of one resource.
type Pool struct {
	Current int
	Max     int
}

// KillReward tracks on-kill haste gating across turns.
type KillReward struct {
	// LastTurn is the turn the reward was last granted; -1 when never.
	LastTurn int
	// ReadyAt is the first turn the reward may be granted again.
	ReadyAt int
}

// State is the full combat state of one actor.
//
// ModCache and the status aggregate are derived from Equipment and Statuses;
// they are rebuilt by RebuildModifiers and never persisted.
type State struct {
	ID   string
	Name string
	Base Stats

	Equipment map[item.Slot]*item.Instance
	Pools     map[item.Pool]*Pool
	Statuses  *status.Set
	ModCache  modifier.Cache

	Cooldowns      map[string]int
	Attunement     map[string]int
	PolarityGrants polarity.Vector
	KillReward     KillReward

	Turn int
	AP   int
}

// New creates an actor with empty equipment and full pools.
//
// Postcondition: every pool has Current == Max == base capacity.
func New(id, name string, base Stats) *State {
	s := &State{
		ID:         id,
		Name:       name,
		Base:       base,
		Equipment:  make(map[item.Slot]*item.Instance),
		Pools:      make(map[item.Pool]*Pool, 3),
		Statuses:   status.NewSet(),
		Cooldowns:  make(map[string]int),
		Attunement: make(map[string]int),
		KillReward: KillReward{LastTurn: -1},
	}
	for _, p := range item.Pools() {
		s.Pools[p] = &Pool{}
	}
	s.RebuildModifiers()
	for _, p := range s.Pools {
		p.Current = p.Max
	}
	return s
}

// Equip places inst in its template's slot and rebuilds derived data.
//
// Precondition: inst and inst.Def must be non-nil.
// Postcondition: Returns the previously equipped instance in that slot, or nil.
func (s *State) Equip(inst *item.Instance) (*item.Instance, error) {
	if inst == nil || inst.Def == nil {
		return nil, fmt.Errorf("actor %q: cannot equip nil item", s.ID)
	}
	slot := inst.Def.Slot
	if !item.ValidSlot(slot) {
		return nil, fmt.Errorf("actor %q: item %q has invalid slot %q", s.ID, inst.Def.ID, slot)
	}
	prev := s.Equipment[slot]
	s.Equipment[slot] = inst
	s.RebuildModifiers()
	return prev, nil
}

// Unequip empties slot and rebuilds derived data. Returns the removed instance, or nil.
func (s *State) Unequip(slot item.Slot) *item.Instance {
	prev := s.Equipment[slot]
	if prev == nil {
		return nil
	}
	delete(s.Equipment, slot)
	s.RebuildModifiers()
	return prev
}

// Weapon returns the main-hand weapon instance, falling back to the off hand.
func (s *State) Weapon() *item.Instance {
	for _, slot := range []item.Slot{item.SlotMainHand, item.SlotOffHand} {
		if inst := s.Equipment[slot]; inst.Weapon() != nil {
			return inst
		}
	}
	return nil
}

// RebuildModifiers replaces ModCache with a fresh aggregate of Equipment,
// rebuilds the status aggregate and refreshes pool capacities.
func (s *State) RebuildModifiers() {
	s.ModCache = modifier.Aggregate(s.Equipment)
	s.Statuses.Rebuild()
	for _, p := range item.Pools() {
		pool := s.pool(p)
		pool.Max = s.MaxFor(p)
		if pool.Current > pool.Max {
			pool.Current = pool.Max
		}
	}
}

// MaxFor returns round((baseMax + maxFlat) * (1 + maxPct)) for pool, floored at PoolFloor.
func (s *State) MaxFor(p item.Pool) int {
	m := s.ModCache.Resource.Pool(p)
	v := int(math.Round((float64(s.Base.BaseMax(p)) + m.MaxFlat) * (1 + m.MaxPct)))
	if v < PoolFloor {
		return PoolFloor
	}
	return v
}

// Derived returns the status aggregate.
func (s *State) Derived() status.Derived {
	return s.Statuses.Derived()
}

// HP returns current hit points.
func (s *State) HP() int { return s.pool(item.PoolHP).Current }

// Current returns the current value of pool.
func (s *State) Current(p item.Pool) int { return s.pool(p).Current }

// Polarity returns the actor's effective polarity grants: innate plus equipment.
func (s *State) Polarity() polarity.Vector {
	return s.PolarityGrants.Add(s.ModCache.Offense.Polarity)
}

// Participant returns the actor as a status application participant.
func (s *State) Participant() status.Participant {
	return status.Participant{Host: s, Set: s.Statuses, Mods: s.ModCache.Status}
}

// HostID implements status.Host.
func (s *State) HostID() string { return s.ID }

// TakeDamage implements status.Host.
func (s *State) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	hp := s.pool(item.PoolHP)
	lost := min(amount, hp.Current-PoolFloor)
	if lost < 0 {
		lost = 0
	}
	hp.Current -= lost
	return lost
}

// Restore implements status.Host. Unknown pool names restore nothing.
func (s *State) Restore(pool string, amount int) int {
	p, ok := s.Pools[item.Pool(pool)]
	if !ok || amount <= 0 {
		return 0
	}
	gained := min(amount, p.Max-p.Current)
	if gained < 0 {
		gained = 0
	}
	p.Current += gained
	return gained
}

// Clone returns a deep copy of s sharing only immutable item templates.
func (s *State) Clone() *State {
	c := *s
	c.Equipment = make(map[item.Slot]*item.Instance, len(s.Equipment))
	for slot, inst := range s.Equipment {
		cp := *inst
		c.Equipment[slot] = &cp
	}
	c.Pools = make(map[item.Pool]*Pool, len(s.Pools))
	for p, v := range s.Pools {
		cp := *v
		c.Pools[p] = &cp
	}
	c.Statuses = s.Statuses.Clone()
	c.Cooldowns = copyIntMap(s.Cooldowns)
	c.Attunement = copyIntMap(s.Attunement)
	c.ModCache = modifier.Aggregate(c.Equipment)
	return &c
}

func (s *State) pool(p item.Pool) *Pool {
	v, ok := s.Pools[p]
	if !ok {
		v = &Pool{}
		s.Pools[p] = v
	}
	return v
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
