// Package item defines equipment templates and instances, and the modifier
// payloads they carry into the combat core.
package item

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// Slot identifies an equipment slot.
type Slot string

const (
	SlotMainHand  Slot = "main_hand"
	SlotOffHand   Slot = "off_hand"
	SlotHead      Slot = "head"
	SlotBody      Slot = "body"
	SlotHands     Slot = "hands"
	SlotFeet      Slot = "feet"
	SlotNeck      Slot = "neck"
	SlotRingLeft  Slot = "ring_left"
	SlotRingRight Slot = "ring_right"
)

// slotOrder is the canonical fold order used by modifier aggregation.
var slotOrder = []Slot{
	SlotMainHand, SlotOffHand, SlotHead, SlotBody, SlotHands,
	SlotFeet, SlotNeck, SlotRingLeft, SlotRingRight,
}

// Slots returns every slot in canonical order.
func Slots() []Slot {
	out := make([]Slot, len(slotOrder))
	copy(out, slotOrder)
	return out
}

// ValidSlot reports whether s is a known slot.
func ValidSlot(s Slot) bool {
	for _, v := range slotOrder {
		if v == s {
			return true
		}
	}
	return false
}

// Pool identifies a resource pool.
type Pool string

const (
	PoolHP      Pool = "hp"
	PoolStamina Pool = "stamina"
	PoolMana    Pool = "mana"
)

// Pools returns every pool in canonical order.
func Pools() []Pool { return []Pool{PoolHP, PoolStamina, PoolMana} }

// OnHit is a status attempt carried by a brand.
type OnHit struct {
	ID           string `yaml:"id"`
	Chance       Number `yaml:"chance"`
	Stacks       Number `yaml:"stacks"`
	Duration     Number `yaml:"duration"`
	DurationDice string `yaml:"duration_dice"`
	Potency      Number `yaml:"potency"`
}

// Attempt converts the on-hit payload into a status application attempt.
// A malformed duration dice expression is dropped in favour of Duration.
func (o OnHit) Attempt() status.Attempt {
	a := status.Attempt{
		ID:         o.ID,
		BaseChance: o.Chance.Float(),
		Stacks:     o.Stacks.Int(),
		Duration:   o.Duration.Int(),
		Potency:    o.Potency.Float(),
	}
	if o.DurationDice != "" {
		if e, err := dice.Parse(o.DurationDice); err == nil {
			a.DurationDice = &e
		}
	}
	return a
}

// Brand adds flat then percent damage to packets of Type and may carry on-hit statuses.
type Brand struct {
	Type  string  `yaml:"type"`
	Flat  Number  `yaml:"flat"`
	Pct   Number  `yaml:"pct"`
	OnHit []OnHit `yaml:"on_hit"`
}

// Conversion moves Pct of every From packet into To.
type Conversion struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Pct  Number `yaml:"pct"`
}

// Polarity carries grants and biases on the five polarity axes.
type Polarity struct {
	Grants      polarity.Vector `yaml:"grants"`
	OnHitBias   polarity.Vector `yaml:"on_hit_bias"`
	DefenseBias polarity.Vector `yaml:"defense_bias"`
}

// StatusMods adjust status application. BuffDurMult of zero means unset.
type StatusMods struct {
	InflictBonus     Number `yaml:"inflict_bonus"`
	ResistBonus      Number `yaml:"resist_bonus"`
	BuffDurMult      Number `yaml:"buff_dur_mult"`
	FreeActionIgnore Number `yaml:"free_action_ignore"`
}

// Weapon is the attack profile of a main- or off-hand item.
type Weapon struct {
	Damage   string          `yaml:"damage"` // dice expression
	Type     string          `yaml:"type"`
	AP       Number          `yaml:"ap"`
	Cooldown Number          `yaml:"cooldown"`
	Tags     []string        `yaml:"tags"`
	Costs    map[Pool]Number `yaml:"costs"`
}

// Mods is every modifier payload an item can carry. Multiplier fields of zero
// are treated as unset (neutral) by aggregation.
type Mods struct {
	Brands      []Brand           `yaml:"brands"`
	Resists     map[string]Number `yaml:"resists"`
	Affinities  map[string]Number `yaml:"affinities"`
	Immunities  []string          `yaml:"immunities"`
	Conversions []Conversion      `yaml:"conversions"`
	DmgMult     Number            `yaml:"dmg_mult"`
	SpeedMult   Number            `yaml:"speed_mult"`
	Polarity    Polarity          `yaml:"polarity"`
	Status      StatusMods        `yaml:"status_mods"`
	Temporal    Temporal          `yaml:"temporal"`
	Resource    Resource          `yaml:"resource"`
}

// Def is the immutable template of an item.
type Def struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Slot        Slot    `yaml:"slot"`
	Weapon      *Weapon `yaml:"weapon"`
	Mods        `yaml:",inline"`
}

// Validate checks that the Def satisfies its invariants. Numeric payloads are
// never rejected; they were coerced at decode time.
//
// Postcondition: returns nil iff ID, Name, and Slot are valid and any weapon
// profile has a parseable damage expression and a type.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !ValidSlot(d.Slot) {
		errs = append(errs, fmt.Errorf("slot %q is not a valid slot", d.Slot))
	}
	if d.Weapon != nil {
		if d.Slot != SlotMainHand && d.Slot != SlotOffHand {
			errs = append(errs, fmt.Errorf("weapon must occupy a hand slot, got %q", d.Slot))
		}
		if _, err := dice.Parse(d.Weapon.Damage); err != nil {
			errs = append(errs, fmt.Errorf("weapon damage: %w", err))
		}
		if d.Weapon.Type == "" {
			errs = append(errs, errors.New("weapon type must not be empty"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Instance is a mutable copy of a template in the world. Extra holds rolled
// affix mods layered on top of the template.
type Instance struct {
	ID    string
	Def   *Def
	Extra Mods
}

// NewInstance creates an Instance of def with a fresh instance ID.
//
// Precondition: def must be non-nil.
func NewInstance(def *Def) *Instance {
	return &Instance{ID: uuid.NewString(), Def: def}
}

// Weapon returns the weapon profile of the instance, or nil.
func (i *Instance) Weapon() *Weapon {
	if i == nil || i.Def == nil {
		return nil
	}
	return i.Def.Weapon
}
