package modifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/modifier"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
)

func mustItem(t *testing.T, src string) *item.Instance {
	t.Helper()
	def, err := item.Parse([]byte(src))
	require.NoError(t, err)
	return item.NewInstance(def)
}

func TestNeutral(t *testing.T) {
	c := modifier.Neutral()
	assert.Equal(t, 1.0, c.DmgMult)
	assert.Equal(t, 1.0, c.SpeedMult)
	assert.Equal(t, 1.0, c.Temporal.BaseActionAPMult)
	assert.Equal(t, 1.0, c.Temporal.CooldownMult)
	assert.Equal(t, 1.0, c.Status.BuffDurMult)
	assert.Equal(t, 1.0, c.CostMult(item.PoolMana))
	assert.Empty(t, c.Brands)
	assert.Zero(t, c.Resist("fire"))
	assert.Nil(t, c.Temporal.Echo)
}

func TestAggregate_FoldRules(t *testing.T) {
	sword := mustItem(t, `
id: ember_sword
name: Ember Sword
slot: main_hand
weapon: {damage: 1d8, type: physical}
brands:
  - {type: fire, flat: 2, pct: 0.1, on_hit: [{id: burn, chance: 0.5, stacks: 1}]}
conversions:
  - {from: physical, to: fire, pct: 0.5}
affinities: {fire: 0.05}
dmg_mult: 1.2
polarity:
  grants: {ember: 2}
temporal:
  hpRegen: 1
  cooldownMult: 0.5
`)
	ring := mustItem(t, `
id: frost_ring
name: Frost Ring
slot: ring_left
brands:
  - {type: cold, flat: 1}
resists: {fire: 0.3, cold: 0.1}
affinities: {fire: 0.05}
immunities: [poison]
dmg_mult: 1.5
status_mods: {inflict_bonus: 0.1, buff_dur_mult: 2}
polarity:
  grants: {ember: 1, tidal: 1}
temporal:
  cdMult: 0.5
  actionSpeedPct: -0.1
resource:
  hpRegenPerTurn: 2
  mana: {regen: 3, max_pct: 0.1}
`)
	ring.Extra = item.Mods{Resists: map[string]item.Number{"fire": 0.2}}

	c := modifier.Aggregate(map[item.Slot]*item.Instance{
		item.SlotRingLeft: ring,
		item.SlotMainHand: sword,
	})

	require.Len(t, c.Brands, 2)
	assert.Equal(t, "fire", c.Brands[0].Type, "main hand folds first")
	assert.Equal(t, "cold", c.Brands[1].Type)
	require.Len(t, c.Brands[0].OnHit, 1)
	assert.Equal(t, "burn", c.Brands[0].OnHit[0].ID)
	assert.Equal(t, c.Brands, c.Offense.BrandAdds)

	require.Len(t, c.Conversions, 1)
	assert.Equal(t, modifier.Conversion{From: "physical", To: "fire", Pct: 0.5}, c.Offense.Conversions[0])

	assert.InDelta(t, 0.1, c.Affinity("fire"), 1e-9)
	assert.InDelta(t, 0.5, c.Resist("fire"), 1e-9)
	assert.InDelta(t, 0.5, c.Resists["fire"], 1e-9)
	assert.True(t, c.Immune("poison"))
	assert.InDelta(t, 1.8, c.DmgMult, 1e-9)
	assert.InDelta(t, 0.25, c.Temporal.CooldownMult, 1e-9)
	assert.InDelta(t, -0.1, c.Temporal.ActionSpeedPct, 1e-9)
	assert.InDelta(t, 0.1, c.Status.InflictBonus, 1e-9)
	assert.InDelta(t, 2.0, c.Status.BuffDurMult, 1e-9)
	assert.InDelta(t, 3.0, c.Offense.Polarity.Get(polarity.Ember), 1e-9)
	assert.Equal(t, c.Offense.Polarity, c.Defense.Polarity)

	assert.InDelta(t, 2.0, c.Resource.Pool(item.PoolHP).RegenFlat, 1e-9)
	assert.InDelta(t, 3.0, c.Resource.Pool(item.PoolMana).RegenFlat, 1e-9)
	assert.InDelta(t, 0.1, c.Resource.Pool(item.PoolMana).MaxPct, 1e-9)
}

func TestAggregate_CostMultSurvivesLaterPoolFields(t *testing.T) {
	hood := mustItem(t, "id: hood\nname: Hood\nslot: head\nresource: {manaCostMult: 0.5}\n")
	robe := mustItem(t, "id: robe\nname: Robe\nslot: body\nresource: {mana: {regen: 1}}\n")
	c := modifier.Aggregate(map[item.Slot]*item.Instance{item.SlotHead: hood, item.SlotBody: robe})
	assert.InDelta(t, 0.5, c.CostMult(item.PoolMana), 1e-9)
	assert.InDelta(t, 1.0, c.Resource.Pool(item.PoolMana).RegenFlat, 1e-9)
}

func TestAggregate_ResistClamped(t *testing.T) {
	a := mustItem(t, "id: a\nname: A\nslot: body\nresists: {fire: 0.7, cold: -0.4}\n")
	b := mustItem(t, "id: b\nname: B\nslot: head\nresists: {fire: 0.7, cold: -0.4}\n")
	c := modifier.Aggregate(map[item.Slot]*item.Instance{item.SlotBody: a, item.SlotHead: b})
	assert.Equal(t, modifier.MaxResist, c.Resists["fire"])
	assert.Equal(t, modifier.MinResist, c.Resists["cold"])
	assert.Equal(t, modifier.MaxResist, c.Defense.Resists["fire"])
	assert.Equal(t, modifier.MinResist, c.Defense.Resists["cold"])
}

func TestAggregate_EchoMerge(t *testing.T) {
	a := mustItem(t, "id: a\nname: A\nslot: neck\ntemporal: {echo: {chance: 0.2, fraction: 0.5}}\n")
	b := mustItem(t, "id: b\nname: B\nslot: hands\ntemporal: {echo: {chance: 0.1, fraction: 0.3, allowOnKill: false, copyStatusAttempts: true}}\n")
	c := modifier.Aggregate(map[item.Slot]*item.Instance{item.SlotNeck: a, item.SlotHands: b})
	e := c.Temporal.Echo
	require.NotNil(t, e)
	assert.InDelta(t, 0.3, e.Chance, 1e-9)
	assert.InDelta(t, 0.5, e.Fraction, 1e-9)
	assert.False(t, e.AllowsOnKill())
	assert.True(t, e.CopyStatusAttempts)
}

func TestAggregate_DoesNotAliasItemMaps(t *testing.T) {
	a := mustItem(t, "id: a\nname: A\nslot: body\nresists: {fire: 0.9}\n")
	modifier.Aggregate(map[item.Slot]*item.Instance{item.SlotBody: a})
	assert.InDelta(t, 0.9, a.Def.Resists["fire"].Float(), 1e-9)
}

func TestProperty_ResistsAlwaysClamped(t *testing.T) {
	types := []string{"fire", "cold", "physical", "poison"}
	rapid.Check(t, func(rt *rapid.T) {
		eq := map[item.Slot]*item.Instance{}
		for _, slot := range item.Slots() {
			if !rapid.Bool().Draw(rt, "filled") {
				continue
			}
			res := map[string]item.Number{}
			for _, ty := range types {
				res[ty] = item.Number(rapid.Float64Range(-3, 3).Draw(rt, ty))
			}
			def := &item.Def{ID: string(slot), Name: string(slot), Slot: slot, Mods: item.Mods{Resists: res}}
			inst := item.NewInstance(def)
			inst.Extra.Resists = map[string]item.Number{
				rapid.SampledFrom(types).Draw(rt, "extraType"): item.Number(rapid.Float64Range(-3, 3).Draw(rt, "extra")),
			}
			eq[slot] = inst
		}
		c := modifier.Aggregate(eq)
		for ty, v := range c.Resists {
			if v < modifier.MinResist || v > modifier.MaxResist {
				rt.Fatalf("resist %s = %f out of bounds", ty, v)
			}
		}
		for ty, v := range c.Defense.Resists {
			if v < modifier.MinResist || v > modifier.MaxResist {
				rt.Fatalf("defense resist %s = %f out of bounds", ty, v)
			}
		}
	})
}
