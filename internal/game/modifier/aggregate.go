package modifier

import (
	"github.com/cory-johannsen/gauntlet/internal/game/item"
)

// Aggregate folds every equipped item into a fresh Cache. Items are folded in
// canonical slot order; for each item the template mods come before the
// instance extras. Empty slots and nil instances are skipped.
//
// Postcondition: every value in Resists and Defense.Resists lies in
// [MinResist, MaxResist].
func Aggregate(equipment map[item.Slot]*item.Instance) Cache {
	f := newFolder()
	for _, slot := range item.Slots() {
		inst := equipment[slot]
		if inst == nil {
			continue
		}
		if inst.Def != nil {
			f.fold(inst.Def.Mods)
		}
		f.fold(inst.Extra)
	}
	return f.finish()
}

type folder struct {
	c Cache
}

func newFolder() *folder {
	return &folder{c: Cache{
		Resists:    map[string]float64{},
		Affinities: map[string]float64{},
		Immunities: map[string]bool{},
	}}
}

func (f *folder) fold(m item.Mods) {
	c := &f.c
	for _, b := range m.Brands {
		if b.Type == "" {
			continue
		}
		brand := Brand{Type: b.Type, Flat: b.Flat.Float(), Pct: b.Pct.Float()}
		for _, oh := range b.OnHit {
			if oh.ID != "" {
				brand.OnHit = append(brand.OnHit, oh.Attempt())
			}
		}
		c.Brands = append(c.Brands, brand)
	}
	for _, cv := range m.Conversions {
		if cv.From == "" || cv.To == "" {
			continue
		}
		c.Conversions = append(c.Conversions, Conversion{From: cv.From, To: cv.To, Pct: cv.Pct.Float()})
	}
	for t, v := range m.Resists {
		c.Resists[t] += v.Float()
	}
	for t, v := range m.Affinities {
		c.Affinities[t] += v.Float()
	}
	for _, t := range m.Immunities {
		c.Immunities[t] = true
	}
	c.DmgMult = mul(c.DmgMult, m.DmgMult.Float())
	c.SpeedMult = mul(c.SpeedMult, m.SpeedMult.Float())

	c.Offense.Polarity = c.Offense.Polarity.Add(m.Polarity.Grants)
	c.Polarity.OnHitBias = c.Polarity.OnHitBias.Add(m.Polarity.OnHitBias)
	c.Polarity.DefenseBias = c.Polarity.DefenseBias.Add(m.Polarity.DefenseBias)

	c.Status.InflictBonus += m.Status.InflictBonus.Float()
	c.Status.ResistBonus += m.Status.ResistBonus.Float()
	c.Status.BuffDurMult = mul(c.Status.BuffDurMult, m.Status.BuffDurMult.Float())
	c.Status.FreeActionIgnore += m.Status.FreeActionIgnore.Float()

	c.Temporal = c.Temporal.Merge(m.Temporal)
	c.Resource = c.Resource.Merge(m.Resource)
}

// finish resolves neutral multipliers, builds the mirrors and clamps resists.
func (f *folder) finish() Cache {
	c := f.c
	c.DmgMult = orOne(c.DmgMult)
	c.SpeedMult = orOne(c.SpeedMult)
	c.Status.BuffDurMult = orOne(c.Status.BuffDurMult)
	c.Temporal.BaseActionAPMult = orOne(c.Temporal.BaseActionAPMult)
	c.Temporal.CooldownMult = orOne(c.Temporal.CooldownMult)
	if c.Resource.Pools == nil {
		c.Resource.Pools = map[item.Pool]item.PoolMods{}
	}

	for t, v := range c.Resists {
		c.Resists[t] = clampResist(v)
	}
	c.Defense = Defense{
		Resists:    make(map[string]float64, len(c.Resists)),
		Immunities: make(map[string]bool, len(c.Immunities)),
		Polarity:   c.Offense.Polarity,
	}
	for t, v := range c.Resists {
		c.Defense.Resists[t] = clampResist(v)
	}
	for t := range c.Immunities {
		c.Defense.Immunities[t] = true
	}

	c.Offense.Affinities = make(map[string]float64, len(c.Affinities))
	for t, v := range c.Affinities {
		c.Offense.Affinities[t] = v
	}
	c.Offense.Conversions = append([]Conversion(nil), c.Conversions...)
	c.Offense.BrandAdds = append([]Brand(nil), c.Brands...)
	return c
}

func clampResist(v float64) float64 {
	if v < MinResist {
		return MinResist
	}
	if v > MaxResist {
		return MaxResist
	}
	return v
}

func mul(cur, v float64) float64 {
	if v == 0 {
		return cur
	}
	if cur == 0 {
		return v
	}
	return cur * v
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
