package status

// AllTypes is the per-type map key that applies to every damage type.
const AllTypes = "all"

// Derived is the numeric effect of status instances. A Definition declares a
// per-stack Derived; a Set holds the sum over its active instances.
type Derived struct {
	MoveAPDelta     float64            `yaml:"move_ap_delta" json:"moveAPDelta,omitempty"`
	ActionSpeedPct  float64            `yaml:"action_speed_pct" json:"actionSpeedPct,omitempty"`
	AccuracyFlat    float64            `yaml:"accuracy_flat" json:"accuracyFlat,omitempty"`
	CritChancePct   float64            `yaml:"crit_chance_pct" json:"critChancePct,omitempty"`
	CooldownPct     float64            `yaml:"cooldown_pct" json:"cooldownPct,omitempty"`
	DamageDealtMult map[string]float64 `yaml:"damage_dealt_mult" json:"damageDealtMult,omitempty"`
	DamageTakenMult map[string]float64 `yaml:"damage_taken_mult" json:"damageTakenMult,omitempty"`
	ResistDelta     map[string]float64 `yaml:"resist_delta" json:"resistDelta,omitempty"`
}

// Scaled returns d with every field multiplied by k.
func (d Derived) Scaled(k float64) Derived {
	return Derived{
		MoveAPDelta:     d.MoveAPDelta * k,
		ActionSpeedPct:  d.ActionSpeedPct * k,
		AccuracyFlat:    d.AccuracyFlat * k,
		CritChancePct:   d.CritChancePct * k,
		CooldownPct:     d.CooldownPct * k,
		DamageDealtMult: scaleMap(d.DamageDealtMult, k),
		DamageTakenMult: scaleMap(d.DamageTakenMult, k),
		ResistDelta:     scaleMap(d.ResistDelta, k),
	}
}

// Plus returns the field-wise sum of d and o. Neither operand is modified.
func (d Derived) Plus(o Derived) Derived {
	return Derived{
		MoveAPDelta:     d.MoveAPDelta + o.MoveAPDelta,
		ActionSpeedPct:  d.ActionSpeedPct + o.ActionSpeedPct,
		AccuracyFlat:    d.AccuracyFlat + o.AccuracyFlat,
		CritChancePct:   d.CritChancePct + o.CritChancePct,
		CooldownPct:     d.CooldownPct + o.CooldownPct,
		DamageDealtMult: addMaps(d.DamageDealtMult, o.DamageDealtMult),
		DamageTakenMult: addMaps(d.DamageTakenMult, o.DamageTakenMult),
		ResistDelta:     addMaps(d.ResistDelta, o.ResistDelta),
	}
}

// DealtMult returns the additive outgoing damage modifier for damageType.
func (d Derived) DealtMult(damageType string) float64 {
	return d.DamageDealtMult[damageType] + d.DamageDealtMult[AllTypes]
}

// TakenMult returns the additive incoming damage modifier for damageType.
func (d Derived) TakenMult(damageType string) float64 {
	return d.DamageTakenMult[damageType] + d.DamageTakenMult[AllTypes]
}

// Resist returns the resist delta for damageType.
func (d Derived) Resist(damageType string) float64 {
	return d.ResistDelta[damageType] + d.ResistDelta[AllTypes]
}

// CooldownMult is the multiplicative cooldown factor contributed by statuses.
//
// Postcondition: Returns >= 0.
func (d Derived) CooldownMult() float64 {
	m := 1 + d.CooldownPct
	if m < 0 {
		return 0
	}
	return m
}

func scaleMap(m map[string]float64, k float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for key, v := range m {
		out[key] = v * k
	}
	return out
}

func addMaps(a, b map[string]float64) map[string]float64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]float64, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}
