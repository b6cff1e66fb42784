package item

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Echo configures a chance for an attack to repeat at reduced damage.
type Echo struct {
	Chance             float64
	Fraction           float64
	AllowOnKill        *bool // nil means true
	CopyStatusAttempts bool
	CopyCosts          bool
}

// AllowsOnKill reports whether an echo's own kill may grant the kill reward.
func (e *Echo) AllowsOnKill() bool {
	return e == nil || e.AllowOnKill == nil || *e.AllowOnKill
}

// OnKillHaste grants a status to the killer.
type OnKillHaste struct {
	StatusID      string
	Stacks        int
	Duration      int
	OncePerTurn   bool
	CooldownTurns int
}

// Temporal is the canonical time-economy payload. Multiplier fields of zero
// are unset.
type Temporal struct {
	ActionSpeedPct    float64
	MoveAPDelta       float64
	BaseActionAPDelta float64
	BaseActionAPMult  float64
	APGainFlat        float64
	APGainPct         float64
	CooldownMult      float64
	CooldownPct       float64
	CooldownPerTag    map[string]float64
	Echo              *Echo
	OnKillHaste       *OnKillHaste
}

// PoolMods is the canonical per-pool resource payload. CostMult of zero is unset.
type PoolMods struct {
	MaxFlat   float64
	MaxPct    float64
	RegenFlat float64
	RegenPct  float64
	StartFlat float64
	StartPct  float64
	Gain      float64
	Leech     float64
	CostMult  float64
}

// Resource is the canonical resource payload.
type Resource struct {
	Pools      map[Pool]PoolMods
	CostPerTag map[string]float64
	OnKillGain map[Pool]float64
	Channeling map[Pool]float64
}

// Combine rules for canonical fields.
type combineKind int

const (
	flatAdd combineKind = iota
	pctAdd
	multiply
)

// combine folds v into cur. For multiply a zero operand is unset.
func combine(kind combineKind, cur, v float64) float64 {
	if kind == multiply {
		switch {
		case v == 0:
			return cur
		case cur == 0:
			return v
		}
		return cur * v
	}
	return cur + v
}

// normKey lower-cases and strips separators so "hp_regen", "hpRegen" and
// "HP-Regen" collapse to one spelling.
func normKey(k string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "", ".", "").Replace(strings.ToLower(k))
}

type temporalField struct {
	kind combineKind
	set  func(t *Temporal) *float64
}

var temporalAliases = map[string]temporalField{}

func registerTemporal(kind combineKind, set func(t *Temporal) *float64, names ...string) {
	for _, n := range names {
		temporalAliases[normKey(n)] = temporalField{kind: kind, set: set}
	}
}

func init() {
	registerTemporal(pctAdd, func(t *Temporal) *float64 { return &t.ActionSpeedPct },
		"actionSpeedPct", "actionSpeed", "actionSpeedPercent", "speedPct")
	registerTemporal(flatAdd, func(t *Temporal) *float64 { return &t.MoveAPDelta },
		"moveAPDelta", "moveAP", "moveCostDelta", "moveDelta")
	registerTemporal(flatAdd, func(t *Temporal) *float64 { return &t.BaseActionAPDelta },
		"baseActionAPDelta", "actionAPDelta", "apCostDelta")
	registerTemporal(multiply, func(t *Temporal) *float64 { return &t.BaseActionAPMult },
		"baseActionAPMult", "actionAPMult", "apCostMult")
	registerTemporal(flatAdd, func(t *Temporal) *float64 { return &t.APGainFlat },
		"apGain", "apGainFlat", "apPerTurn")
	registerTemporal(pctAdd, func(t *Temporal) *float64 { return &t.APGainPct },
		"apGainPct", "apGainPercent")
	registerTemporal(multiply, func(t *Temporal) *float64 { return &t.CooldownMult },
		"cooldownMult", "cdMult")
	registerTemporal(pctAdd, func(t *Temporal) *float64 { return &t.CooldownPct },
		"cooldownPct", "cdPct")
}

// NormalizeTemporal folds a raw temporal payload of arbitrary spellings into
// the canonical shape. Unknown keys are ignored; malformed numbers count as zero.
func NormalizeTemporal(raw map[string]any) Temporal {
	var t Temporal
	for k, v := range raw {
		key := normKey(k)
		if f, ok := temporalAliases[key]; ok {
			p := f.set(&t)
			*p = combine(f.kind, *p, coerce(v))
			continue
		}
		switch key {
		case "cooldownpertag", "cdpertag":
			t.CooldownPerTag = foldFloatMap(t.CooldownPerTag, v, multiply)
		case "echo":
			t.Echo = normalizeEcho(v)
		case "onkillhaste", "hasteonkill":
			t.OnKillHaste = normalizeOnKillHaste(v)
		}
	}
	return t
}

func normalizeEcho(v any) *Echo {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	e := &Echo{}
	for k, val := range m {
		switch normKey(k) {
		case "chance", "pct":
			e.Chance = coerce(val)
		case "fraction", "damagefraction", "scalar", "mult":
			e.Fraction = coerce(val)
		case "allowonkill":
			b := coerceBool(val)
			e.AllowOnKill = &b
		case "copystatusattempts", "copystatuses":
			e.CopyStatusAttempts = coerceBool(val)
		case "copycosts", "copyresourcecosts":
			e.CopyCosts = coerceBool(val)
		}
	}
	return e
}

func normalizeOnKillHaste(v any) *OnKillHaste {
	h := &OnKillHaste{StatusID: "haste", Stacks: 1}
	m, ok := v.(map[string]any)
	if !ok {
		// Scalar form is the duration in turns.
		d := int(coerce(v))
		if d <= 0 {
			return nil
		}
		h.Duration = d
		return h
	}
	for k, val := range m {
		switch normKey(k) {
		case "status", "statusid", "id":
			if s, ok := val.(string); ok && s != "" {
				h.StatusID = s
			}
		case "stacks":
			h.Stacks = int(coerce(val))
		case "duration", "turns":
			h.Duration = int(coerce(val))
		case "onceperturn":
			h.OncePerTurn = coerceBool(val)
		case "cooldownturns", "cooldown":
			h.CooldownTurns = int(coerce(val))
		}
	}
	return h
}

// UnmarshalYAML normalizes aliases at ingestion.
func (t *Temporal) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		*t = Temporal{}
		return nil
	}
	*t = NormalizeTemporal(raw)
	return nil
}

type poolField struct {
	kind combineKind
	set  func(m *PoolMods) *float64
}

var (
	poolSpellings = map[Pool][]string{
		PoolHP:      {"hp", "health", "life"},
		PoolStamina: {"stamina", "sta"},
		PoolMana:    {"mana", "mp"},
	}
	// poolFieldSpellings use {p} for the pool name.
	poolFieldSpellings = []struct {
		field poolField
		names []string
	}{
		{poolField{flatAdd, func(m *PoolMods) *float64 { return &m.RegenFlat }},
			[]string{"{p}Regen", "{p}RegenFlat", "{p}RegenPerTurn", "regen{p}"}},
		{poolField{pctAdd, func(m *PoolMods) *float64 { return &m.RegenPct }},
			[]string{"{p}RegenPct", "{p}RegenPercent"}},
		{poolField{flatAdd, func(m *PoolMods) *float64 { return &m.MaxFlat }},
			[]string{"max{p}", "{p}Max", "max{p}Flat", "{p}MaxFlat"}},
		{poolField{pctAdd, func(m *PoolMods) *float64 { return &m.MaxPct }},
			[]string{"max{p}Pct", "{p}MaxPct", "max{p}Percent"}},
		{poolField{flatAdd, func(m *PoolMods) *float64 { return &m.StartFlat }},
			[]string{"{p}Start", "start{p}", "{p}StartFlat"}},
		{poolField{pctAdd, func(m *PoolMods) *float64 { return &m.StartPct }},
			[]string{"{p}StartPct", "start{p}Pct"}},
		{poolField{flatAdd, func(m *PoolMods) *float64 { return &m.Gain }},
			[]string{"{p}Gain", "{p}OnHit", "{p}GainOnHit"}},
		{poolField{pctAdd, func(m *PoolMods) *float64 { return &m.Leech }},
			[]string{"{p}Leech", "{p}Steal"}},
		{poolField{multiply, func(m *PoolMods) *float64 { return &m.CostMult }},
			[]string{"{p}CostMult", "{p}Cost"}},
	}
	// poolAliases maps normalized key -> (pool, field).
	poolAliases = map[string]struct {
		pool  Pool
		field poolField
	}{}
	// nestedPoolFields maps a field name used inside a nested pool block.
	nestedPoolFields = map[string]poolField{}
)

func init() {
	for pool, spellings := range poolSpellings {
		for _, ps := range spellings {
			for _, f := range poolFieldSpellings {
				for _, n := range f.names {
					key := normKey(strings.ReplaceAll(n, "{p}", ps))
					poolAliases[key] = struct {
						pool  Pool
						field poolField
					}{pool, f.field}
				}
			}
		}
	}
	for _, f := range poolFieldSpellings {
		for _, n := range f.names {
			nestedPoolFields[normKey(strings.ReplaceAll(n, "{p}", ""))] = f.field
		}
	}
	leech := poolFieldSpellings[7].field
	for _, n := range []string{"lifesteal", "lifeLeech"} {
		poolAliases[normKey(n)] = struct {
			pool  Pool
			field poolField
		}{PoolHP, leech}
	}
}

func poolByName(name string) (Pool, bool) {
	key := normKey(name)
	for pool, spellings := range poolSpellings {
		for _, s := range spellings {
			if s == key {
				return pool, true
			}
		}
	}
	return "", false
}

// NormalizeResource folds a raw resource payload into the canonical shape.
// Both flat keys ("hpRegenPerTurn") and nested pool blocks ("hp: {regen: 2}")
// are accepted.
func NormalizeResource(raw map[string]any) Resource {
	r := Resource{Pools: make(map[Pool]PoolMods)}
	apply := func(pool Pool, f poolField, v any) {
		m := r.Pools[pool]
		p := f.set(&m)
		*p = combine(f.kind, *p, coerce(v))
		r.Pools[pool] = m
	}
	for k, v := range raw {
		key := normKey(k)
		if a, ok := poolAliases[key]; ok {
			apply(a.pool, a.field, v)
			continue
		}
		if pool, ok := poolByName(k); ok {
			if nested, ok := v.(map[string]any); ok {
				for nk, nv := range nested {
					if f, ok := nestedPoolFields[normKey(nk)]; ok {
						apply(pool, f, nv)
					}
				}
			}
			continue
		}
		switch key {
		case "costpertag":
			r.CostPerTag = foldFloatMap(r.CostPerTag, v, multiply)
		case "onkillgain", "gainonkill":
			r.OnKillGain = foldPoolMap(r.OnKillGain, v)
		case "channeling", "channel":
			r.Channeling = foldPoolMap(r.Channeling, v)
		}
	}
	return r
}

// UnmarshalYAML normalizes aliases at ingestion.
func (r *Resource) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		*r = Resource{}
		return nil
	}
	*r = NormalizeResource(raw)
	return nil
}

func foldFloatMap(dst map[string]float64, v any, kind combineKind) map[string]float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return dst
	}
	if dst == nil {
		dst = make(map[string]float64, len(m))
	}
	for k, val := range m {
		dst[k] = combine(kind, dst[k], coerce(val))
	}
	return dst
}

func foldPoolMap(dst map[Pool]float64, v any) map[Pool]float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return dst
	}
	if dst == nil {
		dst = make(map[Pool]float64, len(m))
	}
	for k, val := range m {
		if pool, ok := poolByName(k); ok {
			dst[pool] += coerce(val)
		}
	}
	return dst
}

// Merge folds o into t using each field's combine rule.
func (t Temporal) Merge(o Temporal) Temporal {
	t.ActionSpeedPct += o.ActionSpeedPct
	t.MoveAPDelta += o.MoveAPDelta
	t.BaseActionAPDelta += o.BaseActionAPDelta
	t.BaseActionAPMult = combine(multiply, t.BaseActionAPMult, o.BaseActionAPMult)
	t.APGainFlat += o.APGainFlat
	t.APGainPct += o.APGainPct
	t.CooldownMult = combine(multiply, t.CooldownMult, o.CooldownMult)
	t.CooldownPct += o.CooldownPct
	t.CooldownPerTag = mergeFloatMap(t.CooldownPerTag, o.CooldownPerTag, multiply)
	t.Echo = mergeEcho(t.Echo, o.Echo)
	t.OnKillHaste = mergeOnKillHaste(t.OnKillHaste, o.OnKillHaste)
	return t
}

// mergeEcho sums chances, keeps the largest fraction, ANDs AllowOnKill and ORs
// the copy flags.
func mergeEcho(a, b *Echo) *Echo {
	if a == nil {
		if b == nil {
			return nil
		}
		c := *b
		return &c
	}
	if b == nil {
		return a
	}
	out := *a
	out.Chance += b.Chance
	out.Fraction = max(out.Fraction, b.Fraction)
	if a.AllowOnKill != nil || b.AllowOnKill != nil {
		allow := a.AllowsOnKill() && b.AllowsOnKill()
		out.AllowOnKill = &allow
	}
	out.CopyStatusAttempts = a.CopyStatusAttempts || b.CopyStatusAttempts
	out.CopyCosts = a.CopyCosts || b.CopyCosts
	return &out
}

// mergeOnKillHaste keeps the first status ID and the largest stacks and duration.
func mergeOnKillHaste(a, b *OnKillHaste) *OnKillHaste {
	if a == nil {
		if b == nil {
			return nil
		}
		c := *b
		return &c
	}
	if b == nil {
		return a
	}
	out := *a
	out.Stacks = max(out.Stacks, b.Stacks)
	out.Duration = max(out.Duration, b.Duration)
	out.OncePerTurn = a.OncePerTurn || b.OncePerTurn
	out.CooldownTurns = max(out.CooldownTurns, b.CooldownTurns)
	return &out
}

// Merge folds o into r using each field's combine rule.
func (r Resource) Merge(o Resource) Resource {
	pools := make(map[Pool]PoolMods, len(r.Pools)+len(o.Pools))
	for p, m := range r.Pools {
		pools[p] = m
	}
	for p, m := range o.Pools {
		cur := pools[p]
		cur.MaxFlat += m.MaxFlat
		cur.MaxPct += m.MaxPct
		cur.RegenFlat += m.RegenFlat
		cur.RegenPct += m.RegenPct
		cur.StartFlat += m.StartFlat
		cur.StartPct += m.StartPct
		cur.Gain += m.Gain
		cur.Leech += m.Leech
		cur.CostMult = combine(multiply, cur.CostMult, m.CostMult)
		pools[p] = cur
	}
	r.Pools = pools
	r.CostPerTag = mergeFloatMap(r.CostPerTag, o.CostPerTag, multiply)
	r.OnKillGain = mergePoolMap(r.OnKillGain, o.OnKillGain)
	r.Channeling = mergePoolMap(r.Channeling, o.Channeling)
	return r
}

// Pool returns the mods for p; the zero value when none are set.
func (r Resource) Pool(p Pool) PoolMods {
	return r.Pools[p]
}

func mergeFloatMap(dst, src map[string]float64, kind combineKind) map[string]float64 {
	if len(src) == 0 {
		return dst
	}
	out := make(map[string]float64, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = combine(kind, out[k], v)
	}
	return out
}

func mergePoolMap(dst, src map[Pool]float64) map[Pool]float64 {
	if len(src) == 0 {
		return dst
	}
	out := make(map[Pool]float64, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] += v
	}
	return out
}
