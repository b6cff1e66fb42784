package combat

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// MaxEffectiveResist caps the resist applied in the defense stage.
const MaxEffectiveResist = 0.95

// Packet is a typed damage quantity flowing through one resolution.
type Packet struct {
	Type   string
	Amount int
}

// AttackContext is the per-call input of Resolve. It is discarded once a
// Result is returned.
type AttackContext struct {
	Attacker       *actor.State
	Defender       *actor.State
	Turn           int
	Packets        []Packet
	StatusAttempts []status.Attempt
	// DamageScalar is 1 for a primary hit and the echo fraction for an echo.
	DamageScalar float64
	IsEcho       bool
	Rng          dice.Source
	ChainID      string

	// SkipBrandStatuses suppresses brand on-hit attempts.
	SkipBrandStatuses bool
	// Costs and Tags describe the action that produced the attack.
	Costs resource.Costs
	Tags  []string
	// Trace records per-stage packet totals in the Result.
	Trace bool
}

// Clone returns a copy of c with independent slices. Actors and Rng are shared.
func (c *AttackContext) Clone() *AttackContext {
	out := *c
	out.Packets = append([]Packet(nil), c.Packets...)
	out.StatusAttempts = append([]status.Attempt(nil), c.StatusAttempts...)
	out.Tags = append([]string(nil), c.Tags...)
	if c.Costs != nil {
		out.Costs = make(resource.Costs, len(c.Costs))
		for k, v := range c.Costs {
			out.Costs[k] = v
		}
	}
	return &out
}

// Stage names the steps of the resolution pipeline.
type Stage string

const (
	StageConversion Stage = "conversion"
	StageBrand      Stage = "brand"
	StageAttunement Stage = "attunement"
	StageAffinity   Stage = "affinity"
	StagePolarity   Stage = "polarity"
	StageDefense    Stage = "defense"
	StageScalar     Stage = "scalar"
)

// StageTrace is the per-type packet total after one stage.
type StageTrace struct {
	Stage   Stage
	Packets map[string]int
}

// Result is the outcome of one Resolve call.
type Result struct {
	PacketsAfterDefense map[string]int
	TotalDamage         int
	AppliedStatuses     []string
	// HPLost is the HP actually removed from the defender.
	HPLost int
	Trace  []StageTrace
}

// Resolver runs the damage pipeline and applies on-hit statuses.
type Resolver struct {
	engine *status.Engine
	cfg    Config
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: engine must be non-nil.
func NewResolver(engine *status.Engine, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{engine: engine, cfg: cfg, logger: logger}
}

// Engine returns the status engine used for on-hit attempts.
func (r *Resolver) Engine() *status.Engine { return r.engine }

// Resolve runs the ordered pipeline over ctx.Packets, reduces defender HP by
// the total and applies brand and context status attempts. Missing modifier
// data is neutral.
//
// Precondition: ctx.Attacker and ctx.Defender must be non-nil.
// Postcondition: TotalDamage equals the sum of PacketsAfterDefense and is >= 0.
func (r *Resolver) Resolve(ctx *AttackContext) Result {
	atk, def := ctx.Attacker, ctx.Defender
	var res Result
	trace := func(s Stage, ps []Packet) {
		if ctx.Trace {
			res.Trace = append(res.Trace, StageTrace{Stage: s, Packets: collapse(ps)})
		}
	}

	ps := r.convert(atk, ctx.Packets)
	trace(StageConversion, ps)

	var attempts []status.Attempt
	ps, attempts = r.brand(atk, ps)
	if ctx.SkipBrandStatuses {
		attempts = nil
	}
	trace(StageBrand, ps)

	ps = scale(ps, func(t string) float64 {
		return 1 + float64(atk.Attunement[t])*r.cfg.AttunementStep
	})
	trace(StageAttunement, ps)

	derived := atk.Derived()
	ps = scale(ps, func(t string) float64 {
		return nonNegative(1+atk.ModCache.Affinity(t)) * atk.ModCache.DmgMult * nonNegative(1+derived.DealtMult(t))
	})
	trace(StageAffinity, ps)

	offense := polarity.OffenseScalar(atk.Polarity(), atk.ModCache.Polarity.OnHitBias, def.Polarity())
	ps = scale(ps, func(string) float64 { return offense })
	trace(StagePolarity, ps)

	ps = r.defend(atk, def, ps)
	trace(StageDefense, ps)

	scalar := nonNegative(ctx.DamageScalar)
	ps = scale(ps, func(string) float64 { return scalar })
	trace(StageScalar, ps)

	res.PacketsAfterDefense = collapse(ps)
	for _, v := range res.PacketsAfterDefense {
		res.TotalDamage += v
	}
	res.HPLost = def.TakeDamage(res.TotalDamage)

	attempts = append(attempts, ctx.StatusAttempts...)
	if len(attempts) > 0 && !resource.IsDefeated(def) {
		res.AppliedStatuses = r.engine.Apply(ctx.Rng, attempts, atk.Participant(), def.Participant(), ctx.Turn)
	}

	r.logger.Debug("attack resolved",
		zap.String("chain", ctx.ChainID),
		zap.String("attacker", atk.ID),
		zap.String("defender", def.ID),
		zap.Bool("echo", ctx.IsEcho),
		zap.Int("total", res.TotalDamage),
		zap.Strings("statuses", res.AppliedStatuses),
	)
	return res
}

// convert moves each conversion's share of matching packets into the target
// type. Shares are taken from the original amount; the unclaimed remainder
// keeps its type. The result is merged by type in first-seen order.
func (r *Resolver) convert(atk *actor.State, in []Packet) []Packet {
	convs := atk.ModCache.Offense.Conversions
	var out []Packet
	for _, p := range in {
		if p.Amount <= 0 {
			continue
		}
		remaining := p.Amount
		for _, cv := range convs {
			if cv.From != p.Type || remaining == 0 {
				continue
			}
			moved := min(remaining, floorInt(float64(p.Amount)*clamp01(cv.Pct)))
			if moved > 0 {
				out = append(out, Packet{Type: cv.To, Amount: moved})
				remaining -= moved
			}
		}
		if remaining > 0 {
			out = append(out, Packet{Type: p.Type, Amount: remaining})
		}
	}
	return merge(out)
}

// brand applies each matching brand as flat add then percent, flooring after
// each brand, and collects the on-hit attempts of every brand that matched.
func (r *Resolver) brand(atk *actor.State, in []Packet) ([]Packet, []status.Attempt) {
	var attempts []status.Attempt
	out := make([]Packet, len(in))
	matched := make([]bool, len(atk.ModCache.Offense.BrandAdds))
	for i, p := range in {
		amt := float64(p.Amount)
		for bi, b := range atk.ModCache.Offense.BrandAdds {
			if b.Type != p.Type {
				continue
			}
			amt = float64(floorInt((amt + b.Flat) * nonNegative(1+b.Pct)))
			matched[bi] = true
		}
		out[i] = Packet{Type: p.Type, Amount: max(0, int(amt))}
	}
	for bi, b := range atk.ModCache.Offense.BrandAdds {
		if !matched[bi] {
			continue
		}
		for _, a := range b.OnHit {
			a.Source = atk.ID
			attempts = append(attempts, a)
		}
	}
	return out, attempts
}

// defend drops immune packets and applies resist, damage-taken and polarity
// defense multipliers.
func (r *Resolver) defend(atk, def *actor.State, in []Packet) []Packet {
	derived := def.Derived()
	defense := polarity.DefenseScalar(def.Polarity(), def.ModCache.Polarity.DefenseBias, atk.Polarity())
	out := make([]Packet, 0, len(in))
	for _, p := range in {
		if def.ModCache.Immune(p.Type) {
			continue
		}
		resist := clamp(def.ModCache.Resist(p.Type)+derived.Resist(p.Type), 0, MaxEffectiveResist)
		amt := float64(p.Amount) * (1 - resist) * nonNegative(1+derived.TakenMult(p.Type)) * defense
		out = append(out, Packet{Type: p.Type, Amount: floorInt(amt)})
	}
	return out
}

func scale(in []Packet, factor func(t string) float64) []Packet {
	out := make([]Packet, len(in))
	for i, p := range in {
		out[i] = Packet{Type: p.Type, Amount: floorInt(float64(p.Amount) * factor(p.Type))}
	}
	return out
}

// merge sums packets of the same type, keeping first-seen order.
func merge(in []Packet) []Packet {
	idx := make(map[string]int, len(in))
	var out []Packet
	for _, p := range in {
		if i, ok := idx[p.Type]; ok {
			out[i].Amount += p.Amount
			continue
		}
		idx[p.Type] = len(out)
		out = append(out, p)
	}
	return out
}

// collapse sums packets by type, omitting zero amounts.
func collapse(in []Packet) map[string]int {
	out := make(map[string]int, len(in))
	for _, p := range in {
		if p.Amount > 0 {
			out[p.Type] += p.Amount
		}
	}
	return out
}

// floorInt floors x, absorbing float error just below an integer, and never
// returns a negative amount.
func floorInt(x float64) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return math.MaxInt32
	}
	return int(math.Floor(x + 1e-9))
}

func nonNegative(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	return x
}

func clamp01(x float64) float64 { return clamp(x, 0, 1) }

func clamp(x, lo, hi float64) float64 {
	if x < lo || math.IsNaN(x) {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
