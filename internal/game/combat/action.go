package combat

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
	"github.com/cory-johannsen/gauntlet/internal/game/tempo"
)

// AttackSpec is a fully described attack action.
type AttackSpec struct {
	// Key identifies the action for cooldown tracking.
	Key      string
	BaseAP   int
	Cooldown int
	Tags     []string
	Costs    resource.Costs
	Damage   dice.Expression
	Type     string
	// StatusAttempts are applied on hit in addition to brand statuses.
	StatusAttempts []status.Attempt
}

// WeaponAttack builds the attack spec of a's equipped weapon.
//
// Postcondition: Returns false when a has no weapon equipped.
func WeaponAttack(a *actor.State) (AttackSpec, bool) {
	inst := a.Weapon()
	if inst == nil {
		return AttackSpec{}, false
	}
	w := inst.Weapon()
	expr, err := dice.Parse(w.Damage)
	if err != nil {
		return AttackSpec{}, false
	}
	spec := AttackSpec{
		Key:      inst.Def.ID,
		BaseAP:   w.AP.Int(),
		Cooldown: w.Cooldown.Int(),
		Tags:     append([]string(nil), w.Tags...),
		Damage:   expr,
		Type:     w.Type,
	}
	if len(w.Costs) > 0 {
		spec.Costs = make(resource.Costs, len(w.Costs))
		for p, v := range w.Costs {
			spec.Costs[p] = v.Float()
		}
	}
	return spec, true
}

// Actions is the action layer entry point used by policies and the turn loop.
type Actions struct {
	resolver *Resolver
	cfg      Config
	logger   *zap.Logger
}

// NewActions creates an Actions bound to resolver.
//
// Precondition: resolver must be non-nil.
func NewActions(resolver *Resolver, cfg Config, logger *zap.Logger) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actions{resolver: resolver, cfg: cfg, logger: logger}
}

// Resolver returns the underlying resolver.
func (x *Actions) Resolver() *Resolver { return x.resolver }

// Attack performs spec from attacker against defender on round. It checks
// cooldown, AP and resource costs before committing anything; after
// committing it rolls to hit and crit, resolves the attack chain and starts
// the cooldown.
//
// Precondition: rng must be non-nil.
// Postcondition: Returns false with attacker and defender unchanged when any
// precondition fails. A miss still consumes AP, costs and cooldown.
func (x *Actions) Attack(attacker, defender *actor.State, spec AttackSpec, round int, rng dice.Source) (Outcome, bool) {
	if attacker == nil || defender == nil || spec.Type == "" || spec.Damage.Raw == "" {
		return Outcome{}, false
	}
	if resource.IsDefeated(attacker) || resource.IsDefeated(defender) {
		return Outcome{}, false
	}
	if !tempo.IsReady(attacker, spec.Key) {
		return Outcome{}, false
	}
	cost := tempo.FinalAPForAction(attacker, spec.BaseAP, spec.Tags)
	if !tempo.CanAfford(attacker, cost) {
		return Outcome{}, false
	}
	if !resource.CanPay(attacker, spec.Costs, spec.Tags) {
		return Outcome{}, false
	}
	tempo.Spend(attacker, cost)
	resource.Pay(attacker, spec.Costs, spec.Tags)

	derived := attacker.Derived()
	var out Outcome
	if dice.Chance(rng, x.cfg.BaseHitChance+derived.AccuracyFlat) {
		base := dice.Roll(spec.Damage, rng).Total()
		crit := dice.Chance(rng, derived.CritChancePct)
		if crit && x.cfg.CritMultiplier > 0 {
			base = int(math.Floor(float64(base) * x.cfg.CritMultiplier))
		}
		ctx := &AttackContext{
			Attacker:       attacker,
			Defender:       defender,
			Turn:           round,
			Packets:        []Packet{{Type: spec.Type, Amount: max(0, base)}},
			StatusAttempts: append([]status.Attempt(nil), spec.StatusAttempts...),
			DamageScalar:   1,
			Rng:            rng,
			Costs:          spec.Costs,
			Tags:           spec.Tags,
		}
		out = x.resolver.Strike(ctx)
		out.Hit = true
		out.Crit = crit
	}
	out.APSpent = cost
	out.Cooldown = tempo.StartCooldown(attacker, spec.Key, spec.Cooldown, spec.Tags)

	x.logger.Debug("attack action",
		zap.String("attacker", attacker.ID),
		zap.String("defender", defender.ID),
		zap.String("action", spec.Key),
		zap.Bool("hit", out.Hit),
		zap.Bool("crit", out.Crit),
		zap.Int("damage", out.TotalDamage()),
		zap.Int("ap", cost),
	)
	return out, true
}

// Unarmed is the fallback attack of an actor without a weapon.
func Unarmed() AttackSpec {
	return AttackSpec{
		Key:    "unarmed",
		BaseAP: 100,
		Damage: dice.MustParse("1d3"),
		Type:   "physical",
		Tags:   []string{"melee"},
	}
}

// weaponOrUnarmed returns the weapon spec of a, falling back to Unarmed.
func weaponOrUnarmed(a *actor.State) AttackSpec {
	if spec, ok := WeaponAttack(a); ok {
		return spec
	}
	return Unarmed()
}
