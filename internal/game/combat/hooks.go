package combat

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// defaultEchoFraction is used when an echo payload sets no fraction.
const defaultEchoFraction = 0.5

// RewardState tracks the kill reward of one attack chain.
type RewardState int

const (
	NotRewarded RewardState = iota
	Rewarded
)

// String returns the reward state name.
func (s RewardState) String() string {
	if s == Rewarded {
		return "rewarded"
	}
	return "not_rewarded"
}

// Chain is the bookkeeping shared by a primary hit and its echo.
type Chain struct {
	ID     string
	Reward RewardState

	resolved bool
}

// Outcome is the result of a full attack chain.
type Outcome struct {
	ChainID string
	Primary Result
	// Echo is set when the echo fired.
	Echo *Result
	// Killed is true when the defender was defeated by the chain.
	Killed bool
	Reward RewardState
	// Hit and Crit are set by the action layer.
	Hit  bool
	Crit bool
	// APSpent and Cooldown are set by the action layer.
	APSpent  int
	Cooldown int
}

// TotalDamage returns the chain's total damage, echo included.
func (o Outcome) TotalDamage() int {
	n := o.Primary.TotalDamage
	if o.Echo != nil {
		n += o.Echo.TotalDamage
	}
	return n
}

// Strike resolves ctx and runs the post-damage hooks: on-hit resource gain and
// leech, attunement gain, the once-per-chain kill reward and at most one echo.
//
// Precondition: ctx.Attacker, ctx.Defender and ctx.Rng must be non-nil.
// Postcondition: the echo fires at most once and the kill reward is granted at
// most once for the chain.
func (r *Resolver) Strike(ctx *AttackContext) Outcome {
	if ctx.ChainID == "" {
		ctx.ChainID = uuid.NewString()
	}
	if ctx.DamageScalar == 0 {
		ctx.DamageScalar = 1
	}
	chain := &Chain{ID: ctx.ChainID}
	out := Outcome{ChainID: chain.ID}
	r.strike(ctx, chain, &out)
	out.Reward = chain.Reward
	return out
}

func (r *Resolver) strike(ctx *AttackContext, chain *Chain, out *Outcome) {
	res := r.Resolve(ctx)
	switch {
	case ctx.IsEcho && chain.resolved:
		out.Echo = &res
	default:
		// An echo context passed in directly is the only hit of its chain.
		out.Primary = res
		if !ctx.IsEcho {
			r.gainAttunement(ctx.Attacker, res)
		}
	}
	chain.resolved = true
	r.onHitResources(ctx.Attacker, res)

	if resource.IsDefeated(ctx.Defender) {
		out.Killed = true
		allow := true
		if ctx.IsEcho {
			allow = ctx.Attacker.ModCache.Temporal.Echo.AllowsOnKill()
		}
		if allow {
			r.grantKillReward(ctx, chain)
		}
	}
	r.echo(ctx, chain, out)
}

// echo re-invokes strike once with a cloned context. IsEcho stops any further chaining.
func (r *Resolver) echo(ctx *AttackContext, chain *Chain, out *Outcome) {
	if ctx.IsEcho {
		return
	}
	e := ctx.Attacker.ModCache.Temporal.Echo
	if e == nil || !dice.Chance(ctx.Rng, e.Chance) {
		return
	}
	ec := ctx.Clone()
	ec.IsEcho = true
	fraction := e.Fraction
	if fraction <= 0 {
		fraction = defaultEchoFraction
	}
	ec.DamageScalar *= fraction
	if !e.CopyStatusAttempts {
		ec.StatusAttempts = nil
		ec.SkipBrandStatuses = true
	}
	if e.CopyCosts && !resource.Pay(ctx.Attacker, ctx.Costs, ctx.Tags) {
		r.logger.Debug("echo skipped: cannot pay costs", zap.String("chain", chain.ID))
		return
	}
	r.strike(ec, chain, out)
}

// grantKillReward applies on-kill haste and resource gain once per chain.
func (r *Resolver) grantKillReward(ctx *AttackContext, chain *Chain) {
	if chain.Reward == Rewarded {
		return
	}
	chain.Reward = Rewarded
	atk := ctx.Attacker

	if h := atk.ModCache.Temporal.OnKillHaste; h != nil && hasteReady(atk, h, ctx.Turn) {
		attempt := status.Attempt{
			ID:         h.StatusID,
			BaseChance: 1,
			Stacks:     max(1, h.Stacks),
			Duration:   h.Duration,
			Source:     atk.ID,
		}
		r.engine.Apply(ctx.Rng, []status.Attempt{attempt}, atk.Participant(), atk.Participant(), ctx.Turn)
		atk.KillReward.LastTurn = ctx.Turn
		atk.KillReward.ReadyAt = ctx.Turn + h.CooldownTurns
	}
	for _, p := range item.Pools() {
		if amt := atk.ModCache.Resource.OnKillGain[p]; amt > 0 {
			resource.Gain(atk, p, int(math.Round(amt)))
		}
	}
	r.logger.Debug("kill reward granted",
		zap.String("chain", chain.ID),
		zap.String("attacker", atk.ID),
		zap.String("defender", ctx.Defender.ID),
	)
}

func hasteReady(a *actor.State, h *item.OnKillHaste, turn int) bool {
	if h.OncePerTurn && a.KillReward.LastTurn == turn {
		return false
	}
	if h.CooldownTurns > 0 && a.KillReward.LastTurn >= 0 && turn < a.KillReward.ReadyAt {
		return false
	}
	return true
}

// onHitResources applies per-pool Gain and Leech for a damaging hit. Leech is
// a share of the HP actually removed, so overkill heals nothing.
func (r *Resolver) onHitResources(a *actor.State, res Result) {
	if res.TotalDamage <= 0 {
		return
	}
	for _, p := range item.Pools() {
		m := a.ModCache.Resource.Pool(p)
		amt := m.Gain + float64(res.HPLost)*m.Leech
		if amt > 0 {
			resource.Gain(a, p, int(math.Round(amt)))
		}
	}
}

// gainAttunement adds one stack per dealt damage type, capped.
func (r *Resolver) gainAttunement(a *actor.State, res Result) {
	if r.cfg.AttunementCap <= 0 {
		return
	}
	for t, v := range res.PacketsAfterDefense {
		if v > 0 {
			a.Attunement[t] = min(r.cfg.AttunementCap, a.Attunement[t]+1)
		}
	}
}
