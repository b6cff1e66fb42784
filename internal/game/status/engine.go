package status

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
)

// Modifiers are the status-related modifier totals of one participant.
// BuffDurMult of zero is unset.
type Modifiers struct {
	InflictBonus     float64
	ResistBonus      float64
	BuffDurMult      float64
	FreeActionIgnore float64
}

// Participant is one side of a status application.
type Participant struct {
	Host Host
	Set  *Set
	Mods Modifiers
}

// Engine applies and ticks statuses against a Registry.
type Engine struct {
	reg    *Registry
	src    dice.Source
	logger *zap.Logger
}

// NewEngine creates an Engine. src is the default chance source used when a
// call does not supply its own; a nil logger is replaced with a no-op logger.
//
// Precondition: reg and src must be non-nil.
func NewEngine(reg *Registry, src dice.Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{reg: reg, src: src, logger: logger}
}

// Registry returns the engine's definition registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Apply resolves each attempt against defender. Unknown IDs are skipped. src
// overrides the engine's default source when non-nil.
//
// Precondition: defender.Set must be non-nil.
// Postcondition: Returns the IDs applied, in attempt order. The defender's
// derived aggregate is rebuilt when anything was applied.
func (e *Engine) Apply(src dice.Source, attempts []Attempt, attacker, defender Participant, turn int) []string {
	if src == nil {
		src = e.src
	}
	var applied []string
	for i := range attempts {
		a := attempts[i]
		def, ok := e.reg.Get(a.ID)
		if !ok {
			e.logger.Debug("unknown status attempt skipped", zap.String("status", a.ID))
			continue
		}

		chance := a.BaseChance
		if def.Kind == KindDebuff {
			chance += attacker.Mods.InflictBonus - defender.Mods.ResistBonus
		}
		if !dice.Chance(src, chance) {
			continue
		}
		if def.Control && defender.Mods.FreeActionIgnore > 0 && dice.Chance(src, defender.Mods.FreeActionIgnore) {
			e.logger.Debug("control status ignored",
				zap.String("status", a.ID),
				zap.String("target", hostID(defender.Host)),
			)
			continue
		}

		duration := a.Duration
		if a.DurationDice != nil {
			duration = dice.Roll(*a.DurationDice, src).Total()
		}
		if duration <= 0 {
			duration = def.DefaultDuration
		}
		if def.Kind == KindBuff && defender.Mods.BuffDurMult > 0 {
			duration = int(math.Round(float64(duration) * defender.Mods.BuffDurMult))
			if duration < 1 {
				duration = 1
			}
		}
		if duration <= 0 {
			continue
		}

		stacks := a.Stacks
		if stacks <= 0 {
			stacks = 1
		}
		if stacks > def.MaxStacks {
			stacks = def.MaxStacks
		}
		if a.Source == "" && attacker.Host != nil {
			a.Source = attacker.Host.HostID()
		}

		inst := merge(defender.Set, def, a, stacks, turn+duration, turn)
		inst.Potency = def.OnApply(HookContext{Host: defender.Host, Instance: inst, Turn: turn, Attempt: &a})
		applied = append(applied, a.ID)
		e.logger.Debug("status applied",
			zap.String("status", a.ID),
			zap.String("target", hostID(defender.Host)),
			zap.Int("stacks", inst.Stacks),
			zap.Int("endsAtTurn", inst.EndsAtTurn),
		)
	}
	if len(applied) > 0 {
		defender.Set.Rebuild()
	}
	return applied
}

// merge folds a successful application into set per the definition's stacking policy.
func merge(set *Set, def *Definition, a Attempt, stacks, endsAt, turn int) *Instance {
	if def.Stacking != StackIndependent {
		if cur := set.first(def.ID); cur != nil {
			switch def.Stacking {
			case StackAdd:
				cur.Stacks = min(def.MaxStacks, cur.Stacks+stacks)
			default:
				cur.Stacks = max(cur.Stacks, stacks)
			}
			cur.EndsAtTurn = max(cur.EndsAtTurn, endsAt)
			return cur
		}
	} else {
		set.trimIndependent(def.ID, def.MaxStacks-stacks)
	}
	inst := &Instance{
		ID:         def.ID,
		Stacks:     stacks,
		EndsAtTurn: endsAt,
		Source:     a.Source,
		def:        def,
	}
	if def.TickEvery > 0 {
		inst.NextTickAt = turn + def.TickEvery
	}
	set.instances = append(set.instances, inst)
	return inst
}

// Tick runs due tick hooks for every instance in set and removes instances
// whose end turn has been reached. Overdue ticks are caught up, bounded by
// the instance's end turn.
//
// Postcondition: Returns the IDs of expired instances, in set order. Every
// remaining instance has EndsAtTurn > turn.
func (e *Engine) Tick(host Host, set *Set, turn int) []string {
	var expired []string
	var live []*Instance
	// Iterate over a snapshot so hooks that apply statuses do not disturb the walk.
	current := append([]*Instance(nil), set.instances...)
	for _, inst := range current {
		def := inst.def
		if def != nil && def.TickEvery > 0 && inst.NextTickAt > 0 {
			for inst.NextTickAt <= turn && inst.NextTickAt <= inst.EndsAtTurn {
				def.OnTick(HookContext{Host: host, Instance: inst, Turn: turn})
				inst.NextTickAt += def.TickEvery
			}
		}
		if inst.EndsAtTurn <= turn {
			expired = append(expired, inst.ID)
			if def != nil && def.OnExpire != nil {
				def.OnExpire(HookContext{Host: host, Instance: inst, Turn: turn})
			}
			e.logger.Debug("status expired",
				zap.String("status", inst.ID),
				zap.String("target", hostID(host)),
				zap.Int("turn", turn),
			)
			continue
		}
		live = append(live, inst)
	}
	// Keep any instances hooks appended during the walk.
	for _, inst := range set.instances {
		if !containsInstance(current, inst) && inst.EndsAtTurn > turn {
			live = append(live, inst)
		}
	}
	set.instances = live
	set.Rebuild()
	return expired
}

func containsInstance(list []*Instance, target *Instance) bool {
	for _, inst := range list {
		if inst == target {
			return true
		}
	}
	return false
}

func hostID(h Host) string {
	if h == nil {
		return ""
	}
	return h.HostID()
}

func roundPositive(v float64) int {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
