package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
	"github.com/cory-johannsen/gauntlet/internal/game/tempo"
)

// Request is one action requested by a Policy.
type Request struct {
	Type   ActionType
	Target *actor.State
	Spec   AttackSpec
}

// Policy decides which action an actor takes next. Returning false ends the
// actor's turn.
type Policy interface {
	Next(self *actor.State, others []*actor.State, round int) (Request, bool)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(self *actor.State, others []*actor.State, round int) (Request, bool)

// Next implements Policy.
func (f PolicyFunc) Next(self *actor.State, others []*actor.State, round int) (Request, bool) {
	return f(self, others, round)
}

// AttackFirstLiving attacks the first undefeated other actor with the equipped
// weapon, falling back to an unarmed strike.
var AttackFirstLiving = PolicyFunc(func(self *actor.State, others []*actor.State, _ int) (Request, bool) {
	for _, o := range others {
		if o != self && !resource.IsDefeated(o) {
			return Request{Type: ActionAttack, Target: o, Spec: weaponOrUnarmed(self)}, true
		}
	}
	return Request{}, false
})

// Event records one step of a round.
type Event struct {
	Round     int
	ActorID   string
	ActorName string
	Type      ActionType
	Outcome   *Outcome
	Expired   []string
	Narrative string
}

// TurnStart reports the start-of-turn phase of one actor.
type TurnStart struct {
	Expired  []string
	APGained int
}

// TurnLoop runs per-actor turn phases in a fixed order: status tick, resource
// regeneration, AP gain, actions, cooldown tick.
type TurnLoop struct {
	engine  *status.Engine
	actions *Actions
	cfg     Config
	logger  *zap.Logger
}

// NewTurnLoop creates a TurnLoop.
//
// Precondition: engine and actions must be non-nil.
func NewTurnLoop(engine *status.Engine, actions *Actions, cfg Config, logger *zap.Logger) *TurnLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnLoop{engine: engine, actions: actions, cfg: cfg, logger: logger}
}

// StartTurn runs the status tick, resource regeneration and AP gain for a.
func (l *TurnLoop) StartTurn(a *actor.State, round int) TurnStart {
	a.Turn = round
	expired := l.engine.Tick(a, a.Statuses, round)
	resource.Update(a, l.cfg.Resource)
	gained := 0
	if !resource.IsDefeated(a) {
		gained = tempo.GainAP(a, l.cfg.Tempo)
	}
	return TurnStart{Expired: expired, APGained: gained}
}

// EndTurn ticks a's cooldowns.
func (l *TurnLoop) EndTurn(a *actor.State) {
	tempo.TickCooldowns(a)
}

// RunRound gives each actor in order one turn, strictly one at a time.
// Defeated actors are skipped.
//
// Precondition: policy and rng must be non-nil.
// Postcondition: Returns the ordered events of the round.
func (l *TurnLoop) RunRound(round int, order []*actor.State, policy Policy, rng dice.Source) []Event {
	var events []Event
	for _, a := range order {
		if resource.IsDefeated(a) {
			continue
		}
		start := l.StartTurn(a, round)
		if len(start.Expired) > 0 {
			events = append(events, Event{
				Round: round, ActorID: a.ID, ActorName: a.Name, Expired: start.Expired,
				Narrative: fmt.Sprintf("%s: %v wore off.", a.Name, start.Expired),
			})
		}
		switch {
		case resource.IsDefeated(a):
			events = append(events, Event{
				Round: round, ActorID: a.ID, ActorName: a.Name,
				Narrative: fmt.Sprintf("%s succumbs.", a.Name),
			})
			continue
		case a.Statuses.PreventsActions():
			events = append(events, Event{
				Round: round, ActorID: a.ID, ActorName: a.Name, Type: ActionPass,
				Narrative: fmt.Sprintf("%s cannot act.", a.Name),
			})
		default:
			events = append(events, l.act(a, order, policy, round, rng)...)
		}
		l.EndTurn(a)
	}
	return events
}

func (l *TurnLoop) act(a *actor.State, all []*actor.State, policy Policy, round int, rng dice.Source) []Event {
	var events []Event
	limit := l.cfg.MaxActionsPerTurn
	if limit <= 0 {
		limit = 1
	}
	for i := 0; i < limit; i++ {
		req, ok := policy.Next(a, all, round)
		if !ok || req.Type != ActionAttack {
			break
		}
		out, ok := l.actions.Attack(a, req.Target, req.Spec, round, rng)
		if !ok {
			break
		}
		o := out
		events = append(events, Event{
			Round: round, ActorID: a.ID, ActorName: a.Name, Type: ActionAttack, Outcome: &o,
			Narrative: narrate(a, req.Target, out),
		})
		if resource.IsDefeated(req.Target) {
			l.logger.Info("actor defeated",
				zap.Int("round", round),
				zap.String("attacker", a.Name),
				zap.String("defender", req.Target.Name),
			)
		}
	}
	return events
}

func narrate(a, target *actor.State, out Outcome) string {
	if !out.Hit {
		return fmt.Sprintf("%s misses %s.", a.Name, target.Name)
	}
	s := fmt.Sprintf("%s hits %s for %d", a.Name, target.Name, out.Primary.TotalDamage)
	if out.Crit {
		s += " (critical)"
	}
	if out.Echo != nil {
		s += fmt.Sprintf(", echo %d", out.Echo.TotalDamage)
	}
	if out.Killed {
		s += ", killing blow"
	}
	return s + "."
}

// DuelResult summarises an encounter.
type DuelResult struct {
	// Winner is nil on a draw or when MaxRounds was reached.
	Winner *actor.State
	Rounds int
	Events []Event
}

// RunEncounter rolls initiative once and runs rounds until at most one actor
// stands or maxRounds is reached.
//
// Precondition: len(actors) >= 2; rng and policy must be non-nil.
func (l *TurnLoop) RunEncounter(actors []*actor.State, policy Policy, rng dice.Source, maxRounds int) DuelResult {
	order := RollInitiative(actors, rng)
	var res DuelResult
	for round := 1; round <= maxRounds; round++ {
		res.Rounds = round
		res.Events = append(res.Events, l.RunRound(round, order, policy, rng)...)
		if standing := living(order); len(standing) <= 1 {
			if len(standing) == 1 {
				res.Winner = standing[0]
			}
			break
		}
	}
	l.logger.Info("encounter finished",
		zap.Int("rounds", res.Rounds),
		zap.String("winner", winnerName(res.Winner)),
	)
	return res
}

func living(actors []*actor.State) []*actor.State {
	var out []*actor.State
	for _, a := range actors {
		if !resource.IsDefeated(a) {
			out = append(out, a)
		}
	}
	return out
}

func winnerName(a *actor.State) string {
	if a == nil {
		return ""
	}
	return a.Name
}
