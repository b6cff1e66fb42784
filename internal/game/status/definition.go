// Package status implements registry-driven status effects: application with
// stacking policies, per-turn ticking, and derived-effect aggregation.
package status

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stacking is the merge policy applied when a status is reapplied.
type Stacking string

const (
	// StackRefresh keeps one instance with max(stacks) and max(end turn).
	StackRefresh Stacking = "refresh"
	// StackAdd keeps one instance, summing stacks up to MaxStacks.
	StackAdd Stacking = "add_stacks"
	// StackIndependent pushes a new parallel instance on every application.
	StackIndependent Stacking = "independent"
)

// Kind separates beneficial statuses from harmful ones.
type Kind string

const (
	KindBuff   Kind = "buff"
	KindDebuff Kind = "debuff"
)

// TickKind selects the built-in per-tick behaviour.
type TickKind string

const (
	TickNone    TickKind = ""
	TickDamage  TickKind = "damage"
	TickRestore TickKind = "restore"
)

// Host is the actor a status lives on, as seen by hooks.
type Host interface {
	HostID() string
	// TakeDamage reduces HP by amount, floored at zero, and returns the HP lost.
	TakeDamage(amount int) int
	// Restore adds amount to pool, clamped to its max, and returns the amount gained.
	Restore(pool string, amount int) int
}

// HookContext is passed to definition hooks.
type HookContext struct {
	Host     Host
	Instance *Instance
	Turn     int
	// Attempt is set for OnApply only.
	Attempt *Attempt
}

// Definition is the static description of a status. After registration a
// Definition is shared by every Set and must not be modified.
type Definition struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Kind            Kind     `yaml:"kind"`
	Stacking        Stacking `yaml:"stacking"`
	MaxStacks       int      `yaml:"max_stacks"` // <= 0 means 1
	TickEvery       int      `yaml:"tick_every"` // 0 = never ticks
	DefaultDuration int      `yaml:"default_duration"`
	BasePotency     float64  `yaml:"base_potency"`
	// Control statuses can be shrugged off by free-action effects.
	Control bool `yaml:"control"`
	// PreventsActions skips the action phase of the host's turn.
	PreventsActions bool     `yaml:"prevents_actions"`
	TickKind        TickKind `yaml:"tick_kind"`
	TickPool        string   `yaml:"tick_pool"`
	// Effects is the per-stack derived contribution used by the default Derive.
	Effects Derived `yaml:"effects"`

	LuaOnApply  string `yaml:"lua_on_apply"`
	LuaOnTick   string `yaml:"lua_on_tick"`
	LuaOnExpire string `yaml:"lua_on_expire"`

	// OnApply returns the instance potency after a successful application.
	OnApply  func(HookContext) float64 `yaml:"-"`
	OnTick   func(HookContext)         `yaml:"-"`
	OnExpire func(HookContext)         `yaml:"-"`
	Derive   func(*Instance) Derived   `yaml:"-"`
}

// Validate checks the definition invariants.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch d.Stacking {
	case "", StackRefresh, StackAdd, StackIndependent:
	default:
		errs = append(errs, fmt.Errorf("stacking %q must be one of refresh, add_stacks, independent", d.Stacking))
	}
	switch d.Kind {
	case "", KindBuff, KindDebuff:
	default:
		errs = append(errs, fmt.Errorf("kind %q must be buff or debuff", d.Kind))
	}
	switch d.TickKind {
	case TickNone, TickDamage, TickRestore:
	default:
		errs = append(errs, fmt.Errorf("tick_kind %q must be damage or restore", d.TickKind))
	}
	if d.TickEvery < 0 {
		errs = append(errs, errors.New("tick_every must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("status %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// normalized returns a copy with defaults filled and nil hooks replaced.
func (d Definition) normalized() *Definition {
	if d.Stacking == "" {
		d.Stacking = StackRefresh
	}
	if d.Kind == "" {
		d.Kind = KindDebuff
	}
	if d.MaxStacks <= 0 {
		d.MaxStacks = 1
	}
	if d.TickPool == "" {
		d.TickPool = "hp"
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	def := &d
	if def.OnApply == nil {
		def.OnApply = defaultOnApply(def)
	}
	if def.OnTick == nil {
		def.OnTick = defaultOnTick(def)
	}
	if def.Derive == nil {
		effects := def.Effects
		def.Derive = func(inst *Instance) Derived { return effects.Scaled(float64(inst.Stacks)) }
	}
	return def
}

func defaultOnApply(def *Definition) func(HookContext) float64 {
	return func(c HookContext) float64 {
		p := def.BasePotency
		if c.Attempt != nil && c.Attempt.Potency > 0 {
			p = c.Attempt.Potency
		}
		if c.Instance != nil && c.Instance.Potency > p {
			p = c.Instance.Potency
		}
		return p
	}
}

func defaultOnTick(def *Definition) func(HookContext) {
	return func(c HookContext) {
		amount := roundPositive(c.Instance.Potency * float64(c.Instance.Stacks))
		if amount <= 0 || c.Host == nil {
			return
		}
		switch def.TickKind {
		case TickDamage:
			c.Host.TakeDamage(amount)
		case TickRestore:
			c.Host.Restore(def.TickPool, amount)
		}
	}
}

// Registry is an immutable lookup of status definitions. Independent
// simulations may share one Registry safely.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds a Registry from defs.
//
// Postcondition: Returns an error if any def is invalid or an ID repeats.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil {
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.defs[d.ID]; exists {
			return nil, fmt.Errorf("status: duplicate definition %q", d.ID)
		}
		r.defs[d.ID] = d.normalized()
	}
	return r, nil
}

// With returns a new Registry containing r's definitions overridden by defs.
// r is not modified.
func (r *Registry) With(defs ...*Definition) (*Registry, error) {
	ext, err := NewRegistry(defs...)
	if err != nil {
		return nil, err
	}
	out := &Registry{defs: make(map[string]*Definition, len(r.defs)+len(ext.defs))}
	for id, d := range r.defs {
		out.defs[id] = d
	}
	for id, d := range ext.defs {
		out.defs[id] = d
	}
	return out, nil
}

// Get returns the Definition for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition sorted by ID.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HookRunner calls a named script hook and returns its numeric result.
// ok is false when the hook is undefined or failed.
type HookRunner interface {
	CallNumber(hook string, args ...any) (result float64, ok bool)
}

// BindHooks replaces the hooks of d named by its Lua* fields with calls into runner.
// Hook arguments are (host id, status id, stacks, potency, turn). on_apply
// returns the potency; on_tick returns damage (positive) or healing (negative).
//
// Precondition: runner must be non-nil.
func (d *Definition) BindHooks(runner HookRunner) {
	if name := d.LuaOnApply; name != "" {
		fallback := defaultOnApply(d)
		d.OnApply = func(c HookContext) float64 {
			if v, ok := runner.CallNumber(name, hookArgs(c)...); ok {
				return v
			}
			return fallback(c)
		}
	}
	if name := d.LuaOnTick; name != "" {
		d.OnTick = func(c HookContext) {
			v, ok := runner.CallNumber(name, hookArgs(c)...)
			if !ok || c.Host == nil {
				return
			}
			switch {
			case v > 0:
				c.Host.TakeDamage(roundPositive(v))
			case v < 0:
				c.Host.Restore("hp", roundPositive(-v))
			}
		}
	}
	if name := d.LuaOnExpire; name != "" {
		d.OnExpire = func(c HookContext) {
			runner.CallNumber(name, hookArgs(c)...)
		}
	}
}

func hookArgs(c HookContext) []any {
	hostID := ""
	if c.Host != nil {
		hostID = c.Host.HostID()
	}
	return []any{hostID, c.Instance.ID, c.Instance.Stacks, c.Instance.Potency, c.Turn}
}

// LoadDirectory reads every *.yaml file in dir as a Definition. When runner is
// non-nil, Lua hook names are bound to it.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the parsed definitions or the first error encountered.
func LoadDirectory(dir string, runner HookRunner) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	var defs []*Definition
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if runner != nil {
			def.BindHooks(runner)
		}
		defs = append(defs, &def)
	}
	return defs, nil
}
