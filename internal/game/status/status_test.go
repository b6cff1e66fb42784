package status_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

type fakeHost struct {
	id       string
	hp       int
	restored map[string]int
}

func newHost(id string, hp int) *fakeHost {
	return &fakeHost{id: id, hp: hp, restored: map[string]int{}}
}

func (h *fakeHost) HostID() string { return h.id }

func (h *fakeHost) TakeDamage(amount int) int {
	lost := min(amount, h.hp)
	h.hp -= lost
	return lost
}

func (h *fakeHost) Restore(pool string, amount int) int {
	h.restored[pool] += amount
	return amount
}

// constSource always returns v (clamped to n-1).
type constSource struct{ v int }

func (c constSource) Intn(n int) int { return min(c.v, n-1) }

func participant(h *fakeHost) status.Participant {
	return status.Participant{Host: h, Set: status.NewSet()}
}

func newEngine(t *testing.T) *status.Engine {
	t.Helper()
	return status.NewEngine(status.DefaultRegistry(), constSource{0}, nil)
}

func TestNewRegistry_RejectsDuplicate(t *testing.T) {
	_, err := status.NewRegistry(
		&status.Definition{ID: "x"},
		&status.Definition{ID: "x"},
	)
	require.Error(t, err)
}

func TestNewRegistry_RejectsBadStacking(t *testing.T) {
	_, err := status.NewRegistry(&status.Definition{ID: "x", Stacking: "merge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stacking")
}

func TestNewRegistry_FillsDefaults(t *testing.T) {
	reg, err := status.NewRegistry(&status.Definition{ID: "x"})
	require.NoError(t, err)
	def, ok := reg.Get("x")
	require.True(t, ok)
	assert.Equal(t, status.StackRefresh, def.Stacking)
	assert.Equal(t, 1, def.MaxStacks)
	assert.NotNil(t, def.OnApply)
	assert.NotNil(t, def.Derive)
}

func TestRegistry_With_DoesNotMutateBase(t *testing.T) {
	base := status.DefaultRegistry()
	ext, err := base.With(&status.Definition{ID: "burn", MaxStacks: 99})
	require.NoError(t, err)

	orig, _ := base.Get("burn")
	over, _ := ext.Get("burn")
	assert.Equal(t, 5, orig.MaxStacks)
	assert.Equal(t, 99, over.MaxStacks)
}

func TestApply_UnknownIDSkipped(t *testing.T) {
	e := newEngine(t)
	def := participant(newHost("d", 10))
	got := e.Apply(nil, []status.Attempt{{ID: "nope", BaseChance: 1}}, participant(newHost("a", 10)), def, 1)
	assert.Empty(t, got)
	assert.Equal(t, 0, def.Set.Len())
}

func TestApply_ChanceIncludesInflictAndResist(t *testing.T) {
	e := status.NewEngine(status.DefaultRegistry(), constSource{5000}, nil)
	atk := participant(newHost("a", 10))
	def := participant(newHost("d", 10))

	// 0.4 base < 0.5 roll: fails.
	got := e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 0.4}}, atk, def, 1)
	assert.Empty(t, got)

	// +0.2 inflict bonus pushes it over.
	atk.Mods.InflictBonus = 0.2
	got = e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 0.4}}, atk, def, 1)
	assert.Equal(t, []string{"burn"}, got)

	// Resist cancels it again.
	def.Mods.ResistBonus = 0.2
	def.Set = status.NewSet()
	got = e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 0.4}}, atk, def, 1)
	assert.Empty(t, got)
}

func TestApply_FreeActionIgnoresControl(t *testing.T) {
	e := newEngine(t)
	def := participant(newHost("d", 10))
	def.Mods.FreeActionIgnore = 1
	got := e.Apply(nil, []status.Attempt{{ID: "stun", BaseChance: 1}}, participant(newHost("a", 10)), def, 1)
	assert.Empty(t, got)

	got = e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1}}, participant(newHost("a", 10)), def, 1)
	assert.Equal(t, []string{"burn"}, got)
}

func TestApply_BuffDurationScaled(t *testing.T) {
	e := newEngine(t)
	def := participant(newHost("d", 10))
	def.Mods.BuffDurMult = 2
	e.Apply(nil, []status.Attempt{{ID: "haste", BaseChance: 1, Duration: 3}}, def, def, 1)
	inst := def.Set.Instances()
	require.Len(t, inst, 1)
	assert.Equal(t, 7, inst[0].EndsAtTurn)
}

func TestApply_DurationDice(t *testing.T) {
	e := newEngine(t)
	def := participant(newHost("d", 10))
	expr := dice.MustParse("2d4")
	// constSource{0} rolls 1 on every die.
	e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1, DurationDice: &expr, Duration: 9}}, participant(newHost("a", 1)), def, 5)
	assert.Equal(t, 7, def.Set.Instances()[0].EndsAtTurn)
}

func TestApply_RefreshTakesMaxima(t *testing.T) {
	e := newEngine(t)
	atk := participant(newHost("a", 10))
	def := participant(newHost("d", 10))
	e.Apply(nil, []status.Attempt{{ID: "vulnerable", BaseChance: 1, Duration: 5}}, atk, def, 1)
	e.Apply(nil, []status.Attempt{{ID: "vulnerable", BaseChance: 1, Duration: 2}}, atk, def, 2)

	inst := def.Set.Instances()
	require.Len(t, inst, 1)
	assert.Equal(t, 6, inst[0].EndsAtTurn)
	assert.Equal(t, 1, inst[0].Stacks)
}

func TestApply_AddStacksCapped(t *testing.T) {
	e := newEngine(t)
	atk := participant(newHost("a", 10))
	def := participant(newHost("d", 10))
	for i := 0; i < 4; i++ {
		e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1, Stacks: 2, Duration: 3}}, atk, def, 1)
	}
	assert.Equal(t, 5, def.Set.Stacks("burn"))
	assert.Equal(t, 1, def.Set.Len())
}

func TestApply_IndependentTrimsOldest(t *testing.T) {
	e := newEngine(t)
	atk := participant(newHost("a", 10))
	def := participant(newHost("d", 10))
	for turn := 1; turn <= 7; turn++ {
		e.Apply(nil, []status.Attempt{{ID: "bleed", BaseChance: 1, Duration: 3}}, atk, def, turn)
	}
	assert.Equal(t, 5, def.Set.Len())
	assert.Equal(t, 5, def.Set.Stacks("bleed"))
	for _, inst := range def.Set.Instances() {
		assert.GreaterOrEqual(t, inst.EndsAtTurn, 6)
	}
}

func TestApply_DerivedRebuilt(t *testing.T) {
	e := newEngine(t)
	def := participant(newHost("d", 10))
	e.Apply(nil, []status.Attempt{{ID: "weaken", BaseChance: 1, Stacks: 2}}, participant(newHost("a", 1)), def, 1)
	assert.InDelta(t, -0.2, def.Set.Derived().DealtMult("fire"), 1e-9)
}

func TestTick_DamageAndExpiry(t *testing.T) {
	e := newEngine(t)
	host := newHost("d", 100)
	def := status.Participant{Host: host, Set: status.NewSet()}
	e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1, Stacks: 2, Duration: 3}}, participant(newHost("a", 1)), def, 1)

	// burn: potency 2 × 2 stacks = 4 per tick, ticks at turns 2, 3 and 4.
	assert.Empty(t, e.Tick(host, def.Set, 2))
	assert.Equal(t, 96, host.hp)
	assert.Empty(t, e.Tick(host, def.Set, 3))
	expired := e.Tick(host, def.Set, 4)
	assert.Equal(t, []string{"burn"}, expired)
	assert.Equal(t, 88, host.hp)
	assert.False(t, def.Set.Has("burn"))
}

func TestTick_CatchUpBoundedByEnd(t *testing.T) {
	e := newEngine(t)
	host := newHost("d", 100)
	def := status.Participant{Host: host, Set: status.NewSet()}
	e.Apply(nil, []status.Attempt{{ID: "poison", BaseChance: 1, Duration: 3}}, participant(newHost("a", 1)), def, 1)
	e.Tick(host, def.Set, 20)
	assert.Equal(t, 97, host.hp)
}

func TestTick_RestoreAndExpireHook(t *testing.T) {
	expiredCalls := 0
	reg, err := status.NewRegistry(&status.Definition{
		ID: "mend", Kind: status.KindBuff, TickEvery: 1, BasePotency: 4,
		TickKind: status.TickRestore, TickPool: "mana",
		OnExpire: func(status.HookContext) { expiredCalls++ },
	})
	require.NoError(t, err)
	e := status.NewEngine(reg, constSource{0}, nil)
	host := newHost("d", 10)
	p := status.Participant{Host: host, Set: status.NewSet()}
	e.Apply(nil, []status.Attempt{{ID: "mend", BaseChance: 1, Duration: 1}}, p, p, 1)
	e.Tick(host, p.Set, 2)
	assert.Equal(t, 4, host.restored["mana"])
	assert.Equal(t, 1, expiredCalls)
}

func TestTick_LogsExpiry(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := status.NewEngine(status.DefaultRegistry(), constSource{0}, zap.New(core))
	host := newHost("d", 10)
	p := status.Participant{Host: host, Set: status.NewSet()}
	e.Apply(nil, []status.Attempt{{ID: "stun", BaseChance: 1}}, p, p, 1)
	e.Tick(host, p.Set, 2)
	assert.Equal(t, 1, logs.FilterMessage("status expired").Len())
}

func TestRestoreSet_DropsUnknown(t *testing.T) {
	reg := status.DefaultRegistry()
	s := status.RestoreSet(reg, []status.Instance{
		{ID: "weaken", Stacks: 1, EndsAtTurn: 5},
		{ID: "gone", Stacks: 1, EndsAtTurn: 5},
	})
	assert.Equal(t, 1, s.Len())
	assert.InDelta(t, -0.1, s.Derived().DealtMult("cold"), 1e-9)
}

func TestSet_CloneIsIndependent(t *testing.T) {
	e := newEngine(t)
	p := participant(newHost("d", 10))
	e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1}}, p, p, 1)
	c := p.Set.Clone()
	e.Apply(nil, []status.Attempt{{ID: "burn", BaseChance: 1}}, p, p, 1)
	assert.Equal(t, 1, c.Stacks("burn"))
	assert.Equal(t, 2, p.Set.Stacks("burn"))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sear.yaml"), []byte(`
id: sear
name: Seared
kind: debuff
stacking: add_stacks
max_stacks: 3
tick_every: 1
default_duration: 2
lua_on_tick: sear_tick
effects:
  resist_delta:
    fire: -0.1
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	runner := &fakeRunner{result: 6}
	defs, err := status.LoadDirectory(dir, runner)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	reg, err := status.NewRegistry(defs...)
	require.NoError(t, err)
	e := status.NewEngine(reg, constSource{0}, nil)
	host := newHost("d", 20)
	p := status.Participant{Host: host, Set: status.NewSet()}
	e.Apply(nil, []status.Attempt{{ID: "sear", BaseChance: 1}}, p, p, 1)
	assert.InDelta(t, -0.1, p.Set.Derived().Resist("fire"), 1e-9)

	e.Tick(host, p.Set, 2)
	assert.Equal(t, 14, host.hp)
	assert.Equal(t, "sear_tick", runner.last)
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nbogus: 1\n"), 0o644))
	_, err := status.LoadDirectory(dir, nil)
	require.Error(t, err)
}

type fakeRunner struct {
	result float64
	last   string
}

func (f *fakeRunner) CallNumber(hook string, _ ...any) (float64, bool) {
	f.last = hook
	return f.result, true
}

func TestProperty_StacksNeverExceedMax(t *testing.T) {
	reg := status.DefaultRegistry()
	ids := []string{"burn", "poison", "bleed", "haste", "weaken", "vulnerable"}
	rapid.Check(t, func(rt *rapid.T) {
		src := dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))
		e := status.NewEngine(reg, src, nil)
		p := participant(newHost("d", 1000))
		n := rapid.IntRange(1, 40).Draw(rt, "n")
		for i := 0; i < n; i++ {
			a := status.Attempt{
				ID:         rapid.SampledFrom(ids).Draw(rt, "id"),
				BaseChance: rapid.Float64Range(0, 1).Draw(rt, "chance"),
				Stacks:     rapid.IntRange(-2, 12).Draw(rt, "stacks"),
				Duration:   rapid.IntRange(-1, 6).Draw(rt, "dur"),
			}
			turn := i / 3
			e.Apply(nil, []status.Attempt{a}, p, p, turn)
			if i%3 == 2 {
				e.Tick(p.Host, p.Set, turn)
				for _, inst := range p.Set.Instances() {
					if inst.EndsAtTurn <= turn {
						rt.Fatalf("instance %s survived tick at turn %d", inst.ID, turn)
					}
				}
			}
		}
		for _, id := range ids {
			def, _ := reg.Get(id)
			if got := p.Set.Stacks(id); got > def.MaxStacks {
				rt.Fatalf("%s has %d stacks, max %d", id, got, def.MaxStacks)
			}
		}
	})
}
