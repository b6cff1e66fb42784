package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
	"github.com/cory-johannsen/gauntlet/internal/scripting"
)

func newTestManager(t testing.TB, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(42), logger)
	mgr := scripting.NewManager(roller, logger, limit)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

var _ status.HookRunner = (*scripting.Manager)(nil)

func TestManager_LoadDir_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadDir(dir))
	assert.Equal(t, lua.LNumber(7), mgr.CallHook("add", lua.LNumber(3), lua.LNumber(4)))
	assert.True(t, mgr.HasHook("add"))
}

func TestManager_CallNumber(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("burn", `
		function burn_tick(host, id, stacks, potency, turn)
			assert(type(host) == "string" and id == "burn")
			return stacks * potency + turn
		end
		function label() return "x" end
	`))
	v, ok := mgr.CallNumber("burn_tick", "h1", "burn", 2, 1.5, 3)
	require.True(t, ok)
	assert.Equal(t, 6.0, v)

	_, ok = mgr.CallNumber("label")
	assert.False(t, ok, "non-numeric result")
	_, ok = mgr.CallNumber("undefined_hook")
	assert.False(t, ok)
}

func TestManager_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("bad", `function bad_hook() error("intentional") end`))
	_, ok := mgr.CallNumber("bad_hook")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_BudgetIsPerCall(t *testing.T) {
	mgr, logs := newTestManager(t, 500)
	require.NoError(t, mgr.LoadString("loops", `
		function small() local s = 0 for i = 1, 10 do s = s + i end return s end
		function forever() while true do end end
	`))
	for i := 0; i < 20; i++ {
		v, ok := mgr.CallNumber("small")
		require.True(t, ok, "call %d", i)
		assert.Equal(t, 55.0, v)
	}
	_, ok := mgr.CallNumber("forever")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
	_, ok = mgr.CallNumber("small")
	assert.True(t, ok, "budget refilled after an exhausted call")
}

func TestManager_EngineRoll(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("roll", `
		function roll_const() return engine.roll("7") end
		function roll_range() return engine.roll("2d6") end
		function roll_bad()
			local v, err = engine.roll("nope")
			if v == nil and err ~= nil then return -1 end
			return 0
		end
		function clamped() return engine.clamp(12, 0, 10) end
	`))
	v, ok := mgr.CallNumber("roll_const")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = mgr.CallNumber("roll_range")
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 2.0)
	assert.LessOrEqual(t, v, 12.0)

	v, _ = mgr.CallNumber("roll_bad")
	assert.Equal(t, -1.0, v)
	v, _ = mgr.CallNumber("clamped")
	assert.Equal(t, 10.0, v)
}

func TestManager_EngineLog(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("log", `function say() engine.log("hello") return 0 end`))
	mgr.CallNumber("say")
	entries := logs.FilterMessage("lua").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].ContextMap()["msg"])
}

func TestManager_LoadDir_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function get_val() return base_val end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))
	require.NoError(t, mgr.LoadDir(dir))
	v, ok := mgr.CallNumber("get_val")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestManager_LoadDir_Errors(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	assert.Error(t, mgr.LoadDir(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, mgr.LoadDir(writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)))
}

func TestManager_Close(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("x", `function get_x() return 1 end`))
	mgr.Close()
	mgr.Close()
	assert.Equal(t, lua.LNil, mgr.CallHook("get_x"))
	assert.Error(t, mgr.LoadString("y", `y = 1`))
}

func TestNewManager_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop(), 0) })
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), nil)
	assert.Panics(t, func() { scripting.NewManager(roller, nil, 0) })
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("c", `function add(a, b) return a + b end`))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				v, ok := mgr.CallNumber("add", 1, 2)
				assert.True(t, ok)
				assert.Equal(t, 3.0, v)
			}
		}()
	}
	wg.Wait()
}

func TestManager_DrivesStatusTick(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString("sear", `function sear_tick(host, id, stacks, potency, turn) return stacks * 3 end`))
	def := &status.Definition{
		ID: "sear", Name: "Sear", Stacking: status.StackAdd, MaxStacks: 3,
		TickEvery: 1, DefaultDuration: 2, LuaOnTick: "sear_tick",
	}
	def.BindHooks(mgr)
	reg, err := status.NewRegistry(def)
	require.NoError(t, err)

	host := &hpHost{id: "h", hp: 30}
	set := status.NewSet()
	engine := status.NewEngine(reg, dice.NewSeededSource(1), nil)
	p := status.Participant{Host: host, Set: set}
	engine.Apply(nil, []status.Attempt{{ID: "sear", BaseChance: 1, Stacks: 2}}, p, p, 0)
	engine.Tick(host, set, 1)
	assert.Equal(t, 24, host.hp)
}

func TestProperty_CallMissingHookNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	rapid.Check(t, func(rt *rapid.T) {
		hook := rapid.StringMatching(`hook_[a-z]{1,10}`).Draw(rt, "hook")
		if _, ok := mgr.CallNumber(hook, rapid.Int().Draw(rt, "arg")); ok {
			rt.Fatalf("hook %q unexpectedly defined", hook)
		}
	})
}

type hpHost struct {
	id string
	hp int
}

func (h *hpHost) HostID() string { return h.id }

func (h *hpHost) TakeDamage(n int) int {
	n = min(n, h.hp)
	h.hp -= n
	return n
}

func (h *hpHost) Restore(_ string, n int) int {
	h.hp += n
	return n
}
