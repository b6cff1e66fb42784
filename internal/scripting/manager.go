package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
)

// Manager owns one sandboxed LState holding every loaded hook script.
//
// Manager is safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	cancel    func()
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a Manager whose VM has the engine module registered.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	L, cancel := NewSandboxedState(instLimit)
	m := &Manager{state: L, cancel: cancel, instLimit: instLimit, roller: roller, logger: logger}
	m.RegisterModules(L)
	return m
}

// LoadDir executes every *.lua file in dir in lexicographic order. Globals
// defined by earlier files are visible to later ones.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the first load error; files before it stay loaded.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return fmt.Errorf("scripting: manager is closed")
	}
	for _, path := range files {
		cancel := refill(m.state, m.instLimit)
		err := m.state.DoFile(path)
		cancel()
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
		m.logger.Debug("script loaded", zap.String("path", path))
	}
	return nil
}

// LoadString executes src under name.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return fmt.Errorf("scripting: manager is closed")
	}
	cancel := refill(m.state, m.instLimit)
	defer cancel()
	if err := m.state.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// CallHook calls the global Lua function hook with args. It returns LNil when
// the hook is undefined or the manager is closed. Lua runtime errors,
// including an exhausted opcode budget, are logged at Warn and never
// propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) lua.LValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return lua.LNil
	}
	fn := m.state.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil
	}
	cancel := refill(m.state, m.instLimit)
	defer cancel()
	if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}
	ret := m.state.Get(-1)
	m.state.Pop(1)
	return ret
}

// HasHook reports whether hook is a defined Lua function.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != nil && m.state.GetGlobal(hook).Type() == lua.LTFunction
}

// CallNumber calls hook with args converted to Lua values and returns its
// numeric result. ok is false when the hook is undefined, failed, or returned
// something other than a number.
func (m *Manager) CallNumber(hook string, args ...any) (float64, bool) {
	lv := make([]lua.LValue, len(args))
	for i, a := range args {
		lv[i] = toLValue(a)
	}
	ret := m.CallHook(hook, lv...)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, false
	}
	return float64(n), true
}

// Close releases the VM. Later calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return
	}
	m.cancel()
	m.state.Close()
	m.state = nil
}

func toLValue(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
