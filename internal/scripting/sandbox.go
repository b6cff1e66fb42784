// Package scripting provides a sandboxed GopherLua environment for status
// hooks. It knows nothing about combat types; hooks receive plain values and
// return numbers.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script call when none
// is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done() has been called limit times.
// GopherLua calls Done() once per opcode, so this is an exact opcode budget.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newBudget returns a context that cancels after limit calls to Done().
//
// Precondition: limit > 0.
func newBudget(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

// NewSandboxedState creates an LState with only the base, table, string and
// math libraries, the file and loader globals removed, and an opcode budget
// of instLimit installed.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns L and must call cancel and L.Close when done.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	ctx, cancel := newBudget(limitOrDefault(instLimit))
	L.SetContext(ctx)
	return L, cancel
}

// refill installs a fresh opcode budget on L.
func refill(L *lua.LState, limit int) context.CancelFunc {
	ctx, cancel := newBudget(limitOrDefault(limit))
	L.SetContext(ctx)
	return cancel
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultInstructionLimit
	}
	return n
}
