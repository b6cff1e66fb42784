package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules defines the engine global in L:
//
//	engine.roll(expr)      -> total of a dice expression, or nil, errmsg
//	engine.log(msg)        -> logs msg at Info
//	engine.clamp(x, lo, hi)
//
// Precondition: L must come from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetField(engine, "log", L.NewFunction(m.luaLog))
	L.SetField(engine, "clamp", L.NewFunction(luaClamp))
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaRoll(L *lua.LState) int {
	res, err := m.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}

func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func luaClamp(L *lua.LState) int {
	x, lo, hi := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
	switch {
	case x < lo:
		x = lo
	case x > hi:
		x = hi
	}
	L.Push(x)
	return 1
}
