package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"
)

// behaviour adapts a Lua table with optional start/update/close fields to
// scenes.Behaviour. Each function receives the table as its first argument.
type behaviour struct {
	vm   *lua.LState
	self *lua.LTable
}

func (b *behaviour) call(field string, args ...lua.LValue) error {
	fn, ok := b.self.RawGetString(field).(*lua.LFunction)
	if !ok {
		return nil
	}
	return b.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{b.self}, args...)...)
}

func (b *behaviour) Start() error { return b.call("start") }

func (b *behaviour) Update(dt time.Duration) error {
	return b.call("update", lua.LNumber(dt.Seconds()))
}

func (b *behaviour) Close() error { return b.call("close") }
