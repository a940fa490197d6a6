package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/acidgo/acid/internal/core/module"
)

// ScriptModule is an engine module whose Update is a Lua function. The
// function receives the frame delta in seconds.
type ScriptModule struct {
	name  string
	stage module.Stage
	fn    *lua.LFunction
	vm    *lua.LState
}

func (m *ScriptModule) Name() string        { return m.name }
func (m *ScriptModule) Stage() module.Stage { return m.stage }

func (m *ScriptModule) Update(dt time.Duration) error {
	if err := m.vm.CallByParam(lua.P{
		Fn:      m.fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt.Seconds())); err != nil {
		return fmt.Errorf("script module %q: %w", m.name, err)
	}
	return nil
}
