package scripting

import (
	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/core/module"
)

// openAPI installs the Go functions scripts can call.
func (e *Engine) openAPI() {
	api := map[string]lua.LGFunction{
		"register_module":     e.luaRegisterModule,
		"log_debug":           e.luaLog(zap.DebugLevel),
		"log_info":            e.luaLog(zap.InfoLevel),
		"log_warn":            e.luaLog(zap.WarnLevel),
		"log_error":           e.luaLog(zap.ErrorLevel),
		"find_entity":         e.luaFindEntity,
		"entity_position":     e.luaEntityPosition,
		"set_entity_position": e.luaSetEntityPosition,
		"destroy_entity":      e.luaDestroyEntity,
		"attach_behaviour":    e.luaAttachBehaviour,
	}
	for name, fn := range api {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// register_module(name, stage, fn)
func (e *Engine) luaRegisterModule(L *lua.LState) int {
	name := L.CheckString(1)
	stage, err := module.ParseStage(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	fn := L.CheckFunction(3)
	for _, m := range e.modules {
		if m.name == name {
			L.RaiseError("script module %q registered twice", name)
			return 0
		}
	}
	e.modules = append(e.modules, &ScriptModule{name: name, stage: stage, fn: fn, vm: e.vm})
	e.log.Debug("script module registered", zap.String("name", name), zap.Stringer("stage", stage))
	return 0
}

// log_<level>(msg)
func (e *Engine) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := e.log.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(L.CheckNumber(n))
}

// find_entity(name) -> id | nil
func (e *Engine) luaFindEntity(L *lua.LState) int {
	name := L.CheckString(1)
	s := e.currentScene()
	if s == nil {
		L.Push(lua.LNil)
		return 1
	}
	id, ok := s.Find(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

// entity_position(id) -> x, y, z | nil
func (e *Engine) luaEntityPosition(L *lua.LState) int {
	id := checkEntity(L, 1)
	s := e.currentScene()
	if s == nil {
		L.Push(lua.LNil)
		return 1
	}
	t, ok := s.Transform(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(t.Position[0]))
	L.Push(lua.LNumber(t.Position[1]))
	L.Push(lua.LNumber(t.Position[2]))
	return 3
}

// set_entity_position(id, x, y, z) -> bool
func (e *Engine) luaSetEntityPosition(L *lua.LState) int {
	id := checkEntity(L, 1)
	x, y, z := L.CheckNumber(2), L.CheckNumber(3), L.CheckNumber(4)
	s := e.currentScene()
	if s == nil {
		L.Push(lua.LFalse)
		return 1
	}
	t, ok := s.Transform(id)
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	t.Position = mgl32.Vec3{float32(x), float32(y), float32(z)}
	L.Push(lua.LTrue)
	return 1
}

// destroy_entity(id)
func (e *Engine) luaDestroyEntity(L *lua.LState) int {
	id := checkEntity(L, 1)
	if s := e.currentScene(); s != nil {
		s.Destroy(id)
	}
	return 0
}

// attach_behaviour(id, {start = fn, update = fn}) -> bool
func (e *Engine) luaAttachBehaviour(L *lua.LState) int {
	id := checkEntity(L, 1)
	tbl := L.CheckTable(2)
	s := e.currentScene()
	if s == nil {
		L.Push(lua.LFalse)
		return 1
	}
	b := &behaviour{vm: e.vm, self: tbl}
	if err := s.AddBehaviour(id, b); err != nil {
		e.log.Warn("attach behaviour", zap.Uint64("entity", uint64(id)), zap.Error(err))
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}
