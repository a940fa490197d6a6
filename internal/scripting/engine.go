package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/scenes"
)

// Engine wraps a single gopher-lua VM running engine scripts.
// Single-goroutine access only (engine loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	modules []*ScriptModule
	scene   func() *scenes.Scene
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. Scripts call register_module while loading; the registrations
// are available from Modules once NewEngine returns.
func NewEngine(scriptsDir string, scene func() *scenes.Scene, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, scene: scene}
	e.openAPI()

	if scriptsDir == "" {
		return e, nil
	}

	// Load core scripts first, then module scripts
	for _, sub := range []string{"core", "modules"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	log.Info("scripts loaded", zap.String("dir", scriptsDir), zap.Int("modules", len(e.modules)))
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Modules returns the script modules registered so far, in registration order.
func (e *Engine) Modules() []*ScriptModule {
	return append([]*ScriptModule(nil), e.modules...)
}

func (e *Engine) currentScene() *scenes.Scene {
	if e.scene == nil {
		return nil
	}
	return e.scene()
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
