package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/module"
	"github.com/acidgo/acid/internal/scenes"
)

func writeScript(t *testing.T, dir, sub, name, src string) {
	t.Helper()
	p := filepath.Join(dir, sub)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScriptModulesRegisterAndUpdate(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "util.lua", `
ticks = 0
function step(dt) ticks = ticks + dt end
`)
	writeScript(t, dir, "modules", "counter.lua", `
register_module("counter", "Post", function(dt) step(dt) end)
register_module("idle", "never", function(dt) error("never runs") end)
`)

	e, err := NewEngine(dir, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	mods := e.Modules()
	if len(mods) != 2 {
		t.Fatalf("got %d modules, want 2", len(mods))
	}
	if mods[0].Name() != "counter" || mods[0].Stage() != module.StagePost || mods[1].Stage() != module.StageNever {
		t.Fatalf("modules = %s@%s, %s@%s", mods[0].Name(), mods[0].Stage(), mods[1].Name(), mods[1].Stage())
	}

	r := module.NewRegistry(zap.NewNop())
	for _, m := range mods {
		module.RegisterEntry(r, m.Stage(), m)
	}
	for i := 0; i < 4; i++ {
		if err := r.RunFrame(module.UpdateStages, 250*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if got := e.vm.GetGlobal("ticks").String(); got != "1" {
		t.Fatalf("ticks = %s, want 1", got)
	}
}

func TestScriptModuleErrorIsReturned(t *testing.T) {
	e, err := NewEngine("", nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.DoString(`register_module("bad", "pre", function(dt) error("broken") end)`); err != nil {
		t.Fatal(err)
	}
	err = e.Modules()[0].Update(time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "broken") || !strings.Contains(err.Error(), `"bad"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterModuleRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown stage": `register_module("a", "sometimes", function() end)`,
		"no function":   `register_module("a", "pre", 3)`,
		"duplicate":     `register_module("a", "pre", function() end) register_module("a", "post", function() end)`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			e, err := NewEngine("", nil, zap.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			defer e.Close()
			if err := e.DoString(src); err == nil {
				t.Fatal("expected a Lua error")
			}
		})
	}
}

func TestLoadErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "broken.lua", "this is not lua")
	_, err := NewEngine(dir, nil, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "broken.lua") {
		t.Fatalf("err = %v", err)
	}
}

func TestSceneAPI(t *testing.T) {
	scene := scenes.NewScene("test", nil, zap.NewNop())
	player := scene.CreateEntity("player")
	crate := scene.CreateEntity("crate")

	e, err := NewEngine("", func() *scenes.Scene { return scene }, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	err = e.DoString(`
local id = find_entity("player")
set_entity_position(id, 1, 2, 3)
x, y, z = entity_position(id)
missing = find_entity("ghost")
destroy_entity(find_entity("crate"))
log_info("moved player")
`)
	if err != nil {
		t.Fatal(err)
	}
	tr, _ := scene.Transform(player)
	if tr.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("position = %v", tr.Position)
	}
	if e.vm.GetGlobal("y").String() != "2" {
		t.Fatalf("y = %v", e.vm.GetGlobal("y"))
	}
	if e.vm.GetGlobal("missing").Type().String() != "nil" {
		t.Fatal("unknown entity resolved")
	}
	if err := scene.Update(0); err != nil {
		t.Fatal(err)
	}
	if scene.Alive(crate) {
		t.Fatal("destroy_entity did not queue the crate")
	}
}

func TestSceneAPIWithoutScene(t *testing.T) {
	e, err := NewEngine("", func() *scenes.Scene { return nil }, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.DoString(`ok = set_entity_position(1, 0, 0, 0) id = find_entity("x")`); err != nil {
		t.Fatal(err)
	}
	if e.vm.GetGlobal("ok").String() != "false" {
		t.Fatal("set_entity_position succeeded without a scene")
	}
}

func TestLuaBehaviour(t *testing.T) {
	scene := scenes.NewScene("test", nil, zap.NewNop())
	id := scene.CreateEntity("spinner")

	e, err := NewEngine("", func() *scenes.Scene { return scene }, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	err = e.DoString(`
events = {}
attached = attach_behaviour(find_entity("spinner"), {
	start  = function(self) table.insert(events, "start") end,
	update = function(self, dt) table.insert(events, "update") end,
	close  = function(self) table.insert(events, "close") end,
})
`)
	if err != nil {
		t.Fatal(err)
	}
	if e.vm.GetGlobal("attached").String() != "true" {
		t.Fatal("attach_behaviour failed")
	}
	for i := 0; i < 2; i++ {
		if err := scene.Update(time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	scene.Destroy(id)
	if err := scene.Update(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := e.DoString(`joined = table.concat(events, ",")`); err != nil {
		t.Fatal(err)
	}
	want := "start,update,update,update,close"
	if got := e.vm.GetGlobal("joined").String(); got != want {
		t.Fatalf("events = %s, want %s", got, want)
	}
}
