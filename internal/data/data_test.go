package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/core/module"
	"github.com/acidgo/acid/internal/renderer"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const layouts = `
- name: main
  renderpasses:
    - width: 512
      height: 512
      attachments:
        - {binding: 0, name: shadows, type: depth}
      subpasses:
        - {binding: 0, attachments: [0]}
    - attachments:
        - {binding: 0, name: depth, type: depth}
        - {binding: 1, name: swapchain, type: swapchain, clear_colour: [0.1, 0.2, 0.3, 1]}
        - {binding: 2, name: diffuse, type: image, format: r8g8b8a8_unorm, multisampled: true, clear_colour: [0, 0, 0, 0]}
      subpasses:
        - {binding: 0, attachments: [0, 2]}
        - {binding: 1, attachments: [1]}
  pipelines:
    - name: gizmos
      stage: [1, 1]
      shaders: [Shaders/Gizmos.vert, Shaders/Gizmos.frag]
      depth: read
      topology: line_list
      polygon_mode: line
      cull_mode: none
    - name: particles
      stage: [1, 1]
      shaders: [Shaders/Particles.vert, Shaders/Particles.frag]
      mode: mrt
- name: empty
`

func TestLoadLayoutTable(t *testing.T) {
	table, err := LoadLayoutTable(writeFile(t, "renderpasses.yaml", layouts))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 || table.Names()[0] != "empty" {
		t.Fatalf("Count = %d, want 2", table.Count())
	}
	if table.Get("missing") != nil {
		t.Fatal("Get returned a layout for an unknown name")
	}

	creates, err := table.Get("main").Creates()
	if err != nil {
		t.Fatal(err)
	}
	if len(creates) != 2 {
		t.Fatalf("got %d passes, want 2", len(creates))
	}
	if creates[0].Width != 512 || creates[1].Width != 0 {
		t.Fatalf("sizes = %dx%d, %dx%d", creates[0].Width, creates[0].Height, creates[1].Width, creates[1].Height)
	}
	deferred := creates[1]
	if err := deferred.Validate(); err != nil {
		t.Fatalf("loaded pass does not validate: %v", err)
	}
	if deferred.Attachments[1].Kind != renderer.AttachmentSwapchain {
		t.Fatalf("attachment 1 kind = %v", deferred.Attachments[1].Kind)
	}
	if c := deferred.Attachments[1].ClearColour; c[0] != 0.1 || c[3] != 1 {
		t.Fatalf("clear colour = %v", c)
	}
	if c := deferred.Attachments[0].ClearColour; c[3] != 1 {
		t.Fatalf("default clear colour = %v", c)
	}
	if c := deferred.Attachments[2].ClearColour; c != (mgl32.Vec4{}) {
		t.Fatalf("transparent clear colour = %v", c)
	}
	if !deferred.Attachments[2].Multisampled || deferred.Attachments[2].Format != renderer.FormatR8G8B8A8Unorm {
		t.Fatalf("diffuse = %+v", deferred.Attachments[2])
	}
	if got := deferred.Subpasses[0].AttachmentBindings; len(got) != 2 || got[1] != 2 {
		t.Fatalf("subpass 0 bindings = %v", got)
	}

	pipes, err := table.Get("main").PipelineCreates()
	if err != nil {
		t.Fatal(err)
	}
	if len(pipes) != 2 {
		t.Fatalf("got %d pipelines", len(pipes))
	}
	g := pipes[0]
	if g.Stage != (renderer.GraphicsStage{Renderpass: 1, Subpass: 1}) || g.Depth != renderer.DepthRead ||
		g.Topology != renderer.TopologyLineList || g.PolygonMode != renderer.PolygonLine || g.CullMode != renderer.CullNone {
		t.Fatalf("gizmos pipeline = %+v", g)
	}
	if pipes[1].Mode != renderer.ModeMRT || pipes[1].Depth != renderer.DepthNone {
		t.Fatalf("particles pipeline = %+v", pipes[1])
	}
}

func TestLayoutTableErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		load bool // fails at load rather than at conversion
	}{
		{"duplicate name", "- name: a\n- name: a\n", true},
		{"bad yaml", "- name: [", true},
		{"unknown attachment type", "- name: a\n  renderpasses:\n    - attachments: [{binding: 0, type: stencil}]\n", false},
		{"unknown format", "- name: a\n  renderpasses:\n    - attachments: [{binding: 0, type: image, format: rgb565}]\n", false},
		{"unknown topology", "- name: a\n  pipelines:\n    - {name: p, shaders: [a.vert], topology: fan}\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := LoadLayoutTable(writeFile(t, "renderpasses.yaml", tt.body))
			if tt.load {
				if err == nil {
					t.Fatal("expected load error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			e := table.Get("a")
			_, cerr := e.Creates()
			_, perr := e.PipelineCreates()
			if cerr == nil && perr == nil {
				t.Fatal("expected conversion error")
			}
		})
	}
}

func TestLoadLayoutTableMissingFile(t *testing.T) {
	if _, err := LoadLayoutTable(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestModuleTable(t *testing.T) {
	table, err := LoadModuleTable(writeFile(t, "modules.yaml", "- {name: physics, stage: Post}\n- {name: scripts, stage: never}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d", table.Count())
	}
	if got := table.Stage("physics", module.StagePre); got != module.StagePost {
		t.Fatalf("physics stage = %v", got)
	}
	if got := table.Stage("particles", module.StageNormal); got != module.StageNormal {
		t.Fatalf("fallback stage = %v", got)
	}
	if err := table.Set("physics", "later"); err == nil {
		t.Fatal("Set accepted an unknown stage")
	}

	if _, err := LoadModuleTable(writeFile(t, "modules.yaml", "- {name: x, stage: sometimes}\n")); err == nil {
		t.Fatal("expected error for unknown stage")
	}
	empty, err := LoadModuleTable(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || empty.Count() != 0 {
		t.Fatalf("missing file = %v, %v", empty, err)
	}
}
