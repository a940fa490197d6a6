package renderer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type testManager struct {
	creates []RenderpassCreate
	onStart func(*Renderer) error
	starts  int
	updates int
}

func (m *testManager) RenderpassCreates() []RenderpassCreate { return m.creates }
func (m *testManager) Start(r *Renderer) error {
	m.starts++
	if m.onStart != nil {
		return m.onStart(r)
	}
	return nil
}
func (m *testManager) Update(time.Duration) error {
	m.updates++
	return nil
}

type namedSubrender struct {
	name string
	log  *[]string
	err  error
}

func (s *namedSubrender) Render(rec Recorder, stage GraphicsStage) error {
	*s.log = append(*s.log, fmt.Sprintf("%s@%s", s.name, stage))
	if s.err != nil {
		return s.err
	}
	return rec.Draw(DrawCall{Pipeline: s.name, VertexCount: 3, InstanceCount: 1})
}

func twoPassManager() *testManager {
	shadow := RenderpassCreate{
		Width: 512, Height: 512,
		Attachments: []Attachment{NewAttachment(0, "shadow", AttachmentDepth)},
		Subpasses:   []SubpassType{NewSubpass(0, 0)},
	}
	main := RenderpassCreate{
		Attachments: []Attachment{
			NewAttachment(0, "depth", AttachmentDepth),
			NewAttachment(1, "swapchain", AttachmentSwapchain),
			NewAttachment(2, "diffuse", AttachmentImage),
		},
		Subpasses: []SubpassType{NewSubpass(0, 0, 2), NewSubpass(1, 1)},
	}
	return &testManager{creates: []RenderpassCreate{shadow, main}}
}

func TestRendererRecordsStagesInOrder(t *testing.T) {
	b := NewHeadlessBackend()
	r := New(b, testSurface, zap.NewNop())
	m := twoPassManager()
	var calls []string
	m.onStart = func(r *Renderer) error {
		for _, add := range []struct {
			stage GraphicsStage
			name  string
		}{
			{GraphicsStage{1, 1}, "guis"},
			{GraphicsStage{1, 0}, "meshes"},
			{GraphicsStage{0, 0}, "shadows"},
			{GraphicsStage{1, 1}, "fonts"},
		} {
			if err := r.AddSubrender(add.stage, &namedSubrender{name: add.name, log: &calls}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := r.SetManager(m); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 2 {
		t.Fatalf("compiled %d passes, want 2", b.Live())
	}

	for i := 0; i < 2; i++ {
		if err := r.Update(16 * time.Millisecond); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if m.starts != 1 || m.updates != 2 {
		t.Fatalf("manager started %d times, updated %d times", m.starts, m.updates)
	}
	want := []string{"shadows@0.0", "meshes@1.0", "guis@1.1", "fonts@1.1"}
	if strings.Join(calls[:4], ",") != strings.Join(want, ",") {
		t.Fatalf("subrender order = %v, want %v", calls[:4], want)
	}
	if b.Frames() != 2 {
		t.Fatalf("frames = %d", b.Frames())
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 0 {
		t.Fatalf("%d passes leaked after Close", b.Live())
	}
}

func TestRendererSubrenderFailureKeepsPassBalanced(t *testing.T) {
	b := NewHeadlessBackend()
	r := New(b, testSurface, zap.NewNop())
	m := twoPassManager()
	var calls []string
	boom := errors.New("boom")
	m.onStart = func(r *Renderer) error {
		if err := r.AddSubrender(GraphicsStage{1, 0}, &namedSubrender{name: "bad", log: &calls, err: boom}); err != nil {
			return err
		}
		return r.AddSubrender(GraphicsStage{1, 1}, &namedSubrender{name: "good", log: &calls})
	}
	if err := r.SetManager(m); err != nil {
		t.Fatal(err)
	}
	err := r.Update(0)
	if !errors.Is(err, boom) {
		t.Fatalf("Update err = %v, want boom", err)
	}
	if b.Frames() != 1 {
		t.Fatal("frame not closed after subrender failure")
	}
	if len(calls) != 2 || calls[1] != "good@1.1" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRendererRejectsUnknownStage(t *testing.T) {
	r := New(NewHeadlessBackend(), testSurface, zap.NewNop())
	if err := r.SetManager(twoPassManager()); err != nil {
		t.Fatal(err)
	}
	var calls []string
	err := r.AddSubrender(GraphicsStage{Renderpass: 0, Subpass: 1}, &namedSubrender{log: &calls})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	err = r.AddSubrender(GraphicsStage{Renderpass: 2}, &namedSubrender{log: &calls})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestRendererSetManagerFailureReleasesPasses(t *testing.T) {
	b := NewHeadlessBackend()
	r := New(b, testSurface, zap.NewNop())
	m := twoPassManager()
	m.creates[1].Subpasses[1].AttachmentBindings = []uint32{9}

	if err := r.SetManager(m); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if b.Live() != 0 || r.RenderpassCount() != 0 || r.Manager() != nil {
		t.Fatalf("partial renderer state: live=%d passes=%d", b.Live(), r.RenderpassCount())
	}
}

func TestRendererResizeRecompilesDeferredPasses(t *testing.T) {
	b := NewHeadlessBackend()
	r := New(b, testSurface, zap.NewNop())
	if err := r.SetManager(twoPassManager()); err != nil {
		t.Fatal(err)
	}
	shadow, _ := r.Renderpass(0)
	main, _ := r.Renderpass(1)

	if err := r.Resize(Extent{Width: 800, Height: 600}); err != nil {
		t.Fatal(err)
	}
	newShadow, _ := r.Renderpass(0)
	newMain, _ := r.Renderpass(1)
	if newShadow != shadow {
		t.Fatal("fixed-size pass was recompiled")
	}
	if newMain == main || newMain.Extent() != (Extent{Width: 800, Height: 600}) {
		t.Fatalf("deferred pass not recompiled: %v", newMain.Extent())
	}
	if main.Handle() != nil {
		t.Fatal("replaced pass still holds a handle")
	}
	if b.Live() != 2 {
		t.Fatalf("live passes = %d, want 2", b.Live())
	}
}

// failNthCreate fails the n-th CreateRenderPass call from now on.
type failNthCreate struct {
	*HeadlessBackend
	n     int
	cause error
}

func (b *failNthCreate) CreateRenderPass(desc *Description) (Handle, error) {
	b.n--
	if b.n == 0 {
		return nil, b.cause
	}
	return b.HeadlessBackend.CreateRenderPass(desc)
}

func TestRendererResizeFailureKeepsOldPasses(t *testing.T) {
	hb := NewHeadlessBackend()
	b := &failNthCreate{HeadlessBackend: hb}
	r := New(b, testSurface, zap.NewNop())
	m := &testManager{creates: []RenderpassCreate{depthSwapchainCreate(), depthSwapchainCreate()}}
	if err := r.SetManager(m); err != nil {
		t.Fatal(err)
	}
	first, _ := r.Renderpass(0)
	second, _ := r.Renderpass(1)

	cause := errors.New("out of device memory")
	b.n, b.cause = 2, cause
	if err := r.Resize(Extent{Width: 800, Height: 600}); !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
	if r.Surface().Extent != testSurface.Extent {
		t.Fatalf("extent = %v after failed resize", r.Surface().Extent)
	}
	p0, _ := r.Renderpass(0)
	p1, _ := r.Renderpass(1)
	if p0 != first || p1 != second || first.Handle() == nil || second.Handle() == nil {
		t.Fatal("failed resize replaced or closed a pass")
	}
	if hb.Live() != 2 {
		t.Fatalf("live passes = %d, want 2", hb.Live())
	}
}

func TestPipelineValidation(t *testing.T) {
	r := New(NewHeadlessBackend(), testSurface, zap.NewNop())
	if err := r.SetManager(twoPassManager()); err != nil {
		t.Fatal(err)
	}

	p, err := r.AddPipeline(PipelineCreate{
		Name:    "meshes",
		Stage:   GraphicsStage{1, 0},
		Shaders: []string{"Shaders/Mesh.vert", "Shaders/Mesh.frag"},
		Mode:    ModeMRT,
		Depth:   DepthReadWrite,
	})
	if err != nil {
		t.Fatalf("AddPipeline: %v", err)
	}
	if p.BlendAttachments != 1 || p.ShaderStages[0] != "vertex" || p.ShaderStages[1] != "fragment" {
		t.Fatalf("pipeline = %+v", p)
	}
	if got, ok := r.Pipeline("meshes"); !ok || got != p {
		t.Fatal("pipeline not kept by name")
	}

	bad := []PipelineCreate{
		{Name: "nodepth", Stage: GraphicsStage{1, 1}, Shaders: []string{"a.vert", "a.frag"}, Depth: DepthRead},
		{Name: "noshaders", Stage: GraphicsStage{1, 0}},
		{Name: "badext", Stage: GraphicsStage{1, 0}, Shaders: []string{"a.glsl"}},
		{Name: "nofrag", Stage: GraphicsStage{1, 1}, Shaders: []string{"a.vert"}},
		{Name: "mrt", Stage: GraphicsStage{0, 0}, Shaders: []string{"a.vert"}, Mode: ModeMRT},
		{Name: "", Stage: GraphicsStage{1, 0}, Shaders: []string{"a.vert", "a.frag"}},
	}
	for _, c := range bad {
		if _, err := r.AddPipeline(c); !errors.Is(err, ErrConfiguration) {
			t.Errorf("pipeline %q: err = %v, want ErrConfiguration", c.Name, err)
		}
	}
}
