package renderer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// RenderManager declares the render passes of an application and adds its
// sub-renderers when the renderer starts.
type RenderManager interface {
	RenderpassCreates() []RenderpassCreate
	Start(r *Renderer) error
	Update(dt time.Duration) error
}

// Subrender records draws for one GraphicsStage.
type Subrender interface {
	Render(rec Recorder, stage GraphicsStage) error
}

type subrenderEntry struct {
	stage GraphicsStage
	seq   int
	s     Subrender
}

// Renderer is the Render-stage module. It owns the compiled passes of the
// current manager and drives sub-renderers once per frame.
type Renderer struct {
	backend Backend
	surface Surface
	log     *zap.Logger

	manager    RenderManager
	started    bool
	passes     []*Renderpass
	subrenders []subrenderEntry
	nextSeq    int
	pipelines  map[string]*Pipeline
}

func New(backend Backend, surface Surface, log *zap.Logger) *Renderer {
	return &Renderer{
		backend:   backend,
		surface:   surface,
		log:       log,
		pipelines: make(map[string]*Pipeline),
	}
}

// SetManager replaces the render manager. Its passes are compiled now; its
// Start runs at the next Update. Any failure leaves the renderer without a
// manager and without passes.
func (r *Renderer) SetManager(m RenderManager) error {
	if err := r.closePasses(); err != nil {
		return err
	}
	r.manager = nil
	r.started = false
	r.subrenders = nil
	clear(r.pipelines)

	if m == nil {
		return nil
	}

	creates := m.RenderpassCreates()
	passes := make([]*Renderpass, 0, len(creates))
	for i, c := range creates {
		p, err := NewRenderpass(c, r.backend, r.surface)
		if err != nil {
			for _, built := range passes {
				_ = built.Close()
			}
			return fmt.Errorf("render pass %d: %w", i, err)
		}
		passes = append(passes, p)
	}
	r.passes = passes
	r.manager = m
	r.log.Info("render manager set", zap.Int("renderpasses", len(passes)))
	return nil
}

// Manager returns the current render manager, or nil.
func (r *Renderer) Manager() RenderManager { return r.manager }

// Renderpass returns the i-th compiled pass.
func (r *Renderer) Renderpass(i int) (*Renderpass, bool) {
	if i < 0 || i >= len(r.passes) {
		return nil, false
	}
	return r.passes[i], true
}

// RenderpassCount returns the number of compiled passes.
func (r *Renderer) RenderpassCount() int { return len(r.passes) }

// Surface returns the surface passes are resolved against.
func (r *Renderer) Surface() Surface { return r.surface }

func (r *Renderer) checkStage(stage GraphicsStage) error {
	if int(stage.Renderpass) >= len(r.passes) {
		return configErr(stage.Subpass, NoIndex, "graphics stage %s names render pass %d of %d", stage, stage.Renderpass, len(r.passes))
	}
	if int(stage.Subpass) >= r.passes[stage.Renderpass].SubpassCount() {
		return configErr(stage.Subpass, NoIndex, "graphics stage %s names a missing subpass", stage)
	}
	return nil
}

// AddSubrender attaches s at stage. Sub-renderers of one stage run in the
// order they were added.
func (r *Renderer) AddSubrender(stage GraphicsStage, s Subrender) error {
	if err := r.checkStage(stage); err != nil {
		return err
	}
	e := subrenderEntry{stage: stage, seq: r.nextSeq, s: s}
	r.nextSeq++
	i := sort.Search(len(r.subrenders), func(i int) bool {
		o := r.subrenders[i]
		if o.stage != e.stage {
			return e.stage.Less(o.stage)
		}
		return e.seq < o.seq
	})
	r.subrenders = append(r.subrenders, subrenderEntry{})
	copy(r.subrenders[i+1:], r.subrenders[i:])
	r.subrenders[i] = e
	return nil
}

// RemoveSubrender detaches s from every stage.
func (r *Renderer) RemoveSubrender(s Subrender) bool {
	kept := make([]subrenderEntry, 0, len(r.subrenders))
	removed := false
	for _, e := range r.subrenders {
		if e.s == s {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	r.subrenders = kept
	return removed
}

// AddPipeline validates c against its target pass and keeps it by name.
func (r *Renderer) AddPipeline(c PipelineCreate) (*Pipeline, error) {
	if err := r.checkStage(c.Stage); err != nil {
		return nil, err
	}
	p, err := NewPipeline(c, r.passes[c.Stage.Renderpass])
	if err != nil {
		return nil, err
	}
	r.pipelines[c.Name] = p
	return p, nil
}

// Pipeline returns a registered pipeline by name.
func (r *Renderer) Pipeline(name string) (*Pipeline, bool) {
	p, ok := r.pipelines[name]
	return p, ok
}

// Resize updates the surface extent and recompiles passes whose size was
// deferred to it. Every replacement is compiled before any is swapped in, so
// a failure leaves the old extent and the old passes in place.
func (r *Renderer) Resize(extent Extent) error {
	if extent == r.surface.Extent {
		return nil
	}
	surface := r.surface
	surface.Extent = extent

	rebuilt := make(map[int]*Renderpass)
	for i, p := range r.passes {
		c := p.Create()
		if !c.Deferred() {
			continue
		}
		np, err := NewRenderpass(c, r.backend, surface)
		if err != nil {
			for _, built := range rebuilt {
				_ = built.Close()
			}
			return fmt.Errorf("resize render pass %d: %w", i, err)
		}
		rebuilt[i] = np
	}

	r.surface = surface
	for i, np := range rebuilt {
		if err := r.passes[i].Close(); err != nil {
			r.log.Warn("destroy resized render pass", zap.Int("renderpass", i), zap.Error(err))
		}
		r.passes[i] = np
	}
	r.log.Debug("surface resized", zap.Uint32("width", extent.Width), zap.Uint32("height", extent.Height))
	return nil
}

// Update starts the manager on its first frame, runs its Update and records
// every pass. A failing sub-renderer is reported after the frame is closed,
// so the backend never sees an unbalanced pass.
func (r *Renderer) Update(dt time.Duration) error {
	if r.manager == nil {
		return nil
	}
	if !r.started {
		if err := r.manager.Start(r); err != nil {
			return fmt.Errorf("start render manager: %w", err)
		}
		r.started = true
	}
	if err := r.manager.Update(dt); err != nil {
		return fmt.Errorf("update render manager: %w", err)
	}
	return r.record()
}

func (r *Renderer) record() error {
	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	var errs []error
	for i, p := range r.passes {
		if err := r.backend.BeginRenderPass(p.Handle(), p.Extent(), p.ClearValues()); err != nil {
			errs = append(errs, fmt.Errorf("begin render pass %d: %w", i, err))
			continue
		}
		for j := 0; j < p.SubpassCount(); j++ {
			if j > 0 {
				if err := r.backend.NextSubpass(); err != nil {
					errs = append(errs, fmt.Errorf("render pass %d next subpass: %w", i, err))
				}
			}
			stage := GraphicsStage{Renderpass: uint32(i), Subpass: uint32(j)}
			for _, e := range r.subrenders {
				if e.stage != stage {
					continue
				}
				if err := e.s.Render(r.backend, stage); err != nil {
					errs = append(errs, fmt.Errorf("subrender %T at %s: %w", e.s, stage, err))
				}
			}
		}
		if err := r.backend.EndRenderPass(); err != nil {
			errs = append(errs, fmt.Errorf("end render pass %d: %w", i, err))
		}
	}

	if err := r.backend.EndFrame(); err != nil {
		errs = append(errs, fmt.Errorf("end frame: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Renderer) closePasses() error {
	var errs []error
	for _, p := range r.passes {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.passes = nil
	return errors.Join(errs...)
}

// Close destroys every compiled pass.
func (r *Renderer) Close() error {
	r.manager = nil
	r.subrenders = nil
	return r.closePasses()
}
