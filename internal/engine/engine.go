// Package engine wires the built-in modules into a registry and drives the
// frame loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/config"
	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/core/module"
	"github.com/acidgo/acid/internal/data"
	"github.com/acidgo/acid/internal/particles"
	"github.com/acidgo/acid/internal/physics"
	"github.com/acidgo/acid/internal/renderer"
	"github.com/acidgo/acid/internal/renderer/gizmos"
	"github.com/acidgo/acid/internal/scenes"
	"github.com/acidgo/acid/internal/scripting"
)

// Pipeline names the built-in sub-renderers bind to.
const (
	PipelineGizmos    = "gizmos"
	PipelineParticles = "particles"
)

// Options carries what the configuration file cannot describe.
type Options struct {
	Backend renderer.Backend  // nil selects the headless backend
	Layout  *data.LayoutEntry // nil leaves the renderer without a manager
	Stages  *data.ModuleTable // nil keeps built-in stages
}

// Engine owns the module registry and the event bus. All methods must be
// called from the goroutine running the loop.
type Engine struct {
	cfg *config.Config
	log *zap.Logger
	reg *module.Registry
	bus *event.Bus

	scenes    *scenes.Scenes
	particles *particles.Particles
	renderer  *renderer.Renderer
	scripts   *scripting.Engine

	updateInterval time.Duration
	frameInterval  time.Duration

	started    bool
	closed     bool
	last       time.Time
	lastUpdate time.Time
	lastFrame  time.Time
	updates    uint64
	frames     uint64
}

// New builds the engine and registers its modules in this order:
//
//	events     Always  swap and dispatch the event bus
//	physics    Pre     integrate bodies, sync colliders, report contacts
//	scenes     Normal  behaviours and deferred destruction
//	particles  Normal  emit and age particles
//	scripts    per script, Post by convention
//	renderer   Render  record and submit
//
// Stages come from opts.Stages, then from the [modules] config section,
// and fall back to the list above. Script modules are looked up as
// "script:<name>". Any construction failure tears down what was built.
func New(cfg *config.Config, opts Options, log *zap.Logger) (*Engine, error) {
	surface, err := surfaceOf(cfg)
	if err != nil {
		return nil, err
	}
	stages := opts.Stages
	if stages == nil {
		stages = data.NewModuleTable()
	}
	for name, stage := range cfg.Modules {
		if err := stages.Set(name, stage); err != nil {
			return nil, fmt.Errorf("config modules: %w", err)
		}
	}
	backend := opts.Backend
	if backend == nil {
		backend = renderer.NewHeadlessBackend()
	}

	e := &Engine{
		cfg:            cfg,
		log:            log,
		reg:            module.NewRegistry(log.Named("modules")),
		bus:            event.NewBus(),
		updateInterval: cfg.Engine.UpdateInterval(),
		frameInterval:  cfg.Engine.FrameInterval(),
	}
	e.scenes = scenes.NewScenes(e.bus, log.Named("scenes"))

	module.Register(e.reg, stages.Stage("events", module.StageAlways), NewEvents(e.bus))

	g := cfg.Physics.Gravity
	module.Register(e.reg, stages.Stage("physics", module.StagePre), physics.NewPhysics(physics.Config{
		Gravity:  mgl32.Vec3(g),
		CellSize: cfg.Physics.CellSize,
	}, e.scenes.Space, e.bus, log.Named("physics")))

	module.Register(e.reg, stages.Stage("scenes", module.StageNormal), e.scenes)

	e.particles = particles.NewParticles(particles.Config{
		MaxParticles: cfg.Particles.MaxParticles,
		Gravity:      mgl32.Vec3(g),
		Seed:         cfg.Particles.Seed,
	}, e.scenes.Source, log.Named("particles"))
	module.Register(e.reg, stages.Stage("particles", module.StageNormal), e.particles)

	e.scripts, err = scripting.NewEngine(cfg.Scripting.Dir, e.scenes.Current, log.Named("scripting"))
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("scripting: %w", err)
	}
	for _, m := range e.scripts.Modules() {
		module.RegisterEntry(e.reg, stages.Stage("script:"+m.Name(), m.Stage()), m)
	}

	e.renderer = renderer.New(backend, surface, log.Named("renderer"))
	module.Register(e.reg, stages.Stage("renderer", module.StageRender), e.renderer)

	if opts.Layout != nil {
		if err := e.setLayout(opts.Layout); err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	log.Info("engine ready",
		zap.Int("modules", e.reg.Len()),
		zap.Duration("update_interval", e.updateInterval),
		zap.Duration("frame_interval", e.frameInterval))
	return e, nil
}

func surfaceOf(cfg *config.Config) (renderer.Surface, error) {
	sf, err := renderer.ParseFormat(cfg.Renderer.SurfaceFormat)
	if err != nil {
		return renderer.Surface{}, fmt.Errorf("renderer surface_format: %w", err)
	}
	df, err := renderer.ParseFormat(cfg.Renderer.DepthFormat)
	if err != nil {
		return renderer.Surface{}, fmt.Errorf("renderer depth_format: %w", err)
	}
	return renderer.Surface{
		Extent:        renderer.Extent{Width: cfg.Window.Width, Height: cfg.Window.Height},
		SurfaceFormat: sf,
		DepthFormat:   df,
		Samples:       cfg.Renderer.Samples,
	}, nil
}

func (e *Engine) setLayout(layout *data.LayoutEntry) error {
	mgr, err := NewLayoutManager(layout, e.log.Named("layout"))
	if err != nil {
		return fmt.Errorf("render layout %q: %w", layout.Name, err)
	}
	mgr.Bind(PipelineGizmos, func(pipeline string) renderer.Subrender {
		return gizmos.NewSubrender(e.gizmoSource, pipeline, nil)
	})
	mgr.Bind(PipelineParticles, func(pipeline string) renderer.Subrender {
		return particles.NewSubrender(e.particles, pipeline)
	})
	if err := e.renderer.SetManager(mgr); err != nil {
		return fmt.Errorf("render layout %q: %w", layout.Name, err)
	}
	return nil
}

func (e *Engine) gizmoSource() gizmos.Source {
	if s := e.scenes.Current(); s != nil {
		return s
	}
	return nil
}

func (e *Engine) Registry() *module.Registry      { return e.reg }
func (e *Engine) Bus() *event.Bus                 { return e.bus }
func (e *Engine) Scenes() *scenes.Scenes          { return e.scenes }
func (e *Engine) Renderer() *renderer.Renderer    { return e.renderer }
func (e *Engine) Scripts() *scripting.Engine      { return e.scripts }
func (e *Engine) Particles() *particles.Particles { return e.particles }

// Updates returns the number of simulation ticks run.
func (e *Engine) Updates() uint64 { return e.updates }

// Frames returns the number of render frames run.
func (e *Engine) Frames() uint64 { return e.frames }

// LoadScene reads a YAML scene file and makes it the active scene.
func (e *Engine) LoadScene(path string) error {
	s, err := scenes.LoadFile(path, e.bus, e.log.Named("scenes"))
	if err != nil {
		return err
	}
	return e.scenes.SetScene(s)
}

// Resize changes the render surface and announces it on the bus.
func (e *Engine) Resize(width, height uint32) error {
	if err := e.renderer.Resize(renderer.Extent{Width: width, Height: height}); err != nil {
		return err
	}
	event.Emit(e.bus, event.SurfaceResized{Width: width, Height: height})
	return nil
}

// Step runs one loop iteration at time now. Always modules run every
// iteration; Pre, Normal and Post run once the update interval has passed;
// Render runs once the frame interval has passed, or every iteration when
// the frame rate is uncapped. Each phase receives the time since it last ran.
// Module failures are joined into the returned error and never stop a phase.
func (e *Engine) Step(now time.Time) error {
	if !e.started {
		e.started = true
		e.last = now
		e.lastUpdate = now.Add(-e.updateInterval)
		e.lastFrame = now.Add(-e.frameInterval)
	}

	var errs []error
	if err := e.reg.RunFrame(module.AlwaysStages, now.Sub(e.last)); err != nil {
		errs = append(errs, err)
	}
	e.last = now

	if dt := now.Sub(e.lastUpdate); dt >= e.updateInterval {
		e.lastUpdate = now
		e.updates++
		if err := e.reg.RunFrame(module.UpdateStages, dt); err != nil {
			errs = append(errs, err)
		}
	}

	if dt := now.Sub(e.lastFrame); dt >= e.frameInterval {
		e.lastFrame = now
		e.frames++
		if err := e.reg.RunFrame(module.RenderStages, dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run steps the engine until ctx is cancelled. Step errors are already
// logged by the registry and do not stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	tick := e.updateInterval
	if e.frameInterval > 0 && e.frameInterval < tick {
		tick = e.frameInterval
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.log.Info("engine loop started", zap.Duration("tick", tick))
	for {
		select {
		case now := <-ticker.C:
			_ = e.Step(now)
		case <-ctx.Done():
			e.log.Info("engine loop stopped",
				zap.Uint64("updates", e.updates),
				zap.Uint64("frames", e.frames))
			return nil
		}
	}
}

// Close deregisters every module in reverse stage order and then releases
// the script VM. Calling it again is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.reg.DeregisterAll()
	if err != nil {
		e.log.Error("module teardown failed", zap.Error(err))
	}
	if e.scripts != nil {
		e.scripts.Close()
	}
	return err
}
