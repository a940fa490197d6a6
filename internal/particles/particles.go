package particles

import (
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/renderer"
)

// Source lists the emitters of the current scene with their entity
// transforms.
type Source interface {
	Emitters(fn func(id ecs.EntityID, t math3d.Transform, e *Emitter))
}

type Config struct {
	MaxParticles int
	Gravity      mgl32.Vec3
	Seed         uint64
}

// Particles is the Normal-stage module that owns every live particle.
type Particles struct {
	source func() Source
	cfg    Config
	rng    *rand.Rand
	log    *zap.Logger

	live    []Particle
	dropped int
}

func NewParticles(cfg Config, source func() Source, log *zap.Logger) *Particles {
	if cfg.MaxParticles <= 0 {
		cfg.MaxParticles = 10000
	}
	return &Particles{
		source: source,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:    log,
		live:   make([]Particle, 0, 256),
	}
}

// Update ages live particles, drops expired ones and emits new ones. New
// particles beyond MaxParticles are discarded.
func (p *Particles) Update(dt time.Duration) error {
	step := float32(dt.Seconds())

	kept := p.live[:0]
	for _, pt := range p.live {
		pt.Velocity = pt.Velocity.Add(p.cfg.Gravity.Mul(pt.GravityEffect * step))
		pt.Position = pt.Position.Add(pt.Velocity.Mul(step))
		pt.Elapsed += step
		if pt.Alive() {
			kept = append(kept, pt)
		}
	}
	p.live = kept

	var src Source
	if p.source != nil {
		src = p.source()
	}
	if src == nil {
		return nil
	}
	src.Emitters(func(_ ecs.EntityID, t math3d.Transform, e *Emitter) {
		for _, pt := range e.Emit(p.rng, step, t) {
			if len(p.live) >= p.cfg.MaxParticles {
				p.dropped++
				continue
			}
			p.live = append(p.live, pt)
		}
	})
	return nil
}

// Live returns the particles alive after the last update. The slice is
// reused by the next Update.
func (p *Particles) Live() []Particle { return p.live }

// Dropped counts particles discarded at the cap since creation.
func (p *Particles) Dropped() int { return p.dropped }

// Clear removes every live particle, for scene switches.
func (p *Particles) Clear() {
	p.live = p.live[:0]
}

// Subrender draws live particles as instanced quads, one draw per
// particle type.
type Subrender struct {
	particles *Particles
	pipeline  string
}

func NewSubrender(p *Particles, pipeline string) *Subrender {
	return &Subrender{particles: p, pipeline: pipeline}
}

func (s *Subrender) Render(rec renderer.Recorder, _ renderer.GraphicsStage) error {
	counts := make(map[*ParticleType]uint32)
	var order []*ParticleType
	for _, pt := range s.particles.live {
		if _, ok := counts[pt.Type]; !ok {
			order = append(order, pt.Type)
		}
		counts[pt.Type]++
	}
	for _, t := range order {
		if err := rec.Draw(renderer.DrawCall{
			Pipeline:      s.pipeline,
			VertexCount:   4,
			InstanceCount: counts[t],
			Model:         mgl32.Scale3D(t.Scale, t.Scale, t.Scale),
			Colour:        t.Colour,
		}); err != nil {
			return err
		}
	}
	return nil
}
