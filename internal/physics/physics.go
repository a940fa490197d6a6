package physics

import (
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/math3d"
)

// RigidBody makes an entity move under velocity and gravity.
type RigidBody struct {
	Mass          float32
	Velocity      mgl32.Vec3
	Kinematic     bool // moved by game code only
	IgnoreGravity bool
}

// Body is one entity as seen by the physics tick. Transform and RigidBody
// are mutated in place; either RigidBody or Collider may be nil.
type Body struct {
	ID        ecs.EntityID
	Transform *math3d.Transform
	RigidBody *RigidBody
	Collider  Collider
}

// Space is the set of bodies the module simulates, usually the current scene.
type Space interface {
	Bodies(fn func(Body))
}

type Config struct {
	Gravity  mgl32.Vec3
	CellSize float32
}

// Physics is the Pre-stage module: it integrates rigid bodies, syncs
// colliders to their entities and reports overlap changes on the bus.
type Physics struct {
	gravity mgl32.Vec3
	space   func() Space
	bus     *event.Bus
	log     *zap.Logger

	grid     *grid
	contacts map[Pair]struct{}
}

// NewPhysics creates the module. space is consulted every tick and may
// return nil when no scene is active.
func NewPhysics(cfg Config, space func() Space, bus *event.Bus, log *zap.Logger) *Physics {
	return &Physics{
		gravity:  cfg.Gravity,
		space:    space,
		bus:      bus,
		log:      log,
		grid:     newGrid(cfg.CellSize),
		contacts: make(map[Pair]struct{}),
	}
}

func (p *Physics) Gravity() mgl32.Vec3 { return p.gravity }

func (p *Physics) SetGravity(g mgl32.Vec3) { p.gravity = g }

func (p *Physics) Update(dt time.Duration) error {
	var s Space
	if p.space != nil {
		s = p.space()
	}
	if s == nil {
		p.dropContacts()
		return nil
	}
	step := float32(dt.Seconds())

	p.grid.reset()
	s.Bodies(func(b Body) {
		if b.Transform == nil {
			return
		}
		if rb := b.RigidBody; rb != nil && !rb.Kinematic {
			if !rb.IgnoreGravity {
				rb.Velocity = rb.Velocity.Add(p.gravity.Mul(step))
			}
			b.Transform.Position = b.Transform.Position.Add(rb.Velocity.Mul(step))
		}
		if b.Collider == nil {
			return
		}
		b.Collider.Update(*b.Transform)
		if b.Collider.CollisionShape() == nil {
			return
		}
		p.grid.insert(b.ID, b.Collider.Snapshot().Bounds)
	})

	p.diffContacts(p.grid.overlapping())
	return nil
}

// diffContacts emits started events for new pairs and ended events for
// pairs that separated, each in ascending pair order.
func (p *Physics) diffContacts(now []Pair) {
	current := make(map[Pair]struct{}, len(now))
	for _, pair := range now {
		current[pair] = struct{}{}
		if _, ok := p.contacts[pair]; !ok && p.bus != nil {
			event.Emit(p.bus, event.CollisionStarted{A: pair.A, B: pair.B})
		}
	}

	var ended []Pair
	for pair := range p.contacts {
		if _, ok := current[pair]; !ok {
			ended = append(ended, pair)
		}
	}
	slices.SortFunc(ended, comparePairs)
	for _, pair := range ended {
		if p.bus != nil {
			event.Emit(p.bus, event.CollisionEnded{A: pair.A, B: pair.B})
		}
	}
	if len(now) != len(p.contacts) || len(ended) > 0 {
		p.log.Debug("contacts changed", zap.Int("contacts", len(now)), zap.Int("ended", len(ended)))
	}
	p.contacts = current
}

// dropContacts forgets every contact without events, for scene switches.
func (p *Physics) dropContacts() {
	if len(p.contacts) > 0 {
		clear(p.contacts)
	}
}

// Contacts returns the pairs overlapping after the last tick, ascending.
func (p *Physics) Contacts() []Pair {
	out := make([]Pair, 0, len(p.contacts))
	for pair := range p.contacts {
		out = append(out, pair)
	}
	slices.SortFunc(out, comparePairs)
	return out
}
