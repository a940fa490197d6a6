// Package scenes holds entities and their components, drives component
// lifecycles and switches the active scene.
package scenes

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/particles"
	"github.com/acidgo/acid/internal/physics"
)

// ErrNoEntity is returned when a component is attached to a dead entity.
var ErrNoEntity = errors.New("scenes: entity does not exist")

// Behaviour is a game-logic component. Start runs before its first Update;
// if it also implements Close, Close runs when it leaves the entity.
type Behaviour interface {
	Start() error
	Update(dt time.Duration) error
}

type behaviourState struct {
	b       Behaviour
	started bool
	failed  bool // Start returned an error; never updated
}

type behaviourList struct {
	items []*behaviourState
}

// Scene is one set of entities. Accessed only from the engine loop goroutine,
// except for collider snapshots.
type Scene struct {
	name string
	bus  *event.Bus
	log  *zap.Logger

	world      *ecs.World
	names      *ecs.Store[string]
	transforms *ecs.Store[*math3d.Transform]
	bodies     *ecs.Store[*physics.RigidBody]
	colliders  *ecs.Store[physics.Collider]
	emitters   *ecs.Store[*particles.Emitter]
	behaviours *ecs.Store[*behaviourList]
}

func NewScene(name string, bus *event.Bus, log *zap.Logger) *Scene {
	s := &Scene{
		name:  name,
		bus:   bus,
		log:   log.With(zap.String("scene", name)),
		world: ecs.NewWorld(),
	}
	s.names = ecs.NewStore[string](nil)
	s.transforms = ecs.NewStore[*math3d.Transform](nil)
	s.bodies = ecs.NewStore[*physics.RigidBody](nil)
	s.colliders = ecs.NewStore(func(id ecs.EntityID, c physics.Collider) {
		if err := c.Close(); err != nil {
			s.log.Warn("collider close failed", zap.Uint64("entity", uint64(id)), zap.Error(err))
		}
	})
	s.emitters = ecs.NewStore[*particles.Emitter](nil)
	s.behaviours = ecs.NewStore(func(id ecs.EntityID, list *behaviourList) {
		for _, st := range list.items {
			closeBehaviour(s.log, id, st.b)
		}
	})

	reg := s.world.Registry()
	reg.Register(s.behaviours)
	reg.Register(s.emitters)
	reg.Register(s.colliders)
	reg.Register(s.bodies)
	reg.Register(s.transforms)
	reg.Register(s.names)
	return s
}

func closeBehaviour(log *zap.Logger, id ecs.EntityID, b Behaviour) {
	c, ok := b.(interface{ Close() error })
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("behaviour close failed", zap.Uint64("entity", uint64(id)), zap.Error(err))
	}
}

func (s *Scene) Name() string { return s.name }

// Len returns the number of live entities.
func (s *Scene) Len() int { return s.world.Len() }

// CreateEntity adds an entity with a name and an identity transform.
func (s *Scene) CreateEntity(name string) ecs.EntityID {
	id := s.world.CreateEntity()
	s.names.Set(id, name)
	t := math3d.Identity()
	s.transforms.Set(id, &t)
	return id
}

func (s *Scene) Alive(id ecs.EntityID) bool { return s.world.Alive(id) }

// Entities returns every live entity, ascending.
func (s *Scene) Entities() []ecs.EntityID {
	return s.names.IDs()
}

// Find returns the lowest entity with name.
func (s *Scene) Find(name string) (ecs.EntityID, bool) {
	for _, id := range s.names.IDs() {
		if n, _ := s.names.Get(id); n == name {
			return id, true
		}
	}
	return 0, false
}

func (s *Scene) EntityName(id ecs.EntityID) string {
	n, _ := s.names.Get(id)
	return n
}

// Transform returns the entity's transform for in-place mutation.
func (s *Scene) Transform(id ecs.EntityID) (*math3d.Transform, bool) {
	return s.transforms.Get(id)
}

func (s *Scene) alive(id ecs.EntityID) error {
	if !s.world.Alive(id) {
		return fmt.Errorf("%w: %d", ErrNoEntity, id)
	}
	return nil
}

// AddCollider starts c and attaches it, closing any collider it replaces.
// On error c is closed and not attached.
func (s *Scene) AddCollider(id ecs.EntityID, c physics.Collider) error {
	if err := s.alive(id); err != nil {
		_ = c.Close()
		return err
	}
	if err := c.Start(); err != nil {
		_ = c.Close()
		return fmt.Errorf("start collider: %w", err)
	}
	if t, ok := s.transforms.Get(id); ok {
		c.Update(*t)
	}
	s.colliders.Set(id, c)
	return nil
}

func (s *Scene) Collider(id ecs.EntityID) (physics.Collider, bool) {
	return s.colliders.Get(id)
}

// RemoveCollider detaches and closes the entity's collider.
func (s *Scene) RemoveCollider(id ecs.EntityID) {
	s.colliders.Remove(id)
}

func (s *Scene) AddRigidBody(id ecs.EntityID, rb *physics.RigidBody) error {
	if err := s.alive(id); err != nil {
		return err
	}
	s.bodies.Set(id, rb)
	return nil
}

func (s *Scene) RigidBody(id ecs.EntityID) (*physics.RigidBody, bool) {
	return s.bodies.Get(id)
}

func (s *Scene) AddEmitter(id ecs.EntityID, e *particles.Emitter) error {
	if err := s.alive(id); err != nil {
		return err
	}
	s.emitters.Set(id, e)
	return nil
}

func (s *Scene) Emitter(id ecs.EntityID) (*particles.Emitter, bool) {
	return s.emitters.Get(id)
}

// AddBehaviour appends b to the entity. It starts on the next scene update.
func (s *Scene) AddBehaviour(id ecs.EntityID, b Behaviour) error {
	if err := s.alive(id); err != nil {
		return err
	}
	list, ok := s.behaviours.Get(id)
	if !ok {
		list = &behaviourList{}
		s.behaviours.Set(id, list)
	}
	list.items = append(list.items, &behaviourState{b: b})
	return nil
}

// Destroy queues id for destruction at the end of the current update.
func (s *Scene) Destroy(id ecs.EntityID) {
	s.world.MarkForDestruction(id)
}

// Update starts new behaviours, updates the rest and then destroys queued
// entities. A failing behaviour is logged and recorded; the others still run.
// A behaviour whose Start fails is never updated.
func (s *Scene) Update(dt time.Duration) error {
	var errs []error
	s.behaviours.Each(func(id ecs.EntityID, list *behaviourList) {
		for _, st := range list.items {
			if st.failed {
				continue
			}
			if !st.started {
				st.started = true
				if err := st.b.Start(); err != nil {
					st.failed = true
					errs = append(errs, fmt.Errorf("entity %d start %T: %w", id, st.b, err))
					continue
				}
			}
			if err := st.b.Update(dt); err != nil {
				errs = append(errs, fmt.Errorf("entity %d update %T: %w", id, st.b, err))
			}
		}
	})
	s.flush()
	for _, err := range errs {
		s.log.Error("behaviour failed", zap.Error(err))
	}
	return errors.Join(errs...)
}

func (s *Scene) flush() {
	destroyed := s.world.FlushDestroyQueue()
	slices.Sort(destroyed)
	if s.bus == nil {
		return
	}
	for _, id := range destroyed {
		event.Emit(s.bus, event.EntityDestroyed{Scene: s.name, Entity: id})
	}
}

// Bodies feeds the physics module: every entity with a transform and either
// a rigid body or a collider.
func (s *Scene) Bodies(fn func(physics.Body)) {
	s.transforms.Each(func(id ecs.EntityID, t *math3d.Transform) {
		rb, hasBody := s.bodies.Get(id)
		c, hasCollider := s.colliders.Get(id)
		if !hasBody && !hasCollider {
			return
		}
		fn(physics.Body{ID: id, Transform: t, RigidBody: rb, Collider: c})
	})
}

// Emitters feeds the particles module.
func (s *Scene) Emitters(fn func(ecs.EntityID, math3d.Transform, *particles.Emitter)) {
	ecs.Each2(s.emitters, s.transforms, func(id ecs.EntityID, e *particles.Emitter, t *math3d.Transform) {
		fn(id, *t, e)
	})
}

// Colliders visits every attached collider, ascending by entity.
func (s *Scene) Colliders(fn func(ecs.EntityID, physics.Collider)) {
	s.colliders.Each(fn)
}

// Close destroys every entity, releasing their components.
func (s *Scene) Close() error {
	s.world.Clear()
	return nil
}

var (
	_ physics.Space    = (*Scene)(nil)
	_ particles.Source = (*Scene)(nil)
)
