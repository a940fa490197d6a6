package physics

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/metadata"
)

// Collider is a physics shape attached to a scene entity.
//
// The owning scene calls Start once when the component is added and Close
// when it is removed; the physics module calls Update every tick with the
// entity's transform.
type Collider interface {
	Start() error
	Update(parent math3d.Transform)
	CollisionShape() *Shape
	LocalTransform() math3d.Transform
	SetLocalTransform(t math3d.Transform)
	Snapshot() Snapshot
	MarshalMetadata(n *metadata.Node)
	UnmarshalMetadata(n *metadata.Node) error
	Close() error
}

// Snapshot is a consistent copy of a collider's state, taken under one lock.
type Snapshot struct {
	Kind   ShapeKind
	Dims   mgl32.Vec3
	Local  math3d.Transform
	World  math3d.Transform
	Bounds AABB
}

// colliderBase carries the state shared by every variant. mu guards the
// shape together with the transforms, so a snapshot never mixes an old
// dimension with a new scale.
type colliderBase struct {
	mu      sync.RWMutex
	shape   *Shape
	local   math3d.Transform
	world   math3d.Transform
	bounds  AABB
	started bool
	closed  bool
}

func (c *colliderBase) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrShapeReleased
	}
	c.started = true
	return nil
}

// Update recomputes the world transform and bounds from the owner's
// transform. The shape is sized by its implicit dimensions; the local scale
// only drives visualisation.
func (c *colliderBase) Update(parent math3d.Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.world = parent.Mul(c.local)
	lo, hi := c.shape.LocalBounds()
	c.bounds = worldBounds(lo, hi, c.world, parent.Scale)
}

// CollisionShape returns the native shape, or nil after Close.
func (c *colliderBase) CollisionShape() *Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	return c.shape
}

func (c *colliderBase) LocalTransform() math3d.Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local
}

func (c *colliderBase) SetLocalTransform(t math3d.Transform) {
	c.mu.Lock()
	c.local = t
	c.mu.Unlock()
}

func (c *colliderBase) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Kind:   c.shape.kind,
		Dims:   c.shape.dims,
		Local:  c.local,
		World:  c.world,
		Bounds: c.bounds,
	}
}

// Close releases the shape. Later calls are no-ops.
func (c *colliderBase) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.shape.release()
	return nil
}

// resize applies new implicit dimensions and local scale in one critical
// section. apply stores the variant's own fields under the same lock.
func (c *colliderBase) resize(dims, scale mgl32.Vec3, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resizeLocked(dims, scale, apply)
}

// reload is resize that also replaces the local transform, for
// UnmarshalMetadata.
func (c *colliderBase) reload(local math3d.Transform, dims, scale mgl32.Vec3, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.resizeLocked(dims, scale, apply); err != nil {
		return err
	}
	c.local = local
	c.local.Scale = scale
	return nil
}

func (c *colliderBase) resizeLocked(dims, scale mgl32.Vec3, apply func()) error {
	if c.closed {
		return ErrShapeReleased
	}
	if err := c.shape.setImplicitDimensions(dims); err != nil {
		return err
	}
	apply()
	c.local.Scale = scale
	return nil
}

func (c *colliderBase) init(kind ShapeKind, dims, scale mgl32.Vec3, local math3d.Transform) error {
	s, err := newShape(kind, dims)
	if err != nil {
		return fmt.Errorf("create %s shape: %w", kind, err)
	}
	c.shape = s
	c.local = local
	c.local.Scale = scale
	c.world = c.local
	c.placeAtOrigin()
	return nil
}

// placeAtOrigin sets bounds as if the owner sat at the identity transform.
func (c *colliderBase) placeAtOrigin() {
	lo, hi := c.shape.LocalBounds()
	c.bounds = worldBounds(lo, hi, c.world, mgl32.Vec3{1, 1, 1})
}

// New creates a collider of kind with default dimensions, ready to be
// filled by UnmarshalMetadata.
func New(kind ShapeKind) (Collider, error) {
	id := math3d.Identity()
	var (
		c   Collider
		err error
	)
	switch kind {
	case KindSphere:
		c, err = NewSphere(0.5, id)
	case KindCapsule:
		c, err = NewCapsule(0.5, 1, id)
	case KindBox:
		c, err = NewBox(mgl32.Vec3{1, 1, 1}, id)
	case KindCone:
		c, err = NewCone(0.5, 1, id)
	case KindCylinder:
		c, err = NewCylinder(0.5, 1, id)
	case KindConvexHull:
		c, err = NewConvexHull(nil, id)
	default:
		return nil, fmt.Errorf("unknown collider kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// KindOf returns the shape kind of any collider.
func KindOf(c Collider) ShapeKind {
	return c.Snapshot().Kind
}

func unmarshalLocal(n *metadata.Node, local *math3d.Transform) error {
	return metadata.GetObject(n, "localTransform", local)
}
