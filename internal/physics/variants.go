package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/metadata"
)

// Sphere is a collider of one radius.
type Sphere struct {
	colliderBase
	radius float32
}

func sphereShape(r float32) (dims, scale mgl32.Vec3) {
	return mgl32.Vec3{r, r, r}, mgl32.Vec3{r, r, r}
}

func NewSphere(radius float32, local math3d.Transform) (*Sphere, error) {
	c := &Sphere{radius: radius}
	dims, scale := sphereShape(radius)
	if err := c.init(KindSphere, dims, scale, local); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Sphere) Radius() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.radius
}

func (c *Sphere) SetRadius(r float32) error {
	dims, scale := sphereShape(r)
	return c.resize(dims, scale, func() { c.radius = r })
}

func (c *Sphere) MarshalMetadata(n *metadata.Node) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metadata.SetObject(n, "localTransform", c.local)
	metadata.Set(n, "radius", c.radius)
}

func (c *Sphere) UnmarshalMetadata(n *metadata.Node) error {
	local, r := c.LocalTransform(), c.Radius()
	if err := unmarshalLocal(n, &local); err != nil {
		return err
	}
	if err := metadata.Get(n, "radius", &r); err != nil {
		return err
	}
	dims, scale := sphereShape(r)
	return c.reload(local, dims, scale, func() { c.radius = r })
}

// Capsule is a cylinder of height capped by two hemispheres of radius.
type Capsule struct {
	colliderBase
	radius, height float32
}

func capsuleShape(r, h float32) (dims, scale mgl32.Vec3) {
	return mgl32.Vec3{r, h / 2, r}, mgl32.Vec3{r, h, r}
}

func NewCapsule(radius, height float32, local math3d.Transform) (*Capsule, error) {
	c := &Capsule{radius: radius, height: height}
	dims, scale := capsuleShape(radius, height)
	if err := c.init(KindCapsule, dims, scale, local); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Capsule) Radius() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.radius
}

func (c *Capsule) Height() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

func (c *Capsule) SetRadius(r float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dims, scale := capsuleShape(r, c.height)
	return c.resizeLocked(dims, scale, func() { c.radius = r })
}

func (c *Capsule) SetHeight(h float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dims, scale := capsuleShape(c.radius, h)
	return c.resizeLocked(dims, scale, func() { c.height = h })
}

func (c *Capsule) MarshalMetadata(n *metadata.Node) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metadata.SetObject(n, "localTransform", c.local)
	metadata.Set(n, "radius", c.radius)
	metadata.Set(n, "height", c.height)
}

func (c *Capsule) UnmarshalMetadata(n *metadata.Node) error {
	local, r, h := c.LocalTransform(), c.Radius(), c.Height()
	if err := unmarshalLocal(n, &local); err != nil {
		return err
	}
	if err := metadata.Get(n, "radius", &r); err != nil {
		return err
	}
	if err := metadata.Get(n, "height", &h); err != nil {
		return err
	}
	dims, scale := capsuleShape(r, h)
	return c.reload(local, dims, scale, func() { c.radius, c.height = r, h })
}

// Box is a collider with full edge lengths Extents.
type Box struct {
	colliderBase
	extents mgl32.Vec3
}

func boxShape(e mgl32.Vec3) (dims, scale mgl32.Vec3) {
	return e.Mul(0.5), e
}

func NewBox(extents mgl32.Vec3, local math3d.Transform) (*Box, error) {
	c := &Box{extents: extents}
	dims, scale := boxShape(extents)
	if err := c.init(KindBox, dims, scale, local); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Box) Extents() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.extents
}

func (c *Box) SetExtents(e mgl32.Vec3) error {
	dims, scale := boxShape(e)
	return c.resize(dims, scale, func() { c.extents = e })
}

func (c *Box) MarshalMetadata(n *metadata.Node) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metadata.SetObject(n, "localTransform", c.local)
	math3d.SetVec3(n, "extents", c.extents)
}

func (c *Box) UnmarshalMetadata(n *metadata.Node) error {
	local, e := c.LocalTransform(), c.Extents()
	if err := unmarshalLocal(n, &local); err != nil {
		return err
	}
	if err := math3d.GetVec3(n, "extents", &e); err != nil {
		return err
	}
	dims, scale := boxShape(e)
	return c.reload(local, dims, scale, func() { c.extents = e })
}

// radiusHeight is the state of the cone and cylinder variants, which differ
// only in how they map to implicit dimensions.
type radiusHeight struct {
	colliderBase
	radius, height float32
	shapeOf        func(r, h float32) (dims, scale mgl32.Vec3)
}

func (c *radiusHeight) Radius() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.radius
}

func (c *radiusHeight) Height() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

func (c *radiusHeight) SetRadius(r float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dims, scale := c.shapeOf(r, c.height)
	return c.resizeLocked(dims, scale, func() { c.radius = r })
}

func (c *radiusHeight) SetHeight(h float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dims, scale := c.shapeOf(c.radius, h)
	return c.resizeLocked(dims, scale, func() { c.height = h })
}

func (c *radiusHeight) MarshalMetadata(n *metadata.Node) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metadata.SetObject(n, "localTransform", c.local)
	metadata.Set(n, "radius", c.radius)
	metadata.Set(n, "height", c.height)
}

func (c *radiusHeight) UnmarshalMetadata(n *metadata.Node) error {
	local, r, h := c.LocalTransform(), c.Radius(), c.Height()
	if err := unmarshalLocal(n, &local); err != nil {
		return err
	}
	if err := metadata.Get(n, "radius", &r); err != nil {
		return err
	}
	if err := metadata.Get(n, "height", &h); err != nil {
		return err
	}
	dims, scale := c.shapeOf(r, h)
	return c.reload(local, dims, scale, func() { c.radius, c.height = r, h })
}

// Cone stands on its base; its apex is height above the base.
type Cone struct{ radiusHeight }

func coneShape(r, h float32) (dims, scale mgl32.Vec3) {
	return mgl32.Vec3{r, h, r}, mgl32.Vec3{r, h, r}
}

func NewCone(radius, height float32, local math3d.Transform) (*Cone, error) {
	c := &Cone{}
	c.radius, c.height, c.shapeOf = radius, height, coneShape
	dims, scale := coneShape(radius, height)
	if err := c.init(KindCone, dims, scale, local); err != nil {
		return nil, err
	}
	return c, nil
}

type Cylinder struct{ radiusHeight }

func cylinderShape(r, h float32) (dims, scale mgl32.Vec3) {
	return mgl32.Vec3{r, h / 2, r}, mgl32.Vec3{r, h, r}
}

func NewCylinder(radius, height float32, local math3d.Transform) (*Cylinder, error) {
	c := &Cylinder{}
	c.radius, c.height, c.shapeOf = radius, height, cylinderShape
	dims, scale := cylinderShape(radius, height)
	if err := c.init(KindCylinder, dims, scale, local); err != nil {
		return nil, err
	}
	return c, nil
}

// ConvexHull wraps the convex hull of a point cloud, usually a mesh's
// vertices. Its local scale is left as given.
type ConvexHull struct {
	colliderBase
}

func NewConvexHull(points []mgl32.Vec3, local math3d.Transform) (*ConvexHull, error) {
	s, err := newHullShape(points)
	if err != nil {
		return nil, err
	}
	c := &ConvexHull{}
	c.shape = s
	c.local = local
	c.world = local
	c.placeAtOrigin()
	return c, nil
}

func (c *ConvexHull) Points() []mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shape.Points()
}

func (c *ConvexHull) SetPoints(points []mgl32.Vec3) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrShapeReleased
	}
	return c.shape.setPoints(points)
}

func (c *ConvexHull) MarshalMetadata(n *metadata.Node) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metadata.SetObject(n, "localTransform", c.local)
	list := n.SetChild("points")
	for _, p := range c.shape.points {
		item := list.Append()
		metadata.Set(item, "x", p[0])
		metadata.Set(item, "y", p[1])
		metadata.Set(item, "z", p[2])
	}
}

func (c *ConvexHull) UnmarshalMetadata(n *metadata.Node) error {
	local := c.LocalTransform()
	if err := unmarshalLocal(n, &local); err != nil {
		return err
	}
	var points []mgl32.Vec3
	if list := n.Child("points"); list != nil {
		for _, item := range list.Children {
			var p mgl32.Vec3
			for i, axis := range [...]string{"x", "y", "z"} {
				if err := metadata.Get(item, axis, &p[i]); err != nil {
					return err
				}
			}
			points = append(points, p)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrShapeReleased
	}
	if err := c.shape.setPoints(points); err != nil {
		return err
	}
	c.local = local
	return nil
}

var (
	_ Collider = (*Sphere)(nil)
	_ Collider = (*Capsule)(nil)
	_ Collider = (*Box)(nil)
	_ Collider = (*Cone)(nil)
	_ Collider = (*Cylinder)(nil)
	_ Collider = (*ConvexHull)(nil)
)
