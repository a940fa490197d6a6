// Package gizmos draws debug shapes for colliders.
package gizmos

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/physics"
	"github.com/acidgo/acid/internal/renderer"
)

// Source lists the colliders to visualise.
type Source interface {
	Colliders(fn func(id ecs.EntityID, c physics.Collider))
}

// Type is how one shape kind is drawn.
type Type struct {
	Model       string
	VertexCount uint32
	LineWidth   float32
	Colour      mgl32.Vec4
}

var fuchsia = mgl32.Vec4{1, 0, 1, 1}

// DefaultTypes maps every shape kind to a wireframe model.
func DefaultTypes() map[physics.ShapeKind]Type {
	return map[physics.ShapeKind]Type{
		physics.KindSphere:     {Model: "Gizmos/Sphere.obj", VertexCount: 1440, LineWidth: 3, Colour: fuchsia},
		physics.KindCapsule:    {Model: "Gizmos/Capsule.obj", VertexCount: 1536, LineWidth: 3, Colour: fuchsia},
		physics.KindBox:        {Model: "Gizmos/Cube.obj", VertexCount: 24, LineWidth: 3, Colour: fuchsia},
		physics.KindCone:       {Model: "Gizmos/Cone.obj", VertexCount: 192, LineWidth: 3, Colour: fuchsia},
		physics.KindCylinder:   {Model: "Gizmos/Cylinder.obj", VertexCount: 384, LineWidth: 3, Colour: fuchsia},
		physics.KindConvexHull: {Model: "Gizmos/Hull.obj", VertexCount: 0, LineWidth: 3, Colour: fuchsia},
	}
}

// Subrender issues one draw per collider. Each draw is built from a single
// collider snapshot, so shape and scale always agree.
type Subrender struct {
	source   func() Source
	pipeline string
	types    map[physics.ShapeKind]Type
	hidden   bool
}

func NewSubrender(source func() Source, pipeline string, types map[physics.ShapeKind]Type) *Subrender {
	if types == nil {
		types = DefaultTypes()
	}
	return &Subrender{source: source, pipeline: pipeline, types: types}
}

func (s *Subrender) SetHidden(h bool) { s.hidden = h }

func (s *Subrender) Render(rec renderer.Recorder, _ renderer.GraphicsStage) error {
	if s.hidden || s.source == nil {
		return nil
	}
	src := s.source()
	if src == nil {
		return nil
	}

	var err error
	src.Colliders(func(_ ecs.EntityID, c physics.Collider) {
		if err != nil || c.CollisionShape() == nil {
			return
		}
		snap := c.Snapshot()
		typ, ok := s.types[snap.Kind]
		if !ok {
			return
		}
		vertices := typ.VertexCount
		if snap.Kind == physics.KindConvexHull {
			if h, ok := c.(*physics.ConvexHull); ok {
				vertices = uint32(len(h.Points()))
			}
		}
		err = rec.Draw(renderer.DrawCall{
			Pipeline:      s.pipeline,
			VertexCount:   vertices,
			InstanceCount: 1,
			Model:         snap.World.Matrix(),
			Colour:        typ.Colour,
		})
	})
	return err
}
