// Package physics owns collision shapes, the collider components that wrap
// them, and the Pre-stage module that integrates bodies and detects overlaps.
package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrShapeReleased is returned when a collider's shape is used or
	// recreated after Close.
	ErrShapeReleased = errors.New("physics: collision shape released")
	// ErrInvalidDimensions is returned for negative or non-finite sizes.
	ErrInvalidDimensions = errors.New("physics: invalid shape dimensions")
)

// ShapeKind identifies the geometry of a Shape.
type ShapeKind uint8

const (
	KindSphere ShapeKind = iota
	KindCapsule
	KindBox
	KindCone
	KindCylinder
	KindConvexHull
)

var kindNames = [...]string{"sphere", "capsule", "box", "cone", "cylinder", "convex_hull"}

func (k ShapeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("shape(%d)", uint8(k))
}

// ParseShapeKind resolves the names written to scene files.
func ParseShapeKind(s string) (ShapeKind, error) {
	for i, n := range kindNames {
		if n == s {
			return ShapeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown collider type %q", s)
}

// Shape is the native collision object of one collider. Its implicit
// dimensions follow the convention of the kind:
//
//	sphere    {r, r, r}
//	capsule   {r, h/2, r}   h excludes the hemispherical caps
//	box       half extents
//	cone      {r, h, r}
//	cylinder  half extents {r, h/2, r}
//
// A Shape is not synchronised; its owning collider guards it.
type Shape struct {
	kind     ShapeKind
	dims     mgl32.Vec3
	points   []mgl32.Vec3
	released bool
}

func checkDims(v mgl32.Vec3) error {
	for _, c := range v {
		f := float64(c)
		if c < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidDimensions, v)
		}
	}
	return nil
}

func newShape(kind ShapeKind, dims mgl32.Vec3) (*Shape, error) {
	if err := checkDims(dims); err != nil {
		return nil, err
	}
	return &Shape{kind: kind, dims: dims}, nil
}

func newHullShape(points []mgl32.Vec3) (*Shape, error) {
	for _, p := range points {
		for _, c := range p {
			if f := float64(c); math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: hull point %v", ErrInvalidDimensions, p)
			}
		}
	}
	return &Shape{kind: KindConvexHull, points: append([]mgl32.Vec3(nil), points...)}, nil
}

func (s *Shape) Kind() ShapeKind { return s.kind }

// ImplicitDimensions returns the kind-specific size vector.
func (s *Shape) ImplicitDimensions() mgl32.Vec3 { return s.dims }

// Points returns a copy of a convex hull's points.
func (s *Shape) Points() []mgl32.Vec3 { return append([]mgl32.Vec3(nil), s.points...) }

func (s *Shape) Released() bool { return s.released }

func (s *Shape) setImplicitDimensions(v mgl32.Vec3) error {
	if s.released {
		return ErrShapeReleased
	}
	if err := checkDims(v); err != nil {
		return err
	}
	s.dims = v
	return nil
}

func (s *Shape) setPoints(points []mgl32.Vec3) error {
	if s.released {
		return ErrShapeReleased
	}
	next, err := newHullShape(points)
	if err != nil {
		return err
	}
	s.points = next.points
	return nil
}

func (s *Shape) release() {
	s.released = true
	s.points = nil
}

// LocalBounds returns the shape's axis-aligned bounds in its own space.
func (s *Shape) LocalBounds() (lo, hi mgl32.Vec3) {
	var half mgl32.Vec3
	switch s.kind {
	case KindCapsule:
		half = mgl32.Vec3{s.dims[0], s.dims[1] + s.dims[0], s.dims[2]}
	case KindCone:
		half = mgl32.Vec3{s.dims[0], s.dims[1] / 2, s.dims[2]}
	case KindConvexHull:
		if len(s.points) == 0 {
			return mgl32.Vec3{}, mgl32.Vec3{}
		}
		lo, hi = s.points[0], s.points[0]
		for _, p := range s.points[1:] {
			for i := range 3 {
				lo[i] = min(lo[i], p[i])
				hi[i] = max(hi[i], p[i])
			}
		}
		return lo, hi
	default:
		half = s.dims
	}
	return half.Mul(-1), half
}
