// Package particles emits short-lived billboard particles from emitter
// components and ages them every tick.
package particles

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/metadata"
)

// Spawn picks where, relative to its emitter, a new particle appears.
type Spawn interface {
	Kind() string
	Position(rng *rand.Rand) mgl32.Vec3
	metadata.Marshaler
	metadata.Unmarshaler
}

// NewSpawn returns a zero spawn of kind, to be filled from metadata.
func NewSpawn(kind string) (Spawn, error) {
	switch kind {
	case "point":
		return &SpawnPoint{}, nil
	case "sphere":
		return &SpawnSphere{}, nil
	case "circle":
		return &SpawnCircle{Heading: mgl32.Vec3{0, 1, 0}}, nil
	case "line":
		return &SpawnLine{Axis: mgl32.Vec3{1, 0, 0}}, nil
	}
	return nil, fmt.Errorf("unknown particle spawn %q", kind)
}

func randRange(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// randomUnitVector is uniform over the sphere surface.
func randomUnitVector(rng *rand.Rand) mgl32.Vec3 {
	theta := float64(randRange(rng, 0, 2*math.Pi))
	z := randRange(rng, -1, 1)
	root := float32(math.Sqrt(float64(1 - z*z)))
	return mgl32.Vec3{root * float32(math.Cos(theta)), root * float32(math.Sin(theta)), z}
}

// randomUnitVectorInCone is uniform over the cap of the unit sphere within
// angle radians of axis.
func randomUnitVectorInCone(rng *rand.Rand, axis mgl32.Vec3, angle float32) mgl32.Vec3 {
	cosAngle := float32(math.Cos(float64(angle)))
	theta := float64(randRange(rng, 0, 2*math.Pi))
	z := randRange(rng, cosAngle, 1)
	root := float32(math.Sqrt(float64(1 - z*z)))
	v := mgl32.Vec3{root * float32(math.Cos(theta)), root * float32(math.Sin(theta)), z}

	forward := mgl32.Vec3{0, 0, 1}
	axis = axis.Normalize()
	switch {
	case axis.ApproxEqual(forward):
		return v
	case axis.ApproxEqual(forward.Mul(-1)):
		return v.Mul(-1)
	}
	return mgl32.QuatBetweenVectors(forward, axis).Rotate(v)
}

// SpawnPoint emits every particle at one offset.
type SpawnPoint struct {
	Point mgl32.Vec3
}

func (s *SpawnPoint) Kind() string                     { return "point" }
func (s *SpawnPoint) Position(*rand.Rand) mgl32.Vec3   { return s.Point }
func (s *SpawnPoint) MarshalMetadata(n *metadata.Node) { math3d.SetVec3(n, "point", s.Point) }
func (s *SpawnPoint) UnmarshalMetadata(n *metadata.Node) error {
	return math3d.GetVec3(n, "point", &s.Point)
}

// SpawnSphere emits inside a ball. The distance from the centre is the
// larger of two uniform draws, so density grows towards the surface.
type SpawnSphere struct {
	Radius float32
}

func (s *SpawnSphere) Kind() string { return "sphere" }

func (s *SpawnSphere) Position(rng *rand.Rand) mgl32.Vec3 {
	dir := randomUnitVector(rng).Mul(s.Radius)
	a, b := rng.Float32(), rng.Float32()
	return dir.Mul(max(a, b))
}

func (s *SpawnSphere) MarshalMetadata(n *metadata.Node) { metadata.Set(n, "radius", s.Radius) }
func (s *SpawnSphere) UnmarshalMetadata(n *metadata.Node) error {
	return metadata.Get(n, "radius", &s.Radius)
}

// SpawnCircle emits on a ring of Radius in the plane whose normal is Heading.
type SpawnCircle struct {
	Radius  float32
	Heading mgl32.Vec3
}

func (s *SpawnCircle) Kind() string { return "circle" }

func (s *SpawnCircle) Position(rng *rand.Rand) mgl32.Vec3 {
	heading := s.Heading
	if heading.Len() == 0 {
		heading = mgl32.Vec3{0, 1, 0}
	}
	heading = heading.Normalize()
	for {
		v := randomUnitVector(rng).Cross(heading)
		if l := v.Len(); l > 1e-4 {
			return v.Mul(s.Radius / l)
		}
	}
}

func (s *SpawnCircle) MarshalMetadata(n *metadata.Node) {
	metadata.Set(n, "radius", s.Radius)
	math3d.SetVec3(n, "heading", s.Heading)
}

func (s *SpawnCircle) UnmarshalMetadata(n *metadata.Node) error {
	if err := metadata.Get(n, "radius", &s.Radius); err != nil {
		return err
	}
	return math3d.GetVec3(n, "heading", &s.Heading)
}

// SpawnLine emits along a segment of Length centred on the emitter.
type SpawnLine struct {
	Length float32
	Axis   mgl32.Vec3
}

func (s *SpawnLine) Kind() string { return "line" }

func (s *SpawnLine) Position(rng *rand.Rand) mgl32.Vec3 {
	if s.Axis.Len() == 0 {
		return mgl32.Vec3{}
	}
	return s.Axis.Normalize().Mul(s.Length * (rng.Float32() - 0.5))
}

func (s *SpawnLine) MarshalMetadata(n *metadata.Node) {
	metadata.Set(n, "length", s.Length)
	math3d.SetVec3(n, "axis", s.Axis)
}

func (s *SpawnLine) UnmarshalMetadata(n *metadata.Node) error {
	if err := metadata.Get(n, "length", &s.Length); err != nil {
		return err
	}
	return math3d.GetVec3(n, "axis", &s.Axis)
}
