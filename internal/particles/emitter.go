package particles

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/metadata"
)

// ParticleType is the look and lifetime shared by particles of one kind.
type ParticleType struct {
	Name       string
	Colour     mgl32.Vec4
	LifeLength float32 // seconds
	Scale      float32
}

func (t *ParticleType) MarshalMetadata(n *metadata.Node) {
	metadata.Set(n, "name", t.Name)
	c := n.SetChild("colour")
	for i, ch := range [...]string{"r", "g", "b", "a"} {
		metadata.Set(c, ch, t.Colour[i])
	}
	metadata.Set(n, "lifeLength", t.LifeLength)
	metadata.Set(n, "scale", t.Scale)
}

func (t *ParticleType) UnmarshalMetadata(n *metadata.Node) error {
	if err := metadata.Get(n, "name", &t.Name); err != nil {
		return err
	}
	if c := n.Child("colour"); c != nil {
		for i, ch := range [...]string{"r", "g", "b", "a"} {
			if err := metadata.Get(c, ch, &t.Colour[i]); err != nil {
				return err
			}
		}
	}
	if err := metadata.Get(n, "lifeLength", &t.LifeLength); err != nil {
		return err
	}
	return metadata.Get(n, "scale", &t.Scale)
}

// Particle is one live particle in world space.
type Particle struct {
	Type          *ParticleType
	Position      mgl32.Vec3
	Velocity      mgl32.Vec3
	GravityEffect float32
	LifeLength    float32
	Rotation      float32
	Scale         float32
	Elapsed       float32
}

// Alive reports whether the particle has time left.
func (p *Particle) Alive() bool { return p.Elapsed < p.LifeLength }

// Emitter is the scene component that spawns particles around its entity.
// Error fields are fractions of the average (0.1 = ±10%).
type Emitter struct {
	Types              []*ParticleType
	Spawn              Spawn
	PPS                float32 // particles per second
	AverageSpeed       float32
	GravityEffect      float32
	RandomRotation     bool
	Direction          mgl32.Vec3 // zero emits in every direction
	DirectionDeviation float32    // cone half-angle in radians
	SpeedError         float32
	LifeError          float32
	ScaleError         float32
	Paused             bool

	carry float32
}

func vary(rng *rand.Rand, average, errorFraction float32) float32 {
	return average + average*errorFraction*randRange(rng, -1, 1)
}

// Emit returns the particles due after dt at origin. Fractional particles
// carry over to the next call.
func (e *Emitter) Emit(rng *rand.Rand, dt float32, origin math3d.Transform) []Particle {
	if e.Paused || len(e.Types) == 0 || e.Spawn == nil || e.PPS <= 0 {
		return nil
	}
	due := e.PPS*dt + e.carry
	n := int(due)
	e.carry = due - float32(n)

	out := make([]Particle, 0, n)
	for range n {
		out = append(out, e.emitOne(rng, origin))
	}
	return out
}

func (e *Emitter) emitOne(rng *rand.Rand, origin math3d.Transform) Particle {
	typ := e.Types[rng.IntN(len(e.Types))]

	var dir mgl32.Vec3
	if e.Direction.Len() > 0 {
		dir = randomUnitVectorInCone(rng, e.Direction, e.DirectionDeviation)
	} else {
		dir = randomUnitVector(rng)
	}

	p := Particle{
		Type:          typ,
		Position:      origin.Position.Add(origin.Quat().Rotate(e.Spawn.Position(rng))),
		Velocity:      dir.Normalize().Mul(vary(rng, e.AverageSpeed, e.SpeedError)),
		GravityEffect: e.GravityEffect,
		LifeLength:    vary(rng, typ.LifeLength, e.LifeError),
		Scale:         vary(rng, typ.Scale, e.ScaleError),
	}
	if e.RandomRotation {
		p.Rotation = randRange(rng, 0, 2*math.Pi)
	}
	return p
}

// MarshalMetadata writes the emitter; particle types are written by value.
func (e *Emitter) MarshalMetadata(n *metadata.Node) {
	types := n.SetChild("types")
	for _, t := range e.Types {
		t.MarshalMetadata(types.Append())
	}
	if e.Spawn != nil {
		sp := n.SetChild("spawn")
		metadata.Set(sp, "type", e.Spawn.Kind())
		e.Spawn.MarshalMetadata(sp)
	}
	metadata.Set(n, "pps", e.PPS)
	metadata.Set(n, "averageSpeed", e.AverageSpeed)
	metadata.Set(n, "gravityEffect", e.GravityEffect)
	metadata.Set(n, "randomRotation", e.RandomRotation)
	math3d.SetVec3(n, "direction", e.Direction)
	metadata.Set(n, "directionDeviation", e.DirectionDeviation)
	metadata.Set(n, "speedError", e.SpeedError)
	metadata.Set(n, "lifeError", e.LifeError)
	metadata.Set(n, "scaleError", e.ScaleError)
}

func (e *Emitter) UnmarshalMetadata(n *metadata.Node) error {
	if types := n.Child("types"); types != nil {
		e.Types = e.Types[:0]
		for _, c := range types.Children {
			t := &ParticleType{}
			if err := t.UnmarshalMetadata(c); err != nil {
				return fmt.Errorf("particle type: %w", err)
			}
			e.Types = append(e.Types, t)
		}
	}
	if sp := n.Child("spawn"); sp != nil {
		var kind string
		if err := metadata.Require(sp, "type", &kind); err != nil {
			return err
		}
		s, err := NewSpawn(kind)
		if err != nil {
			return err
		}
		if err := s.UnmarshalMetadata(sp); err != nil {
			return fmt.Errorf("spawn %s: %w", kind, err)
		}
		e.Spawn = s
	}
	fields := []struct {
		name string
		dst  *float32
	}{
		{"pps", &e.PPS},
		{"averageSpeed", &e.AverageSpeed},
		{"gravityEffect", &e.GravityEffect},
		{"directionDeviation", &e.DirectionDeviation},
		{"speedError", &e.SpeedError},
		{"lifeError", &e.LifeError},
		{"scaleError", &e.ScaleError},
	}
	for _, f := range fields {
		if err := metadata.Get(n, f.name, f.dst); err != nil {
			return err
		}
	}
	if err := metadata.Get(n, "randomRotation", &e.RandomRotation); err != nil {
		return err
	}
	return math3d.GetVec3(n, "direction", &e.Direction)
}
