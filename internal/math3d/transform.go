// Package math3d holds the engine's spatial value types on top of mgl32.
package math3d

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/metadata"
)

// Transform is a position, an Euler rotation (radians, XYZ order) and a
// per-axis scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

// Identity is the transform that changes nothing.
func Identity() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

func NewTransform(position, rotation, scale mgl32.Vec3) Transform {
	return Transform{Position: position, Rotation: rotation, Scale: scale}
}

// Quat returns the rotation as a quaternion.
func (t Transform) Quat() mgl32.Quat {
	return mgl32.AnglesToQuat(t.Rotation[0], t.Rotation[1], t.Rotation[2], mgl32.XYZ)
}

// Matrix returns translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Quat().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Mul places child in the space of t: scale multiplies per axis, rotations
// compose, and the child's position is scaled, rotated and offset by t.
func (t Transform) Mul(child Transform) Transform {
	scaled := mgl32.Vec3{
		child.Position[0] * t.Scale[0],
		child.Position[1] * t.Scale[1],
		child.Position[2] * t.Scale[2],
	}
	rot := t.Quat().Mul(child.Quat()).Normalize()
	return Transform{
		Position: t.Position.Add(t.Quat().Rotate(scaled)),
		Rotation: quatToEuler(rot),
		Scale: mgl32.Vec3{
			t.Scale[0] * child.Scale[0],
			t.Scale[1] * child.Scale[1],
			t.Scale[2] * child.Scale[2],
		},
	}
}

// quatToEuler inverts AnglesToQuat for the XYZ order.
func quatToEuler(q mgl32.Quat) mgl32.Vec3 {
	m := q.Mat4()
	// Column-major: m[8] is row 0, column 2.
	sy := mgl32.Clamp(m[8], -1, 1)
	y := float32(asin(sy))
	var x, z float32
	if abs(sy) < 0.9999 {
		x = atan2(-m[9], m[10])
		z = atan2(-m[4], m[0])
	} else {
		x = atan2(m[6], m[5])
		z = 0
	}
	return mgl32.Vec3{x, y, z}
}

func (t Transform) Equal(o Transform) bool {
	return t.Position.ApproxEqual(o.Position) &&
		t.Rotation.ApproxEqual(o.Rotation) &&
		t.Scale.ApproxEqual(o.Scale)
}

func (t Transform) MarshalMetadata(n *metadata.Node) {
	SetVec3(n, "position", t.Position)
	SetVec3(n, "rotation", t.Rotation)
	SetVec3(n, "scale", t.Scale)
}

func (t *Transform) UnmarshalMetadata(n *metadata.Node) error {
	if err := GetVec3(n, "position", &t.Position); err != nil {
		return err
	}
	if err := GetVec3(n, "rotation", &t.Rotation); err != nil {
		return err
	}
	return GetVec3(n, "scale", &t.Scale)
}

// SetVec3 writes v as a child with x/y/z values.
func SetVec3(n *metadata.Node, name string, v mgl32.Vec3) {
	c := n.SetChild(name)
	metadata.Set(c, "x", v[0])
	metadata.Set(c, "y", v[1])
	metadata.Set(c, "z", v[2])
}

// GetVec3 reads child name into dst; missing components stay unchanged.
func GetVec3(n *metadata.Node, name string, dst *mgl32.Vec3) error {
	c := n.Child(name)
	if c == nil {
		return nil
	}
	for i, axis := range [...]string{"x", "y", "z"} {
		if err := metadata.Get(c, axis, &dst[i]); err != nil {
			return err
		}
	}
	return nil
}
