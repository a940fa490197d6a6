package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/acidgo/acid/internal/math3d"
)

// AABB is an axis-aligned box in world space.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Overlaps reports whether the boxes intersect. Touching faces count.
func (a AABB) Overlaps(b AABB) bool {
	for i := range 3 {
		if a.Max[i] < b.Min[i] || b.Max[i] < a.Min[i] {
			return false
		}
	}
	return true
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// worldBounds places local bounds at world position and rotation, with the
// owner's scale applied. The result encloses the rotated box.
func worldBounds(lo, hi mgl32.Vec3, world math3d.Transform, scale mgl32.Vec3) AABB {
	centre := lo.Add(hi).Mul(0.5)
	half := hi.Sub(lo).Mul(0.5)
	for i := range 3 {
		centre[i] *= scale[i]
		half[i] *= abs32(scale[i])
	}

	rot := world.Quat().Mat4().Mat3()
	c := world.Position.Add(rot.Mul3x1(centre))
	var e mgl32.Vec3
	for row := range 3 {
		for col := range 3 {
			e[row] += abs32(rot.At(row, col)) * half[col]
		}
	}
	return AABB{Min: c.Sub(e), Max: c.Add(e)}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
