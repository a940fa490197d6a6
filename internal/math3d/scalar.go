package math3d

import "math"

func asin(v float32) float32     { return float32(math.Asin(float64(v))) }
func atan2(y, x float32) float32 { return float32(math.Atan2(float64(y), float64(x))) }
func abs(v float32) float32      { return float32(math.Abs(float64(v))) }
