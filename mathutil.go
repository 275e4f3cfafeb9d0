package boxsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func vecFinite(v mgl32.Vec3) bool {
	return isFinite(v[0]) && isFinite(v[1]) && isFinite(v[2])
}

func quatFinite(q mgl32.Quat) bool {
	return isFinite(q.W) && vecFinite(q.V)
}
