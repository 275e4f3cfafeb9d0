package boxsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Box is the world-space geometry of a body at one instant.
type Box struct {
	Center      mgl32.Vec3
	Axes        [3]mgl32.Vec3 // local X/Y/Z in world space, unit length
	HalfExtents mgl32.Vec3
	World       mgl32.Mat4
	// Corners are ordered by bit: bit0 selects +x, bit1 +y, bit2 +z.
	Corners [8]mgl32.Vec3
}

func BoxOf(b *RigidBody) Box {
	world := b.WorldFromObj()
	rot := normalizeQuat(b.Orientation).Mat4()

	box := Box{
		Center:      b.Position,
		HalfExtents: b.Extents.Mul(0.5),
		World:       world,
	}
	for i := 0; i < 3; i++ {
		box.Axes[i] = rot.Col(i).Vec3().Normalize()
	}
	for i := 0; i < 8; i++ {
		obj := mgl32.Vec4{-0.5, -0.5, -0.5, 1}
		if i&1 != 0 {
			obj[0] = 0.5
		}
		if i&2 != 0 {
			obj[1] = 0.5
		}
		if i&4 != 0 {
			obj[2] = 0.5
		}
		box.Corners[i] = world.Mul4x1(obj).Vec3()
	}
	return box
}

// Project returns the interval covered by the corners along axis.
func (bx Box) Project(axis mgl32.Vec3) (lo, hi float32) {
	lo = float32(math.MaxFloat32)
	hi = -float32(math.MaxFloat32)
	for _, c := range bx.Corners {
		p := c.Dot(axis)
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}

// Contains reports whether p lies inside the box, with tolerance eps on every face.
func (bx Box) Contains(p mgl32.Vec3, eps float32) bool {
	d := p.Sub(bx.Center)
	for i := 0; i < 3; i++ {
		if abs32(d.Dot(bx.Axes[i])) > bx.HalfExtents[i]+eps {
			return false
		}
	}
	return true
}

// supportCorner returns the first corner minimizing dot(corner, dir).
func (bx Box) supportCorner(dir mgl32.Vec3) mgl32.Vec3 {
	best := bx.Corners[0]
	lowest := best.Dot(dir)
	for _, c := range bx.Corners[1:] {
		if v := c.Dot(dir); v < lowest {
			lowest = v
			best = c
		}
	}
	return best
}
