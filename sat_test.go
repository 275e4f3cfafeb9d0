package boxsim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCollision_OverlappingAlignedBoxes(t *testing.T) {
	size := mgl32.Vec3{1.6, 1.6, 1.6}
	a := mustBody(t, BodyOptions{Position: mgl32.Vec3{-0.6, 0, 0}, Extents: size, Mass: 1})
	b := mustBody(t, BodyOptions{Position: mgl32.Vec3{0.6, 0, 0}, Extents: size, Mass: 1})

	info := DetectCollision(a, b)
	require.True(t, info.IsColliding)
	assertVecNear(t, mgl32.Vec3{-1, 0, 0}, info.Normal, 1e-6)
	assert.InDelta(t, 0.4, info.Depth, 1e-5)
	assert.Equal(t, FeatureFaceA, info.Feature)
	assert.Equal(t, 0, info.EdgeA)

	// the deepest corner of B inside A, first in corner order
	assertVecNear(t, mgl32.Vec3{-0.2, -0.8, -0.8}, info.ContactPoint, 1e-5)
}

func TestDetectCollision_UnitBoxes(t *testing.T) {
	a := unitBox(t, mgl32.Vec3{-0.3, 0, 0})
	b := unitBox(t, mgl32.Vec3{0.3, 0, 0})

	info := DetectCollision(a, b)
	require.True(t, info.IsColliding)
	assert.InDelta(t, 0.4, info.Depth, 1e-5)
	assertVecNear(t, mgl32.Vec3{-1, 0, 0}, info.Normal, 1e-6)

	// swapping the arguments flips the normal
	swapped := DetectCollision(b, a)
	require.True(t, swapped.IsColliding)
	assertVecNear(t, mgl32.Vec3{1, 0, 0}, swapped.Normal, 1e-6)
	assert.InDelta(t, 0.4, swapped.Depth, 1e-5)
}

func TestDetectCollision_Separated(t *testing.T) {
	tilt := mgl32.QuatRotate(0.7, mgl32.Vec3{1, 1, 0}.Normalize())
	for _, axis := range []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}} {
		offset := axis.Normalize().Mul(5)
		a := unitBox(t, mgl32.Vec3{})
		b := unitBox(t, offset)
		assert.False(t, DetectCollision(a, b).IsColliding, "offset %v", offset)

		b.SetOrientation(tilt)
		assert.False(t, DetectCollision(a, b).IsColliding, "tilted, offset %v", offset)
	}
}

func TestDetectCollision_TouchingIsNotColliding(t *testing.T) {
	a := unitBox(t, mgl32.Vec3{-0.5, 0, 0})
	b := unitBox(t, mgl32.Vec3{0.5, 0, 0})
	info := DetectCollision(a, b)
	assert.False(t, info.IsColliding)
	assert.Equal(t, CollisionInfo{}, info)
}

func rotatedSlabPair(t *testing.T) (*RigidBody, *RigidBody) {
	t.Helper()
	// a wide slab resting 0.1 deep on the top corner of a box turned 45° about Z
	slab := mustBody(t, BodyOptions{
		Position: mgl32.Vec3{0.2, 4.9, 1},
		Extents:  mgl32.Vec3{9, 2, 3},
		Mass:     1,
	})
	s := float32(5.656855)
	diamond := mustBody(t, BodyOptions{
		Orientation: mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}),
		Extents:     mgl32.Vec3{s, s, 2},
		Mass:        1,
	})
	return slab, diamond
}

func TestDetectCollision_VertexOfBAgainstFaceOfA(t *testing.T) {
	slab, diamond := rotatedSlabPair(t)

	info := DetectCollision(slab, diamond)
	require.True(t, info.IsColliding)
	assert.Equal(t, FeatureFaceA, info.Feature)
	assert.Equal(t, 1, info.EdgeA)
	assertVecNear(t, mgl32.Vec3{0, 1, 0}, info.Normal, 1e-5)
	assertVecNear(t, mgl32.Vec3{0, 4, 1}, info.ContactPoint, 1e-3)
	assert.InDelta(t, 0.1, info.Depth, 1e-3)
}

func TestDetectCollision_VertexOfAAgainstFaceOfB(t *testing.T) {
	slab, diamond := rotatedSlabPair(t)

	info := DetectCollision(diamond, slab)
	require.True(t, info.IsColliding)
	assert.Equal(t, FeatureFaceB, info.Feature)
	assert.Equal(t, 1, info.EdgeB)
	assertVecNear(t, mgl32.Vec3{0, -1, 0}, info.Normal, 1e-5)
	assertVecNear(t, mgl32.Vec3{0, 4, 1}, info.ContactPoint, 1e-3)
	assert.InDelta(t, 0.1, info.Depth, 1e-3)
}

func TestDetectCollision_EdgeEdge(t *testing.T) {
	// A's top edge runs along X, B's bottom edge along Z; they cross at (0, 0.7, 0)
	a := mustBody(t, BodyOptions{
		Orientation: mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{1, 0, 0}),
		Extents:     mgl32.Vec3{1, 1, 1},
		Mass:        1,
	})
	b := mustBody(t, BodyOptions{
		Position:    mgl32.Vec3{0, 1.4, 0},
		Orientation: mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1}),
		Extents:     mgl32.Vec3{1, 1, 1},
		Mass:        1,
	})

	info := DetectCollision(a, b)
	require.True(t, info.IsColliding)
	assert.Equal(t, FeatureEdgeEdge, info.Feature)
	assert.Equal(t, 0, info.EdgeA)
	assert.Equal(t, 2, info.EdgeB)
	assertVecNear(t, mgl32.Vec3{0, -1, 0}, info.Normal, 1e-5)
	assert.InDelta(t, math.Sqrt2-1.4, info.Depth, 1e-4)
	assertVecNear(t, mgl32.Vec3{0, 0.7, 0}, info.ContactPoint, 1e-4)
}

func TestDetectCollision_NormalPointsFromBToA(t *testing.T) {
	tilt := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 1}.Normalize())
	for _, dir := range []mgl32.Vec3{{1, 0, 0}, {0, -1, 0}, {0, 0, 1}, {1, 1, 0}} {
		a := unitBox(t, mgl32.Vec3{})
		b := unitBox(t, dir.Normalize().Mul(0.8))
		b.SetOrientation(tilt)

		info := DetectCollision(a, b)
		require.True(t, info.IsColliding, "dir %v", dir)
		assert.InDelta(t, 1, info.Normal.Len(), 1e-5)
		assert.Greater(t, info.Normal.Dot(a.Position.Sub(b.Position)), float32(0), "dir %v", dir)
		assert.Greater(t, info.Depth, float32(0))
	}
}

func TestDetectCollision_Deterministic(t *testing.T) {
	a := mustBody(t, BodyOptions{
		Position:    mgl32.Vec3{0.1, 0.2, 0.3},
		Orientation: mgl32.QuatRotate(0.4, mgl32.Vec3{1, 2, 3}.Normalize()),
		Extents:     mgl32.Vec3{1, 0.7, 1.3},
		Mass:        1,
	})
	b := mustBody(t, BodyOptions{
		Position:    mgl32.Vec3{0.8, 0.5, 0.1},
		Orientation: mgl32.QuatRotate(1.1, mgl32.Vec3{3, -1, 2}.Normalize()),
		Extents:     mgl32.Vec3{0.9, 1.1, 0.6},
		Mass:        1,
	})

	first := DetectCollision(a, b)
	second := DetectCollision(a, b)
	require.True(t, first.IsColliding)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated detection differs (-first +second):\n%s", diff)
	}
}

// edgeFixture puts a unit cube at the origin and a box above it. The edge of a
// along X (y=z=0.5) and the edge of b along Y (x=bx+0.5, z=0.4) are tested.
func edgeFixture(t *testing.T, bx float32) (Box, Box, mgl32.Vec3) {
	t.Helper()
	a := BoxOf(unitBox(t, mgl32.Vec3{}))
	b := BoxOf(mustBody(t, BodyOptions{Position: mgl32.Vec3{bx, 0, 0.9}, Extents: mgl32.Vec3{1, 2, 1}, Mass: 1}))
	return a, b, mgl32.Vec3{0, 0, -1}
}

func TestEdgeContact_ClosestPointsOnBothEdges(t *testing.T) {
	a, b, n := edgeFixture(t, -0.2)
	got := edgeContact(a, b, 0, 1, n, false)
	assertVecNear(t, mgl32.Vec3{0.3, 0.5, 0.45}, got, 1e-5)
}

func TestEdgeContact_OutsideEdgeFallsBack(t *testing.T) {
	// the closest point on a's edge is 3.5 along it, past its half length of 0.5
	a, b, n := edgeFixture(t, 3)

	t.Run("face of a won", func(t *testing.T) {
		assertVecNear(t, mgl32.Vec3{3.5, 0, 0.4}, edgeContact(a, b, 0, 1, n, false), 1e-5)
	})
	t.Run("face of b won", func(t *testing.T) {
		assertVecNear(t, mgl32.Vec3{0, 0.5, 0.5}, edgeContact(a, b, 0, 1, n, true), 1e-5)
	})
}

func TestEdgeContact_ParallelEdgesFallBack(t *testing.T) {
	a, b, n := edgeFixture(t, -0.2)
	// both edges run along X, so there is no unique closest pair
	got := edgeContact(a, b, 0, 0, n, true)
	assertVecNear(t, mgl32.Vec3{0, 0.5, 0.5}, got, 1e-5)

	got = edgeContact(a, b, 0, 0, n, false)
	assert.InDelta(t, -0.2, got.X(), 1e-5)
	assert.InDelta(t, 0.4, got.Z(), 1e-5)
}
