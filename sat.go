package boxsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// AxisEpsilon is the minimum length of an edge-edge cross product
	// for it to be tested as a separating axis.
	AxisEpsilon = 1e-3
	// parallelEpsilon guards the skew-line closest point computation.
	parallelEpsilon = 1e-4
)

type ContactFeature int

const (
	FeatureNone ContactFeature = iota
	FeatureFaceA
	FeatureFaceB
	FeatureEdgeEdge
)

func (f ContactFeature) String() string {
	switch f {
	case FeatureFaceA:
		return "face-a"
	case FeatureFaceB:
		return "face-b"
	case FeatureEdgeEdge:
		return "edge-edge"
	default:
		return "none"
	}
}

// CollisionInfo describes the contact between two boxes.
// Normal is unit length and points from B toward A.
type CollisionInfo struct {
	IsColliding  bool
	ContactPoint mgl32.Vec3
	Normal       mgl32.Vec3
	Depth        float32

	Feature ContactFeature
	// EdgeA and EdgeB are the local axes that generated the winning axis.
	// For face contacts only the owning box's index is meaningful.
	EdgeA, EdgeB int
}

// DetectCollision runs the separating axis test on two bodies.
func DetectCollision(a, b *RigidBody) CollisionInfo {
	return DetectBoxes(BoxOf(a), BoxOf(b))
}

// DetectBoxes tests the 15 candidate axes in a fixed order: the face axes of a,
// the face axes of b, then a[i]×b[j] for i, j in 0..2. The first axis with a
// strictly smaller overlap wins.
func DetectBoxes(a, b Box) CollisionInfo {
	best := float32(math.MaxFloat32)
	var bestAxis mgl32.Vec3
	feature := FeatureNone
	edgeA, edgeB := -1, -1

	for i := 0; i < 3; i++ {
		o := axisOverlap(a, b, a.Axes[i])
		if o <= 0 {
			return CollisionInfo{}
		}
		if o < best {
			best, bestAxis, feature, edgeA = o, a.Axes[i], FeatureFaceA, i
		}
	}
	for j := 0; j < 3; j++ {
		o := axisOverlap(a, b, b.Axes[j])
		if o <= 0 {
			return CollisionInfo{}
		}
		if o < best {
			best, bestAxis, feature, edgeA, edgeB = o, b.Axes[j], FeatureFaceB, -1, j
		}
	}
	faceFromB := feature == FeatureFaceB

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cross := a.Axes[i].Cross(b.Axes[j])
			l := cross.Len()
			if l < AxisEpsilon {
				continue
			}
			axis := cross.Mul(1 / l)
			o := axisOverlap(a, b, axis)
			if o <= 0 {
				return CollisionInfo{}
			}
			if o < best {
				best, bestAxis, feature, edgeA, edgeB = o, axis, FeatureEdgeEdge, i, j
			}
		}
	}

	toA := a.Center.Sub(b.Center)
	normal := bestAxis
	if normal.Dot(toA) < 0 {
		normal = normal.Mul(-1)
	}

	info := CollisionInfo{
		IsColliding: true,
		Normal:      normal,
		Depth:       best,
		Feature:     feature,
		EdgeA:       edgeA,
		EdgeB:       edgeB,
	}
	switch feature {
	case FeatureFaceA:
		info.ContactPoint = b.supportCorner(b.Center.Sub(a.Center))
	case FeatureFaceB:
		info.ContactPoint = a.supportCorner(toA)
	case FeatureEdgeEdge:
		info.ContactPoint = edgeContact(a, b, edgeA, edgeB, normal, faceFromB)
	}
	return info
}

func axisOverlap(a, b Box, axis mgl32.Vec3) float32 {
	minA, maxA := a.Project(axis)
	minB, maxB := b.Project(axis)
	return min(maxA, maxB) - max(minA, minB)
}

// edgeContact finds the closest points between edge i of a and edge j of b.
// Each edge is the one nearest the other box along the contact normal.
// If the closest points fall outside either edge, or the edges are parallel,
// the contact is an edge against a face and the edge midpoint of the box
// whose face did not win is used.
func edgeContact(a, b Box, i, j int, normal mgl32.Vec3, faceFromB bool) mgl32.Vec3 {
	towardB := normal.Mul(-1)

	objA := mgl32.Vec4{0, 0, 0, 1}
	objB := mgl32.Vec4{0, 0, 0, 1}
	for k := 0; k < 3; k++ {
		if k != i {
			objA[k] = 0.5
			if a.Axes[k].Dot(towardB) < 0 {
				objA[k] = -0.5
			}
		}
		if k != j {
			objB[k] = 0.5
			if b.Axes[k].Dot(towardB) > 0 {
				objB[k] = -0.5
			}
		}
	}
	pA := a.World.Mul4x1(objA).Vec3()
	pB := b.World.Mul4x1(objB).Vec3()
	dA, dB := a.Axes[i], b.Axes[j]

	fallback := pB
	if faceFromB {
		fallback = pA
	}

	smA := dA.LenSqr()
	smB := dB.LenSqr()
	dpAB := dA.Dot(dB)
	toSt := pA.Sub(pB)
	dpStaA := dA.Dot(toSt)
	dpStaB := dB.Dot(toSt)

	denom := smA*smB - dpAB*dpAB
	if abs32(denom) < parallelEpsilon {
		return fallback
	}
	mua := (dpAB*dpStaB - smB*dpStaA) / denom
	mub := (smA*dpStaB - dpAB*dpStaA) / denom

	if abs32(mua) > a.HalfExtents[i] || abs32(mub) > b.HalfExtents[j] {
		return fallback
	}
	cA := pA.Add(dA.Mul(mua))
	cB := pB.Add(dB.Mul(mub))
	return cA.Add(cB).Mul(0.5)
}
