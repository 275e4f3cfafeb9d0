package boxsim

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultCorrectionFactor = 0.2
	DefaultSlop             = 1e-3
	// ImpulseEpsilon is the smallest impulse denominator that is still applied.
	ImpulseEpsilon = 1e-6
	normalEpsilon  = 1e-6
)

// fallbackNormal is used when neither the contact normal nor the
// relative velocity gives a usable direction.
var fallbackNormal = mgl32.Vec3{0, 0, 1}

// ContactResolver applies collision impulses and positional correction.
type ContactResolver struct {
	// CorrectionFactor is the fraction of the penetration removed per call.
	CorrectionFactor float32
	// Slop is the penetration depth below which positions are left alone.
	Slop float32
}

func NewContactResolver() ContactResolver {
	return ContactResolver{
		CorrectionFactor: DefaultCorrectionFactor,
		Slop:             DefaultSlop,
	}
}

// ResolveContact resolves one contact with the default resolver settings.
func ResolveContact(a, b *RigidBody, info CollisionInfo, restitution float32, wasColliding bool) (applied, wasCollidingNext bool) {
	return NewContactResolver().Resolve(a, b, info, restitution, wasColliding)
}

// Resolve applies an impulse along info.Normal if the bodies approach each
// other at the contact point. Restitution only applies on the first step of a
// contact; a pair that was already colliding is treated as inelastic.
// Positional correction runs whether or not an impulse was applied.
func (r ContactResolver) Resolve(a, b *RigidBody, info CollisionInfo, restitution float32, wasColliding bool) (applied, wasCollidingNext bool) {
	if !info.IsColliding {
		return false, false
	}
	if a.Fixed && b.Fixed {
		return false, true
	}

	xA := info.ContactPoint.Sub(a.Position)
	xB := info.ContactPoint.Sub(b.Position)
	vRel := a.VelocityAt(xA).Sub(b.VelocityAt(xB))
	n := contactNormal(info.Normal, vRel)

	vn := vRel.Dot(n)
	if vn >= 0 {
		r.correctPositions(a, b, n, info.Depth)
		return false, true
	}

	e := restitution
	if wasColliding {
		e = 0
	}

	invA, invB := a.InverseMass(), b.InverseMass()
	iA, iB := a.WorldInverseInertia(), b.WorldInverseInertia()
	denom := invA + invB +
		iA.Mul3x1(xA.Cross(n).Cross(xA)).Dot(n) +
		iB.Mul3x1(xB.Cross(n).Cross(xB)).Dot(n)
	if !(denom >= ImpulseEpsilon) {
		r.correctPositions(a, b, n, info.Depth)
		return false, true
	}

	j := -(1 + e) * vn / denom
	if !isFinite(j) {
		r.correctPositions(a, b, n, info.Depth)
		return false, true
	}
	impulse := n.Mul(j)

	if !a.Fixed {
		a.LinearVelocity = a.LinearVelocity.Add(impulse.Mul(invA))
		a.AngularVelocity = a.AngularVelocity.Add(iA.Mul3x1(xA.Cross(impulse)))
	}
	if !b.Fixed {
		b.LinearVelocity = b.LinearVelocity.Sub(impulse.Mul(invB))
		b.AngularVelocity = b.AngularVelocity.Sub(iB.Mul3x1(xB.Cross(impulse)))
	}

	r.correctPositions(a, b, n, info.Depth)
	return true, true
}

// correctPositions pushes the bodies apart along n by a share of depth
// proportional to each body's inverse mass.
func (r ContactResolver) correctPositions(a, b *RigidBody, n mgl32.Vec3, depth float32) {
	if !(depth > r.Slop) {
		return
	}
	invA, invB := a.InverseMass(), b.InverseMass()
	total := invA + invB
	if total <= 0 {
		return
	}
	push := depth * r.CorrectionFactor / total
	if !a.Fixed {
		a.Position = a.Position.Add(n.Mul(push * invA))
	}
	if !b.Fixed {
		b.Position = b.Position.Sub(n.Mul(push * invB))
	}
}

// contactNormal returns a unit normal, deriving one from the relative
// velocity, and then a fixed axis, when the given normal is degenerate.
func contactNormal(normal, vRel mgl32.Vec3) mgl32.Vec3 {
	if l := normal.Len(); l > normalEpsilon && isFinite(l) {
		return normal.Mul(1 / l)
	}
	if l := vRel.Len(); l > normalEpsilon && isFinite(l) {
		return vRel.Mul(-1 / l)
	}
	return fallbackNormal
}
