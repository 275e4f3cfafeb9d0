package boxsim

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Integrate advances a body by dt with semi-implicit Euler and clears its
// force and torque accumulators. Fixed bodies only have their accumulators
// cleared.
//
// The order matters: the linear velocity is updated before the position, and
// the world inertia is refreshed from the new orientation before the angular
// momentum is turned back into an angular velocity.
func Integrate(b *RigidBody, dt float32) {
	if b.Fixed {
		b.ClearForces()
		return
	}

	prevPos, prevRot := b.Position, b.Orientation
	inertiaOld := b.worldInertia()

	b.LinearVelocity = b.LinearVelocity.Add(b.Force.Mul(dt * b.invMass))
	b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))

	q := normalizeQuat(b.Orientation)
	spin := mgl32.Quat{W: 0, V: b.AngularVelocity}
	b.Orientation = normalizeQuat(q.Add(spin.Mul(q).Scale(0.5 * dt)))
	b.refreshInertia()

	momentum := inertiaOld.Mul3x1(b.AngularVelocity).Add(b.Torque.Mul(dt))
	b.AngularVelocity = b.worldInvInertia.Mul3x1(momentum)

	b.ClearForces()

	if !vecFinite(b.Position) || !quatFinite(b.Orientation) ||
		!vecFinite(b.LinearVelocity) || !vecFinite(b.AngularVelocity) {
		b.Position = prevPos
		b.LinearVelocity = mgl32.Vec3{}
		b.AngularVelocity = mgl32.Vec3{}
		b.SetOrientation(prevRot)
	}
}
