package boxsim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	ErrInvalidExtents = errors.New("box extents must be positive")
	ErrInvalidMass    = errors.New("mass must be positive for a movable body")
)

type BodyId string

func NewBodyId() BodyId { return BodyId(uuid.NewString()) }

// RigidBody is an oriented box with 6 degrees of freedom.
// Fixed bodies have infinite mass and are never moved by the simulation.
type RigidBody struct {
	Id   BodyId
	Name string

	Position        mgl32.Vec3
	Orientation     mgl32.Quat
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3

	// Extents are the full side lengths of the box.
	Extents mgl32.Vec3
	Mass    float32
	Fixed   bool

	Force  mgl32.Vec3
	Torque mgl32.Vec3

	invMass         float32
	bodyInertia     mgl32.Vec3 // diagonal
	bodyInvInertia  mgl32.Mat3
	worldInvInertia mgl32.Mat3
	inertiaFor      mgl32.Quat // orientation worldInvInertia was computed for
}

type BodyOptions struct {
	Id              BodyId
	Name            string
	Position        mgl32.Vec3
	Orientation     mgl32.Quat // zero value means identity
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Extents         mgl32.Vec3
	Mass            float32
	Fixed           bool
}

func NewBody(opts BodyOptions) (*RigidBody, error) {
	for i := 0; i < 3; i++ {
		if !(opts.Extents[i] > 0) || !isFinite(opts.Extents[i]) {
			return nil, fmt.Errorf("body %q: %w (got %v)", opts.Name, ErrInvalidExtents, opts.Extents)
		}
	}
	if !opts.Fixed && (!(opts.Mass > 0) || !isFinite(opts.Mass)) {
		return nil, fmt.Errorf("body %q: %w (got %v)", opts.Name, ErrInvalidMass, opts.Mass)
	}

	id := opts.Id
	if id == "" {
		id = NewBodyId()
	}
	b := &RigidBody{
		Id:              id,
		Name:            opts.Name,
		Position:        opts.Position,
		Orientation:     normalizeQuat(opts.Orientation),
		LinearVelocity:  opts.LinearVelocity,
		AngularVelocity: opts.AngularVelocity,
		Extents:         opts.Extents,
		Mass:            opts.Mass,
		Fixed:           opts.Fixed,
	}
	if b.Fixed {
		b.LinearVelocity = mgl32.Vec3{}
		b.AngularVelocity = mgl32.Vec3{}
	} else {
		b.invMass = 1 / b.Mass
		b.bodyInertia = BoxInertia(b.Mass, b.Extents)
		b.bodyInvInertia = mgl32.Diag3(mgl32.Vec3{
			1 / b.bodyInertia[0],
			1 / b.bodyInertia[1],
			1 / b.bodyInertia[2],
		})
	}
	b.refreshInertia()
	return b, nil
}

// NewFixedBody creates an immovable box, typically ground or walls.
func NewFixedBody(name string, position mgl32.Vec3, orientation mgl32.Quat, extents mgl32.Vec3) (*RigidBody, error) {
	return NewBody(BodyOptions{
		Name:        name,
		Position:    position,
		Orientation: orientation,
		Extents:     extents,
		Fixed:       true,
	})
}

// BoxInertia returns the diagonal of the body-space inertia tensor of a solid box.
func BoxInertia(mass float32, extents mgl32.Vec3) mgl32.Vec3 {
	x2 := extents[0] * extents[0]
	y2 := extents[1] * extents[1]
	z2 := extents[2] * extents[2]
	return mgl32.Vec3{
		mass * (y2 + z2) / 12,
		mass * (x2 + z2) / 12,
		mass * (x2 + y2) / 12,
	}
}

func (b *RigidBody) InverseMass() float32 { return b.invMass }

func (b *RigidBody) BodyInverseInertia() mgl32.Mat3 { return b.bodyInvInertia }

// WorldInverseInertia returns R·I⁻¹·Rᵀ for the current orientation.
// The cached tensor is rebuilt if Orientation was assigned directly.
func (b *RigidBody) WorldInverseInertia() mgl32.Mat3 {
	if b.Orientation != b.inertiaFor {
		b.refreshInertia()
	}
	return b.worldInvInertia
}

// SetOrientation stores a normalized copy of q and refreshes the world inertia.
func (b *RigidBody) SetOrientation(q mgl32.Quat) {
	b.Orientation = normalizeQuat(q)
	b.refreshInertia()
}

func (b *RigidBody) refreshInertia() {
	if b.Fixed {
		b.worldInvInertia = mgl32.Mat3{}
		b.inertiaFor = b.Orientation
		return
	}
	r := normalizeQuat(b.Orientation).Mat4().Mat3()
	b.worldInvInertia = r.Mul3(b.bodyInvInertia).Mul3(r.Transpose())
	b.inertiaFor = b.Orientation
}

// worldInertia returns R·I·Rᵀ, the non-inverted world tensor.
func (b *RigidBody) worldInertia() mgl32.Mat3 {
	if b.Fixed {
		return mgl32.Mat3{}
	}
	r := normalizeQuat(b.Orientation).Mat4().Mat3()
	return r.Mul3(mgl32.Diag3(b.bodyInertia)).Mul3(r.Transpose())
}

func (b *RigidBody) AddForce(f mgl32.Vec3) {
	b.Force = b.Force.Add(f)
}

func (b *RigidBody) AddTorque(t mgl32.Vec3) {
	b.Torque = b.Torque.Add(t)
}

// AddForceAt accumulates a force acting at a world-space point,
// producing both a linear force and a torque about the center of mass.
func (b *RigidBody) AddForceAt(f, worldPoint mgl32.Vec3) {
	b.Force = b.Force.Add(f)
	b.Torque = b.Torque.Add(worldPoint.Sub(b.Position).Cross(f))
}

func (b *RigidBody) ClearForces() {
	b.Force = mgl32.Vec3{}
	b.Torque = mgl32.Vec3{}
}

// VelocityAt returns the world velocity of the material point at leverArm from the center.
func (b *RigidBody) VelocityAt(leverArm mgl32.Vec3) mgl32.Vec3 {
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(leverArm))
}

// WorldFromObj is Translate(position)·Rotate(orientation)·Scale(extents).
func (b *RigidBody) WorldFromObj() mgl32.Mat4 {
	t := mgl32.Translate3D(b.Position[0], b.Position[1], b.Position[2])
	r := normalizeQuat(b.Orientation).Mat4()
	s := mgl32.Scale3D(b.Extents[0], b.Extents[1], b.Extents[2])
	return t.Mul4(r).Mul4(s)
}

// WorldPoint maps a point given in body-local units to world space.
func (b *RigidBody) WorldPoint(local mgl32.Vec3) mgl32.Vec3 {
	return b.Position.Add(normalizeQuat(b.Orientation).Rotate(local))
}

func (b *RigidBody) KineticEnergy() float32 {
	if b.Fixed {
		return 0
	}
	linear := 0.5 * b.Mass * b.LinearVelocity.LenSqr()
	angular := 0.5 * b.AngularVelocity.Dot(b.worldInertia().Mul3x1(b.AngularVelocity))
	return linear + angular
}

func (b *RigidBody) String() string {
	if b.Name != "" {
		return b.Name
	}
	return string(b.Id)
}

func normalizeQuat(q mgl32.Quat) mgl32.Quat {
	l := q.Len()
	if l < 1e-8 || !isFinite(l) {
		return mgl32.QuatIdent()
	}
	if l == 1 {
		return q
	}
	return q.Scale(1 / l)
}
