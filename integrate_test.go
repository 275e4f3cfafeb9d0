package boxsim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrate_SemiImplicitEuler(t *testing.T) {
	b := mustBody(t, BodyOptions{Extents: mgl32.Vec3{1, 1, 1}, Mass: 2})
	b.AddForce(mgl32.Vec3{0, 0, -19.62})

	Integrate(b, 0.1)

	// velocity is updated first and the new velocity moves the body
	assertVecNear(t, mgl32.Vec3{0, 0, -0.981}, b.LinearVelocity, 1e-5)
	assertVecNear(t, mgl32.Vec3{0, 0, -0.0981}, b.Position, 1e-6)
	assert.Equal(t, mgl32.Vec3{}, b.Force)
	assert.Equal(t, mgl32.Vec3{}, b.Torque)
}

func TestIntegrate_TorqueSpinsBody(t *testing.T) {
	// a cube of mass 6 and side 1 has unit moments of inertia
	b := mustBody(t, BodyOptions{Extents: mgl32.Vec3{1, 1, 1}, Mass: 6})
	b.AddTorque(mgl32.Vec3{0, 0, 1})

	Integrate(b, 0.5)
	assertVecNear(t, mgl32.Vec3{0, 0, 0.5}, b.AngularVelocity, 1e-5)

	Integrate(b, 0.5)
	assertVecNear(t, mgl32.Vec3{0, 0, 0.5}, b.AngularVelocity, 1e-5)
	angle := 2 * math.Acos(float64(b.Orientation.W))
	assert.InDelta(t, 0.25, angle, 1e-2)
}

func TestIntegrate_OrientationStaysUnit(t *testing.T) {
	b := mustBody(t, BodyOptions{
		Extents:         mgl32.Vec3{1, 0.6, 0.5},
		Mass:            2,
		AngularVelocity: mgl32.Vec3{1, 2, 3},
	})
	for i := 0; i < 2000; i++ {
		Integrate(b, 0.01)
		if d := math.Abs(float64(b.Orientation.Len()) - 1); d > 1e-5 {
			t.Fatalf("step %d: |q| off by %v", i, d)
		}
	}
}

func TestIntegrate_ConservesAngularMomentum(t *testing.T) {
	b := mustBody(t, BodyOptions{
		Extents:         mgl32.Vec3{1, 0.6, 0.5},
		Mass:            2,
		Orientation:     mgl32.QuatRotate(0.3, mgl32.Vec3{1, 1, 0}.Normalize()),
		AngularVelocity: mgl32.Vec3{0.5, 1, 2},
	})
	want := b.worldInertia().Mul3x1(b.AngularVelocity)

	for i := 0; i < 500; i++ {
		Integrate(b, 0.01)
	}
	got := b.worldInertia().Mul3x1(b.AngularVelocity)
	assertVecNear(t, want, got, 1e-3)

	// the spin axis itself moves for an asymmetric body
	assert.False(t, b.AngularVelocity.ApproxEqual(mgl32.Vec3{0.5, 1, 2}))
}

func TestIntegrate_FixedBodyUnchanged(t *testing.T) {
	rot := mgl32.QuatRotate(0.4, mgl32.Vec3{0, 1, 0})
	b, err := NewFixedBody("floor", mgl32.Vec3{1, 2, 3}, rot, mgl32.Vec3{4, 1, 4})
	require.NoError(t, err)
	pos, q := b.Position, b.Orientation

	for i := 0; i < 100; i++ {
		b.AddForceAt(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{2, 2, 2})
		Integrate(b, 0.01)
	}
	assert.Equal(t, pos, b.Position)
	assert.Equal(t, q, b.Orientation)
	assert.Equal(t, mgl32.Vec3{}, b.LinearVelocity)
	assert.Equal(t, mgl32.Vec3{}, b.AngularVelocity)
	assert.Equal(t, mgl32.Vec3{}, b.Force)
	assert.Equal(t, mgl32.Vec3{}, b.Torque)
}

func TestIntegrate_NonFiniteResetsVelocity(t *testing.T) {
	b := unitBox(t, mgl32.Vec3{1, 0, 0})
	b.LinearVelocity = mgl32.Vec3{1, 0, 0}
	b.AddForce(mgl32.Vec3{float32(math.Inf(1)), 0, 0})

	Integrate(b, 0.01)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, b.Position)
	assert.Equal(t, mgl32.Vec3{}, b.LinearVelocity)
	assert.InDelta(t, 1, b.Orientation.Len(), 1e-6)
}

func TestSingleBodyScene_OffCenterForce(t *testing.T) {
	w := NewWorld()
	require.NoError(t, NewSingleBodyScene().Install(w))
	require.Len(t, w.Bodies, 1)
	b := w.Bodies[0]

	// r = (0.3, 0.5, 0.25), F = (1, 1, 0)
	assertVecNear(t, mgl32.Vec3{-0.25, 0.25, -0.2}, b.Torque, 1e-6)

	w.Step(0.01)
	assertVecNear(t, mgl32.Vec3{0.005, 0.005, 0}, b.LinearVelocity, 1e-6)
	assert.Greater(t, b.AngularVelocity.Len(), float32(0))
	assert.Equal(t, mgl32.Vec3{}, b.Torque)

	// no further forces: linear velocity stays constant
	w.Step(0.01)
	assertVecNear(t, mgl32.Vec3{0.005, 0.005, 0}, b.LinearVelocity, 1e-6)
}
