package boxsim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CollisionSceneName  = "collision"
	SingleBodySceneName = "single-body"
	ArenaSceneName      = "arena"
)

// CollisionScene sends a rotated box into a resting one along +X.
type CollisionScene struct {
	Restitution float32
}

func NewCollisionScene() *CollisionScene {
	return &CollisionScene{Restitution: 0.5}
}

func (s *CollisionScene) TimeStep() float32 { return 0.01 }

func (s *CollisionScene) Install(w *World) error {
	w.Gravity = mgl32.Vec3{}
	w.Restitution = s.Restitution
	w.Resolver = ContactResolver{CorrectionFactor: 0.2, Slop: DefaultSlop}

	a, err := NewBody(BodyOptions{
		Name:           "A",
		Position:       mgl32.Vec3{-2, 0, 0},
		Orientation:    mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}),
		LinearVelocity: mgl32.Vec3{2, 0, 0},
		Extents:        mgl32.Vec3{1, 1, 1},
		Mass:           2,
	})
	if err != nil {
		return fmt.Errorf("collision scene: %w", err)
	}
	b, err := NewBody(BodyOptions{
		Name:     "B",
		Position: mgl32.Vec3{2, 0, 0},
		Extents:  mgl32.Vec3{1, 1, 1},
		Mass:     2,
	})
	if err != nil {
		return fmt.Errorf("collision scene: %w", err)
	}
	return addBodies(w, a, b)
}

func (s *CollisionScene) Update(*World, float32) {}

// SingleBodyScene applies one off-center force to a free box and lets it spin.
type SingleBodyScene struct {
	Force      mgl32.Vec3
	ForcePoint mgl32.Vec3
}

func NewSingleBodyScene() *SingleBodyScene {
	return &SingleBodyScene{
		Force:      mgl32.Vec3{1, 1, 0},
		ForcePoint: mgl32.Vec3{0.3, 0.5, 0.25},
	}
}

func (s *SingleBodyScene) TimeStep() float32 { return 0.01 }

func (s *SingleBodyScene) Install(w *World) error {
	w.Gravity = mgl32.Vec3{}
	body, err := NewBody(BodyOptions{
		Name:        "box",
		Orientation: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}),
		Extents:     mgl32.Vec3{1, 0.6, 0.5},
		Mass:        2,
	})
	if err != nil {
		return fmt.Errorf("single-body scene: %w", err)
	}
	body.AddForceAt(s.Force, s.ForcePoint)
	return addBodies(w, body)
}

func (s *SingleBodyScene) Update(*World, float32) {}

// ArenaScene is a walled floor with a stack of cubes and a spawner that
// drops randomized boxes from above at a fixed interval.
type ArenaScene struct {
	Seed          uint64
	SpawnInterval float32
	MaxBodies     int

	rng        *rand.Rand
	spawnTimer float32
	spawned    int
}

func NewArenaScene(seed uint64) *ArenaScene {
	return &ArenaScene{
		Seed:          seed,
		SpawnInterval: 5,
		MaxBodies:     64,
	}
}

func (s *ArenaScene) TimeStep() float32 { return 0.01 }

func (s *ArenaScene) Install(w *World) error {
	w.Gravity = mgl32.Vec3{0, 0, -9.81}
	w.Restitution = 0.5
	w.Resolver = ContactResolver{CorrectionFactor: 0.8, Slop: DefaultSlop}

	s.rng = rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	s.spawnTimer = 0
	s.spawned = 0

	statics := []struct {
		name     string
		pos, ext mgl32.Vec3
	}{
		{"ground", mgl32.Vec3{0, 0, -2}, mgl32.Vec3{20, 20, 1}},
		{"wall-west", mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 10, 5}},
		{"wall-east", mgl32.Vec3{5, 0, 0}, mgl32.Vec3{1, 10, 5}},
		{"wall-north", mgl32.Vec3{0, 5, 0}, mgl32.Vec3{10, 1, 5}},
		{"wall-south", mgl32.Vec3{0, -5, 0}, mgl32.Vec3{10, 1, 5}},
	}
	for _, st := range statics {
		b, err := NewFixedBody(st.name, st.pos, mgl32.QuatIdent(), st.ext)
		if err != nil {
			return fmt.Errorf("arena scene: %w", err)
		}
		if err := w.AddBody(b); err != nil {
			return fmt.Errorf("arena scene: %w", err)
		}
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				b, err := NewBody(BodyOptions{
					Name:     fmt.Sprintf("stack-%d%d%d", i, j, k),
					Position: mgl32.Vec3{float32(i)*1.2 - 1.2, float32(j)*1.2 - 1.2, float32(k)*1.2 + 2},
					Extents:  mgl32.Vec3{1, 1, 1},
					Mass:     1,
				})
				if err != nil {
					return fmt.Errorf("arena scene: %w", err)
				}
				if err := w.AddBody(b); err != nil {
					return fmt.Errorf("arena scene: %w", err)
				}
			}
		}
	}
	return nil
}

func (s *ArenaScene) Update(w *World, dt float32) {
	if s.SpawnInterval <= 0 {
		return
	}
	s.spawnTimer += dt
	if s.spawnTimer < s.SpawnInterval {
		return
	}
	s.spawnTimer = 0
	if s.MaxBodies > 0 && len(w.Bodies) >= s.MaxBodies {
		return
	}
	b, err := s.randomBox()
	if err != nil {
		w.logger().Warnf("arena spawn: %v", err)
		return
	}
	if err := w.AddBody(b); err != nil {
		w.logger().Warnf("arena spawn: %v", err)
		return
	}
	w.logger().Debugf("spawned %s at %v", b, b.Position)
}

func (s *ArenaScene) randomBox() (*RigidBody, error) {
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	}
	uniform := func(lo, hi float32) float32 {
		return lo + s.rng.Float32()*(hi-lo)
	}
	s.spawned++
	pos := mgl32.Vec3{uniform(-3, 3), uniform(-3, 3), uniform(5, 10)}
	size := mgl32.Vec3{uniform(0.3, 1.2), uniform(0.3, 1.2), uniform(0.3, 1.2)}
	rot := mgl32.AnglesToQuat(uniform(0, 2*math.Pi), uniform(0, 2*math.Pi), uniform(0, 2*math.Pi), mgl32.XYZ)
	mass := uniform(0.5, 3)
	spin := mgl32.Vec3{uniform(-2, 2), uniform(-2, 2), uniform(-2, 2)}

	return NewBody(BodyOptions{
		Name:            fmt.Sprintf("spawn-%d", s.spawned),
		Position:        pos,
		Orientation:     rot,
		Extents:         size,
		Mass:            mass,
		LinearVelocity:  mgl32.Vec3{0, 0, -1},
		AngularVelocity: spin,
	})
}

func addBodies(w *World, bodies ...*RigidBody) error {
	for _, b := range bodies {
		if err := w.AddBody(b); err != nil {
			return err
		}
	}
	return nil
}
