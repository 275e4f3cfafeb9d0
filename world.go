package boxsim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// PairKey identifies an unordered pair of bodies.
type PairKey struct {
	A, B BodyId
}

func MakePairKey(a, b BodyId) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func comparePairKeys(x, y PairKey) int {
	if c := strings.Compare(string(x.A), string(y.A)); c != 0 {
		return c
	}
	return strings.Compare(string(x.B), string(y.B))
}

type PairState struct {
	WasColliding bool
	// Steps counts consecutive ticks the pair has been in contact.
	Steps int
}

// PairStates holds per-pair contact state across ticks. Only pairs that were
// in contact on the last tick have an entry.
type PairStates map[PairKey]PairState

type Contact struct {
	A, B    *RigidBody
	Info    CollisionInfo
	Applied bool
	// First is true on the tick the pair entered contact.
	First bool
}

type StepReport struct {
	PairsTested int
	Contacts    []Contact
	Impulses    int
	Began       []PairKey
	Ended       []PairKey
}

// StepAll advances every body by dt using the default contact resolver.
// pairs carries contact state between calls and must be the same non-nil map
// on every tick; with a nil map every contact is treated as a first contact.
func StepAll(bodies []*RigidBody, pairs PairStates, dt, restitution float32) StepReport {
	return stepWith(NewContactResolver(), bodies, pairs, dt, restitution)
}

// stepWith integrates every body, tests every pair (i<j in slice order),
// resolves the colliding pairs in the same order and updates pairs.
func stepWith(resolver ContactResolver, bodies []*RigidBody, pairs PairStates, dt, restitution float32) StepReport {
	var report StepReport
	if pairs == nil {
		pairs = make(PairStates)
	}

	for _, b := range bodies {
		Integrate(b, dt)
	}

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if a.Fixed && b.Fixed {
				continue
			}
			report.PairsTested++
			info := DetectCollision(a, b)
			if info.IsColliding {
				report.Contacts = append(report.Contacts, Contact{A: a, B: b, Info: info})
			}
		}
	}

	touched := make(map[PairKey]struct{}, len(report.Contacts))
	for i := range report.Contacts {
		c := &report.Contacts[i]
		key := MakePairKey(c.A.Id, c.B.Id)
		prev := pairs[key]
		c.First = !prev.WasColliding

		applied, colliding := resolver.Resolve(c.A, c.B, c.Info, restitution, prev.WasColliding)
		c.Applied = applied
		if applied {
			report.Impulses++
		}
		if colliding {
			pairs[key] = PairState{WasColliding: true, Steps: prev.Steps + 1}
			touched[key] = struct{}{}
			if c.First {
				report.Began = append(report.Began, key)
			}
		}
	}

	for key := range pairs {
		if _, ok := touched[key]; !ok {
			delete(pairs, key)
			report.Ended = append(report.Ended, key)
		}
	}
	slices.SortFunc(report.Ended, comparePairKeys)
	return report
}

// World owns a body collection and the contact state between ticks.
type World struct {
	Bodies      []*RigidBody
	Pairs       PairStates
	Gravity     mgl32.Vec3
	Restitution float32
	Resolver    ContactResolver
	Logger      Logger
}

func NewWorld() *World {
	return &World{
		Pairs:       make(PairStates),
		Restitution: 0.5,
		Resolver:    NewContactResolver(),
		Logger:      NewNopLogger(),
	}
}

func (w *World) AddBody(b *RigidBody) error {
	if b == nil {
		return fmt.Errorf("add body: nil body")
	}
	if w.Body(b.Id) != nil {
		return fmt.Errorf("add body %s: duplicate id", b)
	}
	w.Bodies = append(w.Bodies, b)
	return nil
}

// RemoveBody drops the body and every contact pair that references it.
func (w *World) RemoveBody(id BodyId) bool {
	for i, b := range w.Bodies {
		if b.Id != id {
			continue
		}
		w.Bodies = append(w.Bodies[:i], w.Bodies[i+1:]...)
		for key := range w.Pairs {
			if key.A == id || key.B == id {
				delete(w.Pairs, key)
			}
		}
		return true
	}
	return false
}

func (w *World) Body(id BodyId) *RigidBody {
	for _, b := range w.Bodies {
		if b.Id == id {
			return b
		}
	}
	return nil
}

func (w *World) BodyByName(name string) *RigidBody {
	for _, b := range w.Bodies {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Reset removes all bodies and contact state.
func (w *World) Reset() {
	w.Bodies = nil
	w.Pairs = make(PairStates)
}

// Step applies gravity as a force to every movable body and advances the world by dt.
func (w *World) Step(dt float32) StepReport {
	if w.Pairs == nil {
		w.Pairs = make(PairStates)
	}
	if w.Gravity != (mgl32.Vec3{}) {
		for _, b := range w.Bodies {
			if !b.Fixed {
				b.AddForce(w.Gravity.Mul(b.Mass))
			}
		}
	}

	report := stepWith(w.Resolver, w.Bodies, w.Pairs, dt, w.Restitution)

	log := w.logger()
	if log.DebugEnabled() {
		for _, c := range report.Contacts {
			if c.First {
				log.Debugf("contact begin %s/%s feature=%s depth=%.4f normal=%v", c.A, c.B, c.Info.Feature, c.Info.Depth, c.Info.Normal)
			}
		}
		for _, key := range report.Ended {
			log.Debugf("contact end %s/%s", w.describe(key.A), w.describe(key.B))
		}
	}
	return report
}

func (w *World) KineticEnergy() float32 {
	var e float32
	for _, b := range w.Bodies {
		e += b.KineticEnergy()
	}
	return e
}

func (w *World) logger() Logger {
	if w.Logger == nil {
		return NewNopLogger()
	}
	return w.Logger
}

func (w *World) describe(id BodyId) string {
	if b := w.Body(id); b != nil {
		return b.String()
	}
	return string(id)
}
