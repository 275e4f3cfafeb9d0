package boxsim

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultTimeStep    = 0.01
	DefaultMaxSubsteps = 8
)

// Sim drives a Scene with a fixed time step. A paused sim only advances
// through StepOnce.
type Sim struct {
	Scene       Scene
	World       *World
	Dt          float32
	MaxSubsteps int
	Logger      Logger

	paused      bool
	stepPending bool
	accumulator float32
	steps       int
	last        StepReport
}

func NewSim(scene Scene, logger Logger) (*Sim, error) {
	if logger == nil {
		logger = NewDefaultLogger("boxsim", false)
	}
	s := &Sim{
		Scene:       scene,
		Dt:          DefaultTimeStep,
		MaxSubsteps: DefaultMaxSubsteps,
		Logger:      logger,
	}
	if ts, ok := scene.(TimeStepper); ok && ts.TimeStep() > 0 {
		s.Dt = ts.TimeStep()
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset rebuilds the world from the scene.
func (s *Sim) Reset() error {
	w := NewWorld()
	w.Logger = s.Logger
	if err := s.Scene.Install(w); err != nil {
		return fmt.Errorf("install scene: %w", err)
	}
	s.World = w
	s.accumulator = 0
	s.steps = 0
	s.stepPending = false
	s.last = StepReport{}
	s.Logger.Debugf("scene installed with %d bodies", len(w.Bodies))
	return nil
}

func (s *Sim) Pause()                 { s.paused = true }
func (s *Sim) Resume()                { s.paused = false }
func (s *Sim) Paused() bool           { return s.paused }
func (s *Sim) Steps() int             { return s.steps }
func (s *Sim) Time() float32          { return float32(s.steps) * s.Dt }
func (s *Sim) LastReport() StepReport { return s.last }

// StepOnce requests a single step on the next Tick while paused.
func (s *Sim) StepOnce() { s.stepPending = true }

// Tick runs at most one step. It reports whether a step was taken.
func (s *Sim) Tick() bool {
	if s.paused && !s.stepPending {
		return false
	}
	s.stepPending = false
	s.step()
	return true
}

// Advance consumes elapsed wall time in fixed steps, running at most
// MaxSubsteps steps and dropping the remainder beyond that. It does nothing
// unless Dt is positive.
func (s *Sim) Advance(elapsed time.Duration) int {
	if !(s.Dt > 0) {
		s.Logger.Warnf("advance: time step must be positive, got %v", s.Dt)
		return 0
	}
	if s.paused {
		if s.Tick() {
			return 1
		}
		return 0
	}
	s.accumulator += float32(elapsed.Seconds())
	n := 0
	for s.accumulator >= s.Dt {
		if s.MaxSubsteps > 0 && n >= s.MaxSubsteps {
			s.Logger.Debugf("dropping %.4fs of simulation time", s.accumulator)
			s.accumulator = 0
			break
		}
		s.step()
		s.accumulator -= s.Dt
		n++
	}
	return n
}

// Run advances the sim in real time on every frame tick of clk until ctx is done.
func (s *Sim) Run(ctx context.Context, clk clock.Clock, frame time.Duration) error {
	if frame <= 0 {
		return fmt.Errorf("run sim: frame interval must be positive, got %v", frame)
	}
	ticker := clk.Ticker(frame)
	defer ticker.Stop()

	prev := clk.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Advance(now.Sub(prev))
			prev = now
		}
	}
}

func (s *Sim) step() {
	s.Scene.Update(s.World, s.Dt)
	s.last = s.World.Step(s.Dt)
	s.steps++
}
