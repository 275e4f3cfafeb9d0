package boxsim

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSceneExists   = errors.New("scene already registered")
	ErrSceneNotFound = errors.New("scene not found")
)

// Scene populates a World and optionally drives it between steps.
type Scene interface {
	// Install adds the scene's bodies and sets the world's parameters.
	Install(w *World) error
	// Update runs before every world step, e.g. to inject forces or spawn bodies.
	Update(w *World, dt float32)
}

// TimeStepper is implemented by scenes that prefer a specific step size.
type TimeStepper interface {
	TimeStep() float32
}

type SceneFactory func() Scene

// SceneRegistry maps scene names to factories. The zero value is not usable;
// use NewSceneRegistry.
type SceneRegistry struct {
	factories map[string]SceneFactory
}

func NewSceneRegistry() *SceneRegistry {
	return &SceneRegistry{factories: make(map[string]SceneFactory)}
}

func (r *SceneRegistry) Register(name string, factory SceneFactory) error {
	if name == "" {
		return fmt.Errorf("register scene: empty name")
	}
	if factory == nil {
		return fmt.Errorf("register scene %q: nil factory", name)
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("register scene %q: %w", name, ErrSceneExists)
	}
	r.factories[name] = factory
	return nil
}

// Names returns the registered names in sorted order.
func (r *SceneRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create builds a fresh scene instance.
func (r *SceneRegistry) Create(name string) (Scene, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("create scene %q: %w", name, ErrSceneNotFound)
	}
	return factory(), nil
}

// BuiltinScenes returns a new registry holding the bundled scenes.
func BuiltinScenes() *SceneRegistry {
	r := NewSceneRegistry()
	r.mustRegister(CollisionSceneName, func() Scene { return NewCollisionScene() })
	r.mustRegister(SingleBodySceneName, func() Scene { return NewSingleBodyScene() })
	r.mustRegister(ArenaSceneName, func() Scene { return NewArenaScene(1) })
	return r
}

func (r *SceneRegistry) mustRegister(name string, factory SceneFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}
