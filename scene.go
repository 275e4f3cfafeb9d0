package boxsim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// SceneDef defines the initial state of a scene loaded from a file.
type SceneDef struct {
	Name             string    `yaml:"name" toml:"name"`
	Dt               float32   `yaml:"dt" toml:"dt"`
	Restitution      *float32  `yaml:"restitution" toml:"restitution"`
	CorrectionFactor *float32  `yaml:"correction_factor" toml:"correction_factor"`
	Gravity          []float32 `yaml:"gravity" toml:"gravity"`
	Bodies           []BodyDef `yaml:"bodies" toml:"bodies"`
}

// BodyDef defines one box. Vectors are given as three-element lists.
type BodyDef struct {
	Name            string    `yaml:"name" toml:"name"`
	Position        []float32 `yaml:"position" toml:"position"`
	Extents         []float32 `yaml:"extents" toml:"extents"`
	Mass            float32   `yaml:"mass" toml:"mass"`
	Fixed           bool      `yaml:"fixed" toml:"fixed"`
	RotationAxis    []float32 `yaml:"rotation_axis" toml:"rotation_axis"`
	RotationDegrees float32   `yaml:"rotation_degrees" toml:"rotation_degrees"`
	Velocity        []float32 `yaml:"velocity" toml:"velocity"`
	AngularVelocity []float32 `yaml:"angular_velocity" toml:"angular_velocity"`
	// Force is applied once at ForcePoint (world space) before the first step.
	Force      []float32 `yaml:"force" toml:"force"`
	ForcePoint []float32 `yaml:"force_point" toml:"force_point"`
}

// LoadSceneFile reads a .yaml, .yml or .toml scene definition.
func LoadSceneFile(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	def, err := ParseSceneDef(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return def, nil
}

// ParseSceneDef decodes and validates a scene in the given format ("yaml", "yml" or "toml").
func ParseSceneDef(data []byte, format string) (*SceneDef, error) {
	var def SceneDef
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("decode yaml scene: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("decode toml scene: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scene format %q", format)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate reports every problem in the definition, not only the first.
func (d *SceneDef) Validate() error {
	var err error
	if d.Dt < 0 {
		err = multierr.Append(err, fmt.Errorf("dt must not be negative, got %v", d.Dt))
	}
	if d.Restitution != nil && (*d.Restitution < 0 || *d.Restitution > 1) {
		err = multierr.Append(err, fmt.Errorf("restitution must be in [0,1], got %v", *d.Restitution))
	}
	if d.CorrectionFactor != nil && (*d.CorrectionFactor < 0 || *d.CorrectionFactor > 1) {
		err = multierr.Append(err, fmt.Errorf("correction_factor must be in [0,1], got %v", *d.CorrectionFactor))
	}
	err = multierr.Append(err, checkVec("gravity", d.Gravity, false))
	if len(d.Bodies) == 0 {
		err = multierr.Append(err, fmt.Errorf("scene has no bodies"))
	}
	for i, b := range d.Bodies {
		err = multierr.Append(err, b.validate(i))
	}
	return err
}

func (b BodyDef) validate(index int) error {
	label := fmt.Sprintf("bodies[%d]", index)
	if b.Name != "" {
		label = fmt.Sprintf("bodies[%d] (%s)", index, b.Name)
	}

	var err error
	err = multierr.Append(err, checkVec(label+".position", b.Position, false))
	err = multierr.Append(err, checkVec(label+".extents", b.Extents, true))
	err = multierr.Append(err, checkVec(label+".rotation_axis", b.RotationAxis, false))
	err = multierr.Append(err, checkVec(label+".velocity", b.Velocity, false))
	err = multierr.Append(err, checkVec(label+".angular_velocity", b.AngularVelocity, false))
	err = multierr.Append(err, checkVec(label+".force", b.Force, false))
	err = multierr.Append(err, checkVec(label+".force_point", b.ForcePoint, false))

	if len(b.Extents) == 3 {
		for _, e := range b.Extents {
			if e <= 0 {
				err = multierr.Append(err, fmt.Errorf("%s.extents must be positive, got %v", label, b.Extents))
				break
			}
		}
	}
	if !b.Fixed && b.Mass <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s.mass must be positive for a movable body, got %v", label, b.Mass))
	}
	if b.RotationDegrees != 0 && len(b.RotationAxis) == 3 && vec3(b.RotationAxis).Len() == 0 {
		err = multierr.Append(err, fmt.Errorf("%s.rotation_axis must be non-zero", label))
	}
	return err
}

func checkVec(name string, v []float32, required bool) error {
	if len(v) == 0 && !required {
		return nil
	}
	if len(v) != 3 {
		return fmt.Errorf("%s must have 3 components, got %d", name, len(v))
	}
	return nil
}

func vec3(v []float32) mgl32.Vec3 {
	if len(v) != 3 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// Body builds the rigid body described by the definition.
func (b BodyDef) Body() (*RigidBody, error) {
	rot := mgl32.QuatIdent()
	if b.RotationDegrees != 0 {
		rot = mgl32.QuatRotate(mgl32.DegToRad(b.RotationDegrees), vec3(b.RotationAxis).Normalize())
	}
	body, err := NewBody(BodyOptions{
		Name:            b.Name,
		Position:        vec3(b.Position),
		Orientation:     rot,
		LinearVelocity:  vec3(b.Velocity),
		AngularVelocity: vec3(b.AngularVelocity),
		Extents:         vec3(b.Extents),
		Mass:            b.Mass,
		Fixed:           b.Fixed,
	})
	if err != nil {
		return nil, err
	}
	if len(b.Force) == 3 {
		point := body.Position
		if len(b.ForcePoint) == 3 {
			point = vec3(b.ForcePoint)
		}
		body.AddForceAt(vec3(b.Force), point)
	}
	return body, nil
}

// FileScene installs the bodies of a SceneDef.
type FileScene struct {
	Def *SceneDef
}

func NewFileScene(def *SceneDef) *FileScene {
	return &FileScene{Def: def}
}

func (s *FileScene) TimeStep() float32 { return s.Def.Dt }

func (s *FileScene) Install(w *World) error {
	w.Gravity = vec3(s.Def.Gravity)
	if s.Def.Restitution != nil {
		w.Restitution = *s.Def.Restitution
	}
	if s.Def.CorrectionFactor != nil {
		w.Resolver.CorrectionFactor = *s.Def.CorrectionFactor
	}
	for i, def := range s.Def.Bodies {
		body, err := def.Body()
		if err != nil {
			return fmt.Errorf("scene %q bodies[%d]: %w", s.Def.Name, i, err)
		}
		if err := w.AddBody(body); err != nil {
			return fmt.Errorf("scene %q: %w", s.Def.Name, err)
		}
	}
	return nil
}

func (s *FileScene) Update(*World, float32) {}
