package loaders

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/material"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// ErrInvalidSceneFile is returned for scene files that parse but cannot describe a scene
var ErrInvalidSceneFile = errors.New("loaders: invalid scene file")

type vec3 [3]float64

func (v vec3) toVec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// SceneFile is the YAML form of a scene
type SceneFile struct {
	Name        string          `yaml:"name"`
	Camera      CameraSpec      `yaml:"camera"`
	Render      RenderSpec      `yaml:"render"`
	Environment EnvironmentSpec `yaml:"environment"`
	Spheres     []SphereSpec    `yaml:"spheres"`
}

// CameraSpec places the camera
type CameraSpec struct {
	Position vec3    `yaml:"position"`
	LookAt   vec3    `yaml:"look_at"`
	Up       *vec3   `yaml:"up"`
	FOV      float64 `yaml:"fov"`
	Near     float64 `yaml:"near"`
}

// RenderSpec holds the recommended render settings
type RenderSpec struct {
	Width        int  `yaml:"width"`
	Height       int  `yaml:"height"`
	MaxBounces   *int `yaml:"max_bounces"`
	RaysPerPixel int  `yaml:"rays_per_pixel"`
}

// EnvironmentSpec selects and configures the sky
type EnvironmentSpec struct {
	Type         string  `yaml:"type"` // gradient (default), uniform, horizon or black
	Top          *vec3   `yaml:"top"`
	Bottom       *vec3   `yaml:"bottom"`
	Color        vec3    `yaml:"color"`
	Ground       vec3    `yaml:"ground"`
	Horizon      vec3    `yaml:"horizon"`
	Zenith       vec3    `yaml:"zenith"`
	SunDirection vec3    `yaml:"sun_direction"`
	SunFocus     float64 `yaml:"sun_focus"`
	SunIntensity float64 `yaml:"sun_intensity"`
}

// SphereSpec describes one sphere. Either radius or scale must be given;
// scale follows the unit-diameter mesh convention where X is the diameter.
type SphereSpec struct {
	Center   vec3         `yaml:"center"`
	Radius   float64      `yaml:"radius"`
	Scale    *vec3        `yaml:"scale"`
	Material MaterialSpec `yaml:"material"`
}

// MaterialSpec describes a sphere's material. Missing fields keep the
// values of material.Default().
type MaterialSpec struct {
	Albedo              vec3    `yaml:"albedo"`
	Emission            vec3    `yaml:"emission"`
	EmissionStrength    float64 `yaml:"emission_strength"`
	Roughness           float64 `yaml:"roughness"`
	SpecularProbability float64 `yaml:"specular_probability"`
}

// UnmarshalYAML fills defaults before decoding so omitted fields keep them
func (m *MaterialSpec) UnmarshalYAML(node *yaml.Node) error {
	def := material.Default()
	type plain MaterialSpec
	spec := plain{
		Albedo:              vec3{def.Albedo.X, def.Albedo.Y, def.Albedo.Z},
		Emission:            vec3{def.EmissionColor.X, def.EmissionColor.Y, def.EmissionColor.Z},
		EmissionStrength:    def.EmissionStrength,
		Roughness:           def.Roughness,
		SpecularProbability: def.SpecularProbability,
	}
	if err := node.Decode(&spec); err != nil {
		return err
	}
	*m = MaterialSpec(spec)
	return nil
}

func (m MaterialSpec) toMaterial() material.Material {
	return material.Material{
		Albedo:              m.Albedo.toVec3(),
		EmissionColor:       m.Emission.toVec3(),
		EmissionStrength:    m.EmissionStrength,
		Roughness:           m.Roughness,
		SpecularProbability: m.SpecularProbability,
	}
}

// LoadScene reads a YAML scene file
func LoadScene(filename string) (*scene.Scene, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	s, err := ParseScene(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return s, nil
}

// IsSceneFile reports whether name looks like a YAML scene file path
func IsSceneFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// ResolveScene turns a scene reference into a scene. The reference is a path
// to a YAML file, a built-in scene ID, or the name or ID of a scene file in
// sceneDir, tried in that order.
func ResolveScene(name, sceneDir string) (*scene.Scene, error) {
	if name == "" {
		return nil, errors.New("missing scene name")
	}
	if IsSceneFile(name) {
		return LoadScene(name)
	}
	if s, err := scene.NewBuiltin(name); err == nil {
		return s, nil
	}
	if path, ok := scene.FindSceneFile(sceneDir, name); ok {
		return LoadScene(path)
	}
	return nil, fmt.Errorf("unknown scene: %q", name)
}

// ParseScene decodes a YAML scene. Unknown keys are rejected.
func ParseScene(r io.Reader) (*scene.Scene, error) {
	var file SceneFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	return file.Build()
}

// Build converts the file contents into a scene. Sphere validity is not
// checked here; invalid spheres are excluded when a frame is rendered.
func (f *SceneFile) Build() (*scene.Scene, error) {
	cfg := scene.DefaultSamplingConfig()
	if f.Render.Width > 0 {
		cfg.Width = f.Render.Width
	}
	if f.Render.Height > 0 {
		cfg.Height = f.Render.Height
	}
	if f.Render.MaxBounces != nil {
		cfg.MaxBounces = *f.Render.MaxBounces
	}
	if f.Render.RaysPerPixel > 0 {
		cfg.RaysPerPixel = f.Render.RaysPerPixel
	}
	if cfg.MaxBounces < 0 {
		return nil, fmt.Errorf("%w: max_bounces %d must not be negative", ErrInvalidSceneFile, cfg.MaxBounces)
	}

	env, err := f.Environment.build()
	if err != nil {
		return nil, err
	}

	s := &scene.Scene{
		Name:           f.Name,
		Camera:         f.Camera.build(cfg),
		Environment:    env,
		SamplingConfig: cfg,
	}

	for i, spec := range f.Spheres {
		radius := spec.Radius
		if spec.Scale != nil {
			if spec.Radius != 0 {
				return nil, fmt.Errorf("%w: sphere %d sets both radius and scale", ErrInvalidSceneFile, i)
			}
			radius = spec.Scale[0] * 0.5
		}
		s.AddSphere(geometry.NewSphere(spec.Center.toVec3(), radius, spec.Material.toMaterial()))
	}

	return s, nil
}

func (c CameraSpec) build(cfg scene.SamplingConfig) geometry.CameraState {
	up := core.NewVec3(0, 1, 0)
	if c.Up != nil {
		up = c.Up.toVec3()
	}
	fov := c.FOV
	if fov == 0 {
		fov = 40
	}
	near := c.Near
	if near == 0 {
		near = 0.3
	}
	aspect := float64(cfg.Width) / float64(cfg.Height)
	return geometry.NewCameraState(c.Position.toVec3(), c.LookAt.toVec3(), up, fov, near, aspect)
}

func (e EnvironmentSpec) build() (scene.Environment, error) {
	switch strings.ToLower(e.Type) {
	case "", "gradient":
		sky := scene.DefaultEnvironment().(scene.GradientSky)
		if e.Top != nil {
			sky.TopColor = e.Top.toVec3()
		}
		if e.Bottom != nil {
			sky.BottomColor = e.Bottom.toVec3()
		}
		return sky, nil
	case "uniform":
		return scene.UniformSky{Color: e.Color.toVec3()}, nil
	case "horizon":
		return scene.HorizonSky{
			GroundColor:  e.Ground.toVec3(),
			HorizonColor: e.Horizon.toVec3(),
			ZenithColor:  e.Zenith.toVec3(),
			SunDirection: e.SunDirection.toVec3(),
			SunFocus:     e.SunFocus,
			SunIntensity: e.SunIntensity,
		}, nil
	case "black":
		return scene.Black, nil
	default:
		return nil, fmt.Errorf("%w: unknown environment type %q", ErrInvalidSceneFile, e.Type)
	}
}
