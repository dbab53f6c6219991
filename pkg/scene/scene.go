package scene

import (
	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
)

// Scene contains everything the host hands to the tracer for a frame
type Scene struct {
	Name           string
	Camera         geometry.CameraState
	Spheres        []geometry.Sphere
	Environment    Environment
	SamplingConfig SamplingConfig
}

// SamplingConfig contains the recommended render settings for a scene
type SamplingConfig struct {
	Width        int // Image width
	Height       int // Image height
	MaxBounces   int // Maximum number of bounces per path
	RaysPerPixel int // Samples traced per pixel per frame
}

// DefaultSamplingConfig returns sensible default values
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:        400,
		Height:       225,
		MaxBounces:   8,
		RaysPerPixel: 4,
	}
}

// AddSphere appends a sphere to the scene
func (s *Scene) AddSphere(sphere geometry.Sphere) {
	s.Spheres = append(s.Spheres, sphere)
}

// GetPrimitiveCount returns the number of spheres in the scene
func (s *Scene) GetPrimitiveCount() int {
	return len(s.Spheres)
}

// CameraWithAspect returns the scene camera adjusted to the configured output size
func (s *Scene) CameraWithAspect() geometry.CameraState {
	return s.Camera.WithAspect(s.SamplingConfig.Width, s.SamplingConfig.Height)
}

func newCamera(position, lookAt core.Vec3, fov float64, cfg SamplingConfig) geometry.CameraState {
	aspect := float64(cfg.Width) / float64(cfg.Height)
	return geometry.NewCameraState(position, lookAt, core.NewVec3(0, 1, 0), fov, 0.3, aspect)
}
