package scene

import (
	"math"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// Environment supplies the radiance of rays that leave the scene
type Environment interface {
	Radiance(direction core.Vec3) core.Vec3
}

// GradientSky blends from BottomColor to TopColor along the Y axis of the ray direction
type GradientSky struct {
	TopColor    core.Vec3
	BottomColor core.Vec3
}

// Radiance implements Environment
func (g GradientSky) Radiance(direction core.Vec3) core.Vec3 {
	// Map y from [-1,1] to [0,1]
	t := 0.5 * (direction.Normalize().Y + 1.0)
	return g.BottomColor.Lerp(g.TopColor, t)
}

// UniformSky returns the same radiance in every direction
type UniformSky struct {
	Color core.Vec3
}

// Radiance implements Environment
func (u UniformSky) Radiance(direction core.Vec3) core.Vec3 {
	return u.Color
}

// HorizonSky has a flat ground color below the horizon and a gradient from
// horizon to zenith above it, with an optional sun highlight.
type HorizonSky struct {
	GroundColor  core.Vec3
	HorizonColor core.Vec3
	ZenithColor  core.Vec3
	SunDirection core.Vec3 // Direction toward the sun, zero for no sun
	SunFocus     float64   // Exponent controlling the sun's size
	SunIntensity float64
}

// Radiance implements Environment
func (h HorizonSky) Radiance(direction core.Vec3) core.Vec3 {
	dir := direction.Normalize()
	if dir.Y < 0 {
		return h.GroundColor
	}

	sky := h.HorizonColor.Lerp(h.ZenithColor, smoothstep(0, 0.4, dir.Y))
	if h.SunDirection.IsZero() || h.SunIntensity <= 0 {
		return sky
	}
	sun := max(0, dir.Dot(h.SunDirection.Normalize()))
	return sky.Add(core.NewVec3(1, 1, 1).Multiply(math.Pow(sun, h.SunFocus) * h.SunIntensity))
}

// Black is an environment that contributes no light
var Black Environment = UniformSky{}

// DefaultEnvironment returns the blue-to-white gradient used when a scene does not set one
func DefaultEnvironment() Environment {
	return GradientSky{
		TopColor:    core.NewVec3(0.5, 0.7, 1.0), // Blue sky
		BottomColor: core.NewVec3(1.0, 1.0, 1.0), // White horizon
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := max(0, min(1, (x-edge0)/(edge1-edge0)))
	return t * t * (3 - 2*t)
}
