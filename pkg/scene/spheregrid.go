package scene

import (
	"math"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/material"
)

// oklchToRGB converts OKLCH color values to RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) core.Vec3 {
	// Convert hue from degrees to radians
	hRad := h * math.Pi / 180.0

	// Convert from OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// Convert from OKLAB to linear RGB
	// Using simplified approximation for OKLAB to RGB conversion
	// This is not perfectly accurate but good enough for our purposes

	// First convert to LMS
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b

	// Cube the values
	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// Convert LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	// Clamp to [0, 1] range
	r = math.Max(0, math.Min(1, r))
	g = math.Max(0, math.Min(1, g))
	blue = math.Max(0, math.Min(1, blue))

	return core.NewVec3(r, g, blue)
}

// NewSphereGridScene creates a scene with a grid of glossy spheres whose
// colors sweep hue along X and chroma along Z
func NewSphereGridScene() *Scene {
	cfg := DefaultSamplingConfig()
	cfg.Width = 480
	cfg.Height = 270

	s := &Scene{
		Name:           "spheregrid",
		Camera:         newCamera(core.NewVec3(4.5, 6, -9), core.NewVec3(4.5, 0.8, 4.5), 40, cfg),
		Environment:    DefaultEnvironment(),
		SamplingConfig: cfg,
	}

	// Sun-like emitter high and to the side
	s.AddSphere(geometry.NewSphere(core.NewVec3(20, 25, -20), 8, material.NewEmissive(core.NewVec3(1.0, 0.96, 0.83), 12)))

	// Ground
	s.AddSphere(geometry.NewSphere(core.NewVec3(4.5, -1000, 4.5), 1000, material.NewDiffuse(core.NewVec3(0.5, 0.5, 0.5))))

	gridSize := 10

	// Target area: roughly 9x9 units
	targetArea := 9.0
	spacing := targetArea / float64(gridSize-1)
	sphereRadius := math.Max(0.02, math.Min(0.35, spacing*0.35))

	// OKLCH parameters for color variation
	baseLightness := 0.65
	minChroma := 0.05
	maxChroma := 0.25

	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			x := float64(i)*spacing - targetArea/2.0 + 4.5
			z := float64(j)*spacing - targetArea/2.0 + 4.5
			position := core.NewVec3(x, sphereRadius, z)

			hue := (float64(i) / float64(gridSize-1)) * 360.0
			chroma := minChroma + (float64(j)/float64(gridSize-1))*(maxChroma-minChroma)
			lightness := baseLightness + 0.1*math.Sin(float64(i+j)*0.5)

			m := material.NewDiffuse(oklchToRGB(lightness, chroma, hue))
			m.SpecularProbability = 0.5
			m.Roughness = 0.05 + 0.1*float64((i+j)%3)/2.0

			s.AddSphere(geometry.NewSphere(position, sphereRadius, m))
		}
	}

	return s
}
