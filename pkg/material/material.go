package material

import (
	"math"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// Material describes how a sphere reflects and emits light.
// It is attached to a sphere by value, never shared.
type Material struct {
	Albedo              core.Vec3 // Diffuse reflectance per channel
	EmissionColor       core.Vec3 // Color of emitted light
	EmissionStrength    float64   // Scale applied to EmissionColor
	Roughness           float64   // 0.0 = perfect mirror for specular bounces, 1.0 = fully diffuse
	SpecularProbability float64   // Chance a bounce reflects mirror-like
}

// Default returns the material a freshly placed sphere starts with: white,
// non-emissive, purely diffuse.
func Default() Material {
	return Material{
		Albedo:              core.NewVec3(1, 1, 1),
		EmissionColor:       core.NewVec3(1, 1, 1),
		EmissionStrength:    0,
		Roughness:           0,
		SpecularProbability: 0,
	}
}

// NewDiffuse creates a diffuse material with the given albedo
func NewDiffuse(albedo core.Vec3) Material {
	m := Default()
	m.Albedo = albedo
	return m
}

// NewMirror creates a material that always reflects specularly
func NewMirror(albedo core.Vec3, roughness float64) Material {
	m := Default()
	m.Albedo = albedo
	m.Roughness = roughness
	m.SpecularProbability = 1
	return m
}

// NewEmissive creates a light-emitting material
func NewEmissive(color core.Vec3, strength float64) Material {
	m := Default()
	m.Albedo = core.Vec3{}
	m.EmissionColor = color
	m.EmissionStrength = strength
	return m
}

// Emitted returns the radiance the surface emits on its own
func (m *Material) Emitted() core.Vec3 {
	return m.EmissionColor.Multiply(m.EmissionStrength)
}

// IsEmissive reports whether the material contributes light
func (m *Material) IsEmissive() bool {
	return m.EmissionStrength > 0 && !m.EmissionColor.IsZero()
}

// Sanitize returns a copy with every field forced into its valid range:
// colors non-negative and finite, probabilities and roughness in [0, 1].
func (m Material) Sanitize() Material {
	m.Albedo = nonNegative(m.Albedo)
	m.EmissionColor = nonNegative(m.EmissionColor)
	m.EmissionStrength = clampFinite(m.EmissionStrength, 0, math.MaxFloat64)
	m.Roughness = clampFinite(m.Roughness, 0, 1)
	m.SpecularProbability = clampFinite(m.SpecularProbability, 0, 1)
	return m
}

// Scatter picks the direction of the next bounce. With probability
// SpecularProbability the incoming direction is mirrored about the normal and
// then pulled toward the diffuse direction by Roughness; otherwise the
// direction comes from a cosine-weighted hemisphere around the normal.
func (m *Material) Scatter(incoming, normal core.Vec3, sampler core.Sampler) (direction core.Vec3, specular bool) {
	diffuse := core.SampleCosineHemisphere(normal, sampler.Get2D())

	// Always draw the specular decision so the stream layout does not depend on material
	specular = sampler.Get1D() < m.SpecularProbability
	if !specular {
		return diffuse, false
	}

	mirror := incoming.Reflect(normal)
	if m.Roughness == 0 {
		return mirror.Normalize(), true
	}
	return mirror.Lerp(diffuse, m.Roughness).Normalize(), true
}

func nonNegative(v core.Vec3) core.Vec3 {
	return core.Vec3{
		X: clampFinite(v.X, 0, math.MaxFloat64),
		Y: clampFinite(v.Y, 0, math.MaxFloat64),
		Z: clampFinite(v.Z, 0, math.MaxFloat64),
	}
}

func clampFinite(f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		return lo
	}
	return max(lo, min(hi, f))
}
