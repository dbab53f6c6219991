package core

import (
	"math"
	"math/rand/v2"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// JitterStream is the bounce slot reserved for the sub-pixel jitter of a sample
const JitterStream = math.MaxUint32

// StreamKey identifies one independent random stream. Every
// (seed, frame, pixel, sample, bounce) tuple maps to its own stream, so a
// render is reproducible regardless of how pixels are scheduled.
type StreamKey struct {
	Seed   uint64
	Frame  uint64
	Pixel  uint64
	Sample uint32
	Bounce uint32
}

// splitmix64 finalizer
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (k StreamKey) words() (uint64, uint64) {
	hi := mix64(k.Seed ^ mix64(k.Frame))
	lo := mix64(k.Pixel ^ mix64(uint64(k.Sample)<<32|uint64(k.Bounce)))
	return mix64(hi ^ lo), lo
}

// PCGSampler is a Sampler backed by a PCG generator seeded from a StreamKey
type PCGSampler struct {
	pcg rand.PCG
}

// NewPCGSampler creates a sampler positioned at the start of the given stream
func NewPCGSampler(key StreamKey) *PCGSampler {
	s := &PCGSampler{}
	s.Reseed(key)
	return s
}

// Reseed moves the sampler to the start of another stream without allocating
func (s *PCGSampler) Reseed(key StreamKey) {
	hi, lo := key.words()
	s.pcg.Seed(hi, lo)
}

// Get1D returns a float64 in [0, 1)
func (s *PCGSampler) Get1D() float64 {
	return float64(s.pcg.Uint64()>>11) * 0x1p-53
}

// Get2D returns two float64 values in [0, 1)
func (s *PCGSampler) Get2D() Vec2 {
	return NewVec2(s.Get1D(), s.Get1D())
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	// Generate point in unit disk using uniform random sampling
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	// Find a vector perpendicular to normal
	var nt Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}

	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord)).Normalize()
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}
