package integrator

import (
	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// DefaultRayBias is how far bounce origins are pushed off the surface along the normal
const DefaultRayBias = 1e-4

// PathTracer implements unidirectional path tracing with a fixed bounce limit
type PathTracer struct {
	MaxBounces   int     // Surface interactions per path; 0 renders black
	RaysPerPixel int     // Samples averaged per pixel
	RayBias      float64 // Offset along the normal for bounce origins
}

// NewPathTracer creates a path tracer with the default ray bias
func NewPathTracer(maxBounces, raysPerPixel int) *PathTracer {
	return &PathTracer{
		MaxBounces:   maxBounces,
		RaysPerPixel: raysPerPixel,
		RayBias:      DefaultRayBias,
	}
}

// Trace follows one light path starting at ray and returns the light it gathers.
// Each bounce draws from its own stream derived from key, so the result only
// depends on key and the scene.
func (pt *PathTracer) Trace(ray core.Ray, store *scene.Store, sampler *core.PCGSampler, key core.StreamKey) core.Vec3 {
	rayColor := core.NewVec3(1, 1, 1)
	incomingLight := core.Vec3{}

	for bounce := 0; bounce < pt.MaxBounces; bounce++ {
		hit := store.Intersect(ray)
		if !hit.DidHit {
			sky := store.Environment().Radiance(ray.Direction)
			incomingLight = incomingLight.Add(sky.MultiplyVec(rayColor))
			break
		}

		mat := hit.Material
		incomingLight = incomingLight.Add(mat.Emitted().MultiplyVec(rayColor))
		rayColor = rayColor.MultiplyVec(mat.Albedo)

		// Nothing further along the path can contribute
		if rayColor.IsZero() {
			break
		}

		key.Bounce = uint32(bounce)
		sampler.Reseed(key)
		direction, _ := mat.Scatter(ray.Direction, hit.Normal, sampler)

		ray = core.NewRay(hit.Point.Add(hit.Normal.Multiply(pt.RayBias)), direction)
	}

	return incomingLight
}

// TracePixel averages RaysPerPixel samples of pixel (x, y)
func (pt *PathTracer) TracePixel(x, y, width, height int, camera geometry.CameraState, store *scene.Store, seed PixelSeed) core.Vec3 {
	if pt.RaysPerPixel <= 0 {
		return core.Vec3{}
	}

	var sampler core.PCGSampler
	key := core.StreamKey{
		Seed:  seed.Seed,
		Frame: seed.Frame,
		Pixel: uint64(y)*uint64(width) + uint64(x),
	}

	sum := core.Vec3{}
	for s := 0; s < pt.RaysPerPixel; s++ {
		key.Sample = uint32(s)

		jitter := core.NewVec2(0.5, 0.5)
		if seed.Jitter {
			jitterKey := key
			jitterKey.Bounce = core.JitterStream
			sampler.Reseed(jitterKey)
			jitter = sampler.Get2D()
		}

		ray := camera.GenerateRay(x, y, width, height, jitter)
		sum = sum.Add(pt.Trace(ray, store, &sampler, key))
	}

	return sum.Multiply(1.0 / float64(pt.RaysPerPixel))
}
