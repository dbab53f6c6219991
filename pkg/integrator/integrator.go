package integrator

import (
	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// PixelSeed selects the random streams used for one pixel of one frame
type PixelSeed struct {
	Seed   uint64 // Global seed shared by every frame of a render
	Frame  uint64 // Monotonically increasing frame index
	Jitter bool   // Offset each sample randomly inside the pixel; otherwise sample the pixel center
}

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// TracePixel returns the mean radiance of pixel (x, y) of a width x height image
	TracePixel(x, y, width, height int, camera geometry.CameraState, store *scene.Store, seed PixelSeed) core.Vec3
}
