package renderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/integrator"
	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

var (
	// ErrResourceExhausted is returned when a frame's buffers cannot be allocated.
	// History is left untouched.
	ErrResourceExhausted = errors.New("renderer: resource exhausted")

	// ErrInvalidConfig is returned for settings no frame can be rendered with
	ErrInvalidConfig = errors.New("renderer: invalid config")

	// ErrClosed is returned by a renderer after Close
	ErrClosed = errors.New("renderer: closed")
)

// Config contains the settings that stay fixed for the lifetime of a Renderer
type Config struct {
	TileSize        int             // Size of each tile (32x32 recommended)
	NumWorkers      int             // Number of parallel workers (0 = use CPU count)
	Seed            uint64          // Global seed mixed into every random stream
	Jitter          bool            // Randomize sample positions inside each pixel
	RayBias         float64         // Offset along the normal for bounce origins
	RenderInPreview bool            // Trace preview frames instead of passing the source through
	AllocCheck      core.AllocCheck // Approves buffer allocations (nil = SystemMemoryGuard)
	Logger          log.Logger      // Receives the renderer's log lines (nil = "renderer" logger)
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		TileSize:        32,
		NumWorkers:      0, // Auto-detect CPU count
		Seed:            1,
		Jitter:          true,
		RayBias:         integrator.DefaultRayBias,
		RenderInPreview: true,
	}
}

// Validate reports settings that can never render
func (c Config) Validate() error {
	if c.TileSize < 1 {
		return fmt.Errorf("%w: tile size %d must be at least 1", ErrInvalidConfig, c.TileSize)
	}
	if c.NumWorkers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidConfig, c.NumWorkers)
	}
	if c.RayBias < 0 {
		return fmt.Errorf("%w: negative ray bias %v", ErrInvalidConfig, c.RayBias)
	}
	return nil
}

// FrameInput is everything the host supplies for one frame
type FrameInput struct {
	Spheres      []geometry.Sphere
	Environment  scene.Environment // nil = scene.DefaultEnvironment()
	Camera       geometry.CameraState
	Width        int
	Height       int
	MaxBounces   int         // >= 0; 0 renders black
	RaysPerPixel int         // >= 1
	FrameIndex   uint64      // Monotonically increasing; part of the random seed
	Preview      bool        // Frame belongs to an editor preview
	Source       image.Image // Host image shown when the frame is passed through (optional)
}

// NewFrameInput builds the input for one frame of a scene at its configured settings
func NewFrameInput(s *scene.Scene, frameIndex uint64) FrameInput {
	return FrameInput{
		Spheres:      s.Spheres,
		Environment:  s.Environment,
		Camera:       s.CameraWithAspect(),
		Width:        s.SamplingConfig.Width,
		Height:       s.SamplingConfig.Height,
		MaxBounces:   s.SamplingConfig.MaxBounces,
		RaysPerPixel: s.SamplingConfig.RaysPerPixel,
		FrameIndex:   frameIndex,
	}
}

func (in FrameInput) validate() error {
	switch {
	case in.Width < 1 || in.Height < 1:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, in.Width, in.Height)
	case in.MaxBounces < 0:
		return fmt.Errorf("%w: maxBounces %d must not be negative", ErrInvalidConfig, in.MaxBounces)
	case in.RaysPerPixel < 1:
		return fmt.Errorf("%w: raysPerPixel %d must be at least 1", ErrInvalidConfig, in.RaysPerPixel)
	}
	return nil
}
