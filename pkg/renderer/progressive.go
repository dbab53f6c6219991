package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/integrator"
	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

var logger = log.New("renderer")

// Frame is the output of one RenderFrame call. Its buffers are owned by the caller.
type Frame struct {
	Index       uint64
	Width       int
	Height      int
	Radiance    []core.Vec3 // This frame's estimate, linear and unclamped
	Accumulated []core.Vec3 // Running mean over Samples frames, linear and unclamped
	Samples     int         // Frames averaged into Accumulated
	Reset       bool        // History was discarded before blending this frame
	Skipped     bool        // Nothing was traced; Image shows the previous output or the source
	SkipReason  string
	Image       *image.RGBA // Accumulated output converted for display (gamma 2, clamped)
	Stats       FrameStats
}

// Renderer renders frames on a pool of tile workers and accumulates them into
// a progressively refined image. Frames are rendered one at a time; the
// accumulator write of one frame completes before the next frame starts.
type Renderer struct {
	config Config
	pool   *WorkerPool
	store  *scene.Store
	accum  *Accumulator
	raw    *core.BufferCache[core.Vec3]
	lum    *core.BufferCache[float64]

	tiles         []*Tile
	width, height int // Resolution the tiles were built for

	last   *Frame
	closed bool
	mu     sync.Mutex
	log    log.Logger
}

// NewRenderer creates a renderer and starts its workers
func NewRenderer(config Config) (*Renderer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	check := config.AllocCheck
	if check == nil {
		check = SystemMemoryGuard(DefaultMemoryFraction)
	}

	rlog := config.Logger
	if rlog == nil {
		rlog = logger
	}

	pool := NewWorkerPool(config.NumWorkers)
	pool.Start()

	return &Renderer{
		config: config,
		pool:   pool,
		store:  scene.NewStore(check),
		accum:  NewAccumulator(check),
		raw:    core.NewBufferCache[core.Vec3](check),
		lum:    core.NewBufferCache[float64](check),
		log:    rlog,
	}, nil
}

// RenderFrame renders one frame and blends it into the history.
//
// Invalid spheres are excluded and an invalid camera skips the frame; neither
// is an error. Errors are returned only for invalid settings, buffers that
// cannot be allocated (ErrResourceExhausted) and cancellation of ctx. On error
// the history is unchanged.
func (r *Renderer) RenderFrame(ctx context.Context, in FrameInput) (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.Preview && !r.config.RenderInPreview {
		return r.passThrough(in, "preview rendering disabled"), nil
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	if err := r.store.Rebuild(in.Spheres, in.Environment); err != nil {
		return nil, exhausted("scene store", err)
	}
	for _, err := range r.store.Excluded() {
		r.log.Warningf("frame %d: excluding %v", in.FrameIndex, err)
	}

	if err := in.Camera.Validate(); err != nil {
		r.log.Warningf("frame %d skipped: %v", in.FrameIndex, err)
		return r.passThrough(in, err.Error()), nil
	}

	raw, err := r.raw.Acquire(in.Width * in.Height)
	if err != nil {
		return nil, exhausted("frame buffer", err)
	}
	lum, err := r.lum.Acquire(in.Width * in.Height)
	if err != nil {
		return nil, exhausted("statistics buffer", err)
	}

	tr := &TileRenderer{
		integrator: &integrator.PathTracer{
			MaxBounces:   in.MaxBounces,
			RaysPerPixel: in.RaysPerPixel,
			RayBias:      r.config.RayBias,
		},
		camera:       in.Camera,
		store:        r.store,
		seed:         integrator.PixelSeed{Seed: r.config.Seed, Frame: in.FrameIndex, Jitter: r.config.Jitter},
		width:        in.Width,
		height:       in.Height,
		raysPerPixel: in.RaysPerPixel,
		radiance:     raw,
	}

	tileStats, err := r.renderTiles(ctx, tr)
	if err != nil {
		r.log.Infof("frame %d abandoned: %v", in.FrameIndex, err)
		return nil, err
	}

	key := FrameKey{
		Width:            in.Width,
		Height:           in.Height,
		Camera:           in.Camera,
		SceneFingerprint: r.store.Fingerprint(),
	}
	accumulated, n, reset, err := r.accum.Blend(raw, key)
	if err != nil {
		return nil, exhausted("history buffer", err)
	}
	if reset {
		r.log.Debugf("frame %d: history reset", in.FrameIndex)
	}

	mean, stdDev := luminanceStats(accumulated, lum)
	frame := &Frame{
		Index:       in.FrameIndex,
		Width:       in.Width,
		Height:      in.Height,
		Radiance:    slices.Clone(raw),
		Accumulated: slices.Clone(accumulated),
		Samples:     n,
		Reset:       reset,
		Image:       ToRGBA(accumulated, in.Width, in.Height),
		Stats: FrameStats{
			FrameIndex:      in.FrameIndex,
			Samples:         n,
			TotalPixels:     tileStats.Pixels,
			RaysTraced:      tileStats.Rays,
			MaxBounces:      in.MaxBounces,
			RaysPerPixel:    in.RaysPerPixel,
			ExcludedSpheres: len(r.store.Excluded()),
			MeanLuminance:   mean,
			LuminanceStdDev: stdDev,
			Reset:           reset,
			Duration:        time.Since(start),
		},
	}

	r.last = frame
	return frame, nil
}

// renderTiles submits one task per tile and waits for every result, so no
// worker touches the frame's buffers once it returns.
func (r *Renderer) renderTiles(ctx context.Context, tr *TileRenderer) (TileStats, error) {
	if r.tiles == nil || r.width != tr.width || r.height != tr.height {
		r.tiles = NewTileGrid(tr.width, tr.height, r.config.TileSize)
		r.width, r.height = tr.width, tr.height
	}
	tiles := r.tiles

	go func() {
		for i, tile := range tiles {
			r.pool.SubmitTask(TileTask{Ctx: ctx, Tile: tile, TaskID: i, Renderer: tr})
		}
	}()

	total := TileStats{}
	var firstErr error
	for range tiles {
		result, ok := r.pool.GetResult()
		if !ok {
			return total, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
		total.Pixels += result.Stats.Pixels
		total.Rays += result.Stats.Rays
	}

	return total, firstErr
}

// passThrough returns a skipped frame showing the previous output, or the
// host source image when there is no previous output or the frame is a preview.
func (r *Renderer) passThrough(in FrameInput, reason string) *Frame {
	frame := &Frame{
		Index:      in.FrameIndex,
		Width:      in.Width,
		Height:     in.Height,
		Samples:    r.accum.Samples(),
		Skipped:    true,
		SkipReason: reason,
		Stats:      FrameStats{FrameIndex: in.FrameIndex, Samples: r.accum.Samples()},
	}

	useSource := in.Source != nil && (in.Preview || r.last == nil)
	switch {
	case useSource:
		frame.Image = fitImage(in.Source, in.Width, in.Height)
		frame.Width, frame.Height = frame.Image.Bounds().Dx(), frame.Image.Bounds().Dy()
	case r.last != nil:
		frame.Width, frame.Height = r.last.Width, r.last.Height
		frame.Accumulated = r.last.Accumulated
		frame.Image = r.last.Image
	}
	return frame
}

// LastFrame returns the most recent successfully rendered frame, or nil
func (r *Renderer) LastFrame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ResetHistory discards accumulated history; the next frame starts fresh
func (r *Renderer) ResetHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accum.Reset()
}

// Close stops the workers. Further frames fail with ErrClosed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Stop()
	r.raw.Release()
	r.lum.Release()
	return nil
}

// GetNumWorkers returns the number of tile workers
func (r *Renderer) GetNumWorkers() int {
	return r.pool.GetNumWorkers()
}

func exhausted(what string, err error) error {
	if errors.Is(err, ErrResourceExhausted) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrResourceExhausted, what, err)
}

// FrameSource supplies the input of each frame of a progressive render
type FrameSource func(frameIndex uint64) FrameInput

// FrameResult contains one frame of a progressive render
type FrameResult struct {
	Frame  *Frame
	IsLast bool
}

// RenderProgressive renders frames with channel-based communication.
// frames <= 0 renders until ctx is cancelled. The caller should read from
// both channels; the frame channel is closed when rendering stops.
func (r *Renderer) RenderProgressive(ctx context.Context, source FrameSource, frames int) (<-chan FrameResult, <-chan error) {
	frameChan := make(chan FrameResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(frameChan)
		defer close(errChan)

		if frames > 0 {
			r.log.Infof("Starting progressive rendering with %d frames using %d workers...", frames, r.GetNumWorkers())
		} else {
			r.log.Infof("Starting continuous rendering using %d workers...", r.GetNumWorkers())
		}

		for i := uint64(0); frames <= 0 || i < uint64(frames); i++ {
			// Check if the caller stopped listening before starting this frame
			select {
			case <-ctx.Done():
				r.log.Debugf("Rendering cancelled before frame %d", i)
				errChan <- ctx.Err()
				return
			default:
			}

			frame, err := r.RenderFrame(ctx, source(i))
			if err != nil {
				errChan <- err
				return
			}

			r.log.Debugf("Frame %d completed in %v (%d accumulated)", i, frame.Stats.Duration, frame.Samples)

			result := FrameResult{
				Frame:  frame,
				IsLast: frames > 0 && i == uint64(frames)-1,
			}
			select {
			case frameChan <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return frameChan, errChan
}
