package renderer

import (
	"image"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// TileStats contains statistics about rendering a single tile
type TileStats struct {
	Pixels int // Pixels traced
	Rays   int // Primary rays traced
}

// FrameStats contains statistics about a rendered frame
type FrameStats struct {
	FrameIndex      uint64        // Host frame index
	Samples         int           // Frames averaged into the accumulated output
	TotalPixels     int           // Pixels in the frame
	RaysTraced      int           // Primary rays traced this frame
	MaxBounces      int           // Bounce limit used this frame
	RaysPerPixel    int           // Samples per pixel used this frame
	ExcludedSpheres int           // Spheres left out of the scene snapshot
	MeanLuminance   float64       // Mean luminance of the accumulated output
	LuminanceStdDev float64       // Spread of luminance across pixels of the accumulated output
	Reset           bool          // History was discarded before this frame
	Duration        time.Duration // Wall time spent rendering the frame
}

// luminanceStats returns the mean and standard deviation of pixel luminance.
// scratch must hold len(buf) values.
func luminanceStats(buf []core.Vec3, scratch []float64) (mean, stdDev float64) {
	if len(buf) == 0 {
		return 0, 0
	}
	for i := range buf {
		scratch[i] = buf[i].Luminance()
	}
	if len(buf) == 1 {
		return scratch[0], 0
	}
	return stat.MeanStdDev(scratch[:len(buf)], nil)
}

// CalculateAverageLuminance returns the mean luminance of a display image,
// treating each 8-bit channel as a value in [0, 1].
func CalculateAverageLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}

	values := make([]float64, 0, pixels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			values = append(values, core.NewVec3(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255).Luminance())
		}
	}
	return stat.Mean(values, nil)
}
