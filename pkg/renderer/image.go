package renderer

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// vec3ToColor converts a Vec3 color to RGBA with proper clamping and gamma correction
func vec3ToColor(colorVec core.Vec3) color.RGBA {
	// Apply gamma correction (gamma = 2.0)
	colorVec = colorVec.GammaCorrect(2.0)

	// Clamp to valid color range
	colorVec = colorVec.Clamp(0.0, 1.0)

	return color.RGBA{
		R: uint8(255 * colorVec.X),
		G: uint8(255 * colorVec.Y),
		B: uint8(255 * colorVec.Z),
		A: 255,
	}
}

// ToRGBA converts a row-major linear radiance buffer to a displayable image
func ToRGBA(buf []core.Vec3, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, vec3ToColor(buf[y*width+x]))
		}
	}
	return img
}

// fitImage copies src into a new width x height image, scaling when the sizes differ.
// A non-positive size keeps the source size.
func fitImage(src image.Image, width, height int) *image.RGBA {
	sb := src.Bounds()
	if width < 1 || height < 1 {
		width, height = sb.Dx(), sb.Dy()
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if sb.Dx() == width && sb.Dy() == height {
		xdraw.Draw(dst, dst.Bounds(), src, sb.Min, xdraw.Src)
		return dst
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}
