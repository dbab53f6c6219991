package renderer

import (
	"context"
	"image"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/integrator"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			// Calculate tile bounds
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, &Tile{ID: tileID, Bounds: image.Rect(x0, y0, x1, y1)})
			tileID++
		}
	}

	return tiles
}

// TileRenderer traces the tiles of one frame into a shared radiance buffer.
// Tiles never overlap, so concurrent RenderTileBounds calls write disjoint cells.
type TileRenderer struct {
	integrator   integrator.Integrator
	camera       geometry.CameraState
	store        *scene.Store
	seed         integrator.PixelSeed
	width        int
	height       int
	raysPerPixel int
	radiance     []core.Vec3 // Row-major, width*height
}

// RenderTileBounds traces every pixel within bounds. The frame context is
// checked once per row; a cancelled tile leaves its remaining pixels untouched.
func (tr *TileRenderer) RenderTileBounds(ctx context.Context, bounds image.Rectangle) (TileStats, error) {
	stats := TileStats{}

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			tr.radiance[j*tr.width+i] = tr.integrator.TracePixel(i, j, tr.width, tr.height, tr.camera, tr.store, tr.seed)
			stats.Pixels++
		}
	}

	stats.Rays = stats.Pixels * tr.raysPerPixel
	return stats, nil
}
