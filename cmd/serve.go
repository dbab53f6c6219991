package cmd

import (
	"github.com/urfave/cli"

	"github.com/df07/go-sphere-tracer/pkg/renderer"
	"github.com/df07/go-sphere-tracer/web/server"
)

// Serve starts the web server.
func Serve(ctx *cli.Context) error {
	setupLogging(ctx)

	config := renderer.DefaultConfig()
	config.Seed = ctx.Uint64("seed")
	config.NumWorkers = ctx.Int("workers")
	config.TileSize = ctx.Int("tile-size")
	if fraction := ctx.Float64("memory-fraction"); fraction > 0 {
		config.AllocCheck = renderer.SystemMemoryGuard(fraction)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	port := ctx.Int("port")
	webServer := server.NewServer(port, sceneDir, config)
	logger.Noticef("Visit http://localhost:%d/api/render?scene=default to start rendering", port)
	return webServer.Start()
}
