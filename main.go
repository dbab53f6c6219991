package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/df07/go-sphere-tracer/cmd"
	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/renderer"
)

var logger = log.New("tracer")

// Flags shared by every command that builds a renderer
func rendererFlags() []cli.Flag {
	defaults := renderer.DefaultConfig()
	return []cli.Flag{
		cli.Uint64Flag{
			Name:  "seed",
			Value: defaults.Seed,
			Usage: "global seed mixed into every random stream",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: defaults.NumWorkers,
			Usage: "number of tile workers (0 = one per CPU)",
		},
		cli.IntFlag{
			Name:  "tile-size",
			Value: defaults.TileSize,
			Usage: "edge length of the square tiles handed to workers",
		},
		cli.Float64Flag{
			Name:  "memory-fraction",
			Value: renderer.DefaultMemoryFraction,
			Usage: "largest share of available memory a single frame buffer may take",
		},
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "sphere-tracer"
	app.Usage = "progressively path trace scenes made of spheres"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene and save the accumulated image",
			Description: `
Render a built-in scene, a YAML scene file or a scene from the scenes directory
for a number of frames. Every frame adds one independent sample of each pixel
to a running average; the final average is written to the output image.

Images ending in .tif or .tiff are written as TIFF, everything else as PNG.`,
			ArgsUsage: "scene",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width (0 = scene default)",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height (0 = scene default)",
				},
				cli.IntFlag{
					Name:  "frames, f",
					Value: 16,
					Usage: "frames to accumulate (0 = until interrupted)",
				},
				cli.IntFlag{
					Name:  "bounces",
					Usage: "maximum bounces per path (default: scene setting)",
				},
				cli.IntFlag{
					Name:  "spp",
					Usage: "rays per pixel per frame (0 = scene default)",
				},
				cli.BoolFlag{
					Name:  "no-jitter",
					Usage: "trace every sample through the pixel center",
				},
				cli.StringFlag{
					Name:  "source",
					Usage: "image shown in place of frames that cannot be traced",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output image; .tiff, .bmp and .jpg select the format (default: output/<scene>/render_<timestamp>.png)",
				},
			}, rendererFlags()...),
			Action: cmd.RenderFrames,
		},
		{
			Name:   "scenes",
			Usage:  "list available scenes",
			Action: cmd.ListScenes,
		},
		{
			Name:  "serve",
			Usage: "start the web server",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "port, p",
					Value: 8080,
					Usage: "port to serve on",
				},
			}, rendererFlags()...),
			Action: cmd.Serve,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
