package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-sphere-tracer/pkg/loaders"
	"github.com/df07/go-sphere-tracer/pkg/renderer"
)

// Render a scene progressively and save the accumulated image.
func RenderFrames(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene argument")
	}
	sceneName := ctx.Args().First()

	sc, err := createScene(sceneName)
	if err != nil {
		return err
	}

	// Command line settings override the scene's recommendations
	if w := ctx.Int("width"); w > 0 {
		sc.SamplingConfig.Width = w
	}
	if h := ctx.Int("height"); h > 0 {
		sc.SamplingConfig.Height = h
	}
	if ctx.IsSet("bounces") {
		sc.SamplingConfig.MaxBounces = ctx.Int("bounces")
	}
	if spp := ctx.Int("spp"); spp > 0 {
		sc.SamplingConfig.RaysPerPixel = spp
	}

	config := renderer.DefaultConfig()
	config.Seed = ctx.Uint64("seed")
	config.NumWorkers = ctx.Int("workers")
	config.TileSize = ctx.Int("tile-size")
	config.Jitter = !ctx.Bool("no-jitter")
	if fraction := ctx.Float64("memory-fraction"); fraction > 0 {
		config.AllocCheck = renderer.SystemMemoryGuard(fraction)
	}

	var source image.Image
	if path := ctx.String("source"); path != "" {
		if source, err = loaders.LoadImage(path); err != nil {
			return err
		}
	}

	r, err := renderer.NewRenderer(config)
	if err != nil {
		return err
	}
	defer r.Close()

	logger.Noticef("rendering %q (%d spheres) at %dx%d, %d bounces, %d rays per pixel, %d workers",
		sc.Name, sc.GetPrimitiveCount(), sc.SamplingConfig.Width, sc.SamplingConfig.Height,
		sc.SamplingConfig.MaxBounces, sc.SamplingConfig.RaysPerPixel, r.GetNumWorkers())

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	frameChan, errChan := r.RenderProgressive(runCtx, func(frameIndex uint64) renderer.FrameInput {
		in := renderer.NewFrameInput(sc, frameIndex)
		in.Source = source
		return in
	}, ctx.Int("frames"))

	var stats []renderer.FrameStats
	var last *renderer.Frame
	for result := range frameChan {
		frame := result.Frame
		if frame.Skipped {
			logger.Warningf("frame %d skipped: %s", frame.Index, frame.SkipReason)
		} else {
			stats = append(stats, frame.Stats)
		}
		if frame.Image != nil {
			last = frame
		}
	}
	if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	renderTime := time.Since(start)

	if last == nil {
		return errors.New("no frame was rendered")
	}

	out := ctx.String("out")
	if out == "" {
		out = filepath.Join(createOutputDir(sceneName), fmt.Sprintf("render_%s.png", time.Now().Format("20060102_150405")))
	}
	if err := loaders.SaveImage(out, last.Image); err != nil {
		return err
	}

	displayFrameStats(stats, renderTime)
	logger.Noticef("average luminance %.4f over %d accumulated frames", renderer.CalculateAverageLuminance(last.Image), last.Samples)
	logger.Noticef("render saved as %s", out)
	return nil
}

func displayFrameStats(stats []renderer.FrameStats, renderTime time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frame", "Samples", "Rays", "Excluded", "Mean luminance", "Std dev", "Render time"})

	totalRays := 0
	for _, stat := range stats {
		samples := fmt.Sprintf("%d", stat.Samples)
		if stat.Reset {
			samples += " (reset)"
		}
		table.Append([]string{
			fmt.Sprintf("%d", stat.FrameIndex),
			samples,
			fmt.Sprintf("%d", stat.RaysTraced),
			fmt.Sprintf("%d", stat.ExcludedSpheres),
			fmt.Sprintf("%.4f", stat.MeanLuminance),
			fmt.Sprintf("%.4f", stat.LuminanceStdDev),
			fmt.Sprintf("%s", stat.Duration.Round(time.Microsecond)),
		})
		totalRays += stat.RaysTraced
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d", totalRays), "", "", "TOTAL", fmt.Sprintf("%s", renderTime.Round(time.Millisecond))})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())

	if info, err := renderer.GetSystemInfo(); err == nil {
		logger.Infof("system: %s, %d cores @ %.2f GHz, %d/%d MB RAM free",
			info.CPU, info.Cores, info.ClockGHz, info.FreeRAM>>20, info.TotalRAM>>20)
	}
}
