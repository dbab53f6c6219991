package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/renderer"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene        string  // Scene ID (e.g., "default" or "file:glossy-trio")
	Width        int     // Image width
	Height       int     // Image height
	MaxBounces   int     // Maximum bounces per path
	RaysPerPixel int     // Samples per pixel per frame
	Seed         uint64  // Global random seed
	FOV          float64 // Vertical field of view override; 0 keeps the scene camera
}

// FrameUpdate represents a single progressive update sent via SSE
type FrameUpdate struct {
	FrameIndex  uint64 `json:"frameIndex"`
	TotalFrames int    `json:"totalFrames"` // 0 when rendering until the client disconnects
	ImageData   string `json:"imageData"`   // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Stats represents render statistics of one frame
type Stats struct {
	Samples         int     `json:"samples"`
	TotalPixels     int     `json:"totalPixels"`
	RaysTraced      int     `json:"raysTraced"`
	ExcludedSpheres int     `json:"excludedSpheres"`
	MeanLuminance   float64 `json:"meanLuminance"`
	LuminanceStdDev float64 `json:"luminanceStdDev"`
	Reset           bool    `json:"reset"`
	Skipped         bool    `json:"skipped"`
	FrameMs         int64   `json:"frameMs"`
}

func newStats(frame *renderer.Frame) Stats {
	return Stats{
		Samples:         frame.Samples,
		TotalPixels:     frame.Stats.TotalPixels,
		RaysTraced:      frame.Stats.RaysTraced,
		ExcludedSpheres: frame.Stats.ExcludedSpheres,
		MeanLuminance:   frame.Stats.MeanLuminance,
		LuminanceStdDev: frame.Stats.LuminanceStdDev,
		Reset:           frame.Reset,
		Skipped:         frame.Skipped,
		FrameMs:         frame.Stats.Duration.Milliseconds(),
	}
}

// handleRender handles progressive rendering with frame streaming via SSE
func (s *Server) handleRender(c echo.Context) error {
	req, sceneObj, err := s.parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}
	frames, err := parseIntParam(c, "frames", 10, 0, maxFrames)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	// The renderer logs through the web logger so its lines reach the console
	consoleChan := make(chan ConsoleMessage, 50)
	webLogger := NewWebLogger(fmt.Sprintf("render-%d", time.Now().UnixNano()), consoleChan)

	r, err := s.newRenderer(req, webLogger)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer r.Close()

	s.setSSEHeaders(c)
	ctx := c.Request().Context()

	webLogger.Infof("Rendering %q at %dx%d with %d spheres, %d bounces, %d rays per pixel",
		req.Scene, req.Width, req.Height, sceneObj.GetPrimitiveCount(), req.MaxBounces, req.RaysPerPixel)

	startTime := time.Now()
	frameChan, errChan := r.RenderProgressive(ctx, func(frameIndex uint64) renderer.FrameInput {
		return renderer.NewFrameInput(sceneObj, frameIndex)
	}, frames)

	return s.streamRenderEvents(ctx, c, webLogger, consoleChan, frameChan, errChan, frames, startTime)
}

// streamRenderEvents writes every SSE event from the handler goroutine until
// rendering stops or the client disconnects.
func (s *Server) streamRenderEvents(ctx context.Context, c echo.Context, webLogger *WebLogger,
	consoleChan chan ConsoleMessage, frameChan <-chan renderer.FrameResult, errChan <-chan error,
	frames int, startTime time.Time) error {

	warnedExcluded := false
	for frameChan != nil || errChan != nil {
		select {
		case msg := <-consoleChan:
			s.sendConsoleMessage(c, msg)

		case result, ok := <-frameChan:
			if !ok {
				frameChan = nil
				continue
			}

			frame := result.Frame
			if frame.Stats.ExcludedSpheres > 0 && !warnedExcluded {
				webLogger.Warningf("%d spheres were left out of the scene", frame.Stats.ExcludedSpheres)
				warnedExcluded = true
			}
			if frame.Skipped {
				webLogger.Warningf("Frame %d skipped: %s", frame.Index, frame.SkipReason)
			}

			var imageData string
			if frame.Image != nil {
				var err error
				if imageData, err = imageToBase64PNG(frame.Image); err != nil {
					logger.Errorf("Error encoding frame %d: %v", frame.Index, err)
					continue
				}
			}
			update := FrameUpdate{
				FrameIndex:  frame.Index,
				TotalFrames: frames,
				ImageData:   imageData,
				Stats:       newStats(frame),
				IsComplete:  result.IsLast,
				ElapsedMs:   time.Since(startTime).Milliseconds(),
			}
			data, err := json.Marshal(update)
			if err != nil {
				logger.Errorf("Error marshaling frame update: %v", err)
				continue
			}
			if err := s.sendSSEEvent(c, "frame", string(data)); err != nil {
				// Client disconnected during write
				return nil
			}

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			s.sendSSEEvent(c, "error", fmt.Sprintf("Rendering failed: %v", err))
			return nil

		case <-ctx.Done():
			// Client disconnected
			return nil
		}
	}

	webLogger.Infof("Rendering completed in %v", time.Since(startTime).Round(time.Millisecond))
drain:
	for {
		select {
		case msg := <-consoleChan:
			s.sendConsoleMessage(c, msg)
		default:
			break drain
		}
	}
	return s.sendSSEEvent(c, "complete", "Rendering completed")
}

// handleFrame renders a fixed number of frames and returns the accumulated image as PNG
func (s *Server) handleFrame(c echo.Context) error {
	req, sceneObj, err := s.parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}
	frames, err := parseIntParam(c, "frames", 1, 1, maxFrames)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	r, err := s.newRenderer(req, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer r.Close()

	ctx := c.Request().Context()
	var frame *renderer.Frame
	for i := 0; i < frames; i++ {
		frame, err = r.RenderFrame(ctx, renderer.NewFrameInput(sceneObj, uint64(i)))
		if err != nil {
			if errors.Is(err, renderer.ErrResourceExhausted) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if frame.Image == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, frame.SkipReason)
	}
	data, err := imageToPNG(frame.Image)
	if err != nil {
		return err
	}
	c.Response().Header().Set("X-Samples", strconv.Itoa(frame.Samples))
	return c.Blob(http.StatusOK, "image/png", data)
}

// parseRenderRequest parses the scene parameters shared by every render endpoint
// and returns the scene with the overrides applied.
func (s *Server) parseRenderRequest(c echo.Context) (*RenderRequest, *scene.Scene, error) {
	req := &RenderRequest{Scene: c.QueryParam("scene")}
	if req.Scene == "" {
		req.Scene = "default"
	}

	sceneObj, err := s.createScene(req.Scene)
	if err != nil {
		return nil, nil, err
	}
	defaults := sceneObj.SamplingConfig

	if req.Width, err = parseIntParam(c, "width", defaults.Width, 1, maxResolution); err != nil {
		return nil, nil, err
	}
	if req.Height, err = parseIntParam(c, "height", defaults.Height, 1, maxResolution); err != nil {
		return nil, nil, err
	}
	if req.MaxBounces, err = parseIntParam(c, "maxBounces", defaults.MaxBounces, 0, maxBounces); err != nil {
		return nil, nil, err
	}
	if req.RaysPerPixel, err = parseIntParam(c, "raysPerPixel", defaults.RaysPerPixel, 1, maxRaysPerPixel); err != nil {
		return nil, nil, err
	}
	if req.FOV, err = parseFloatParam(c, "fov", 0, 0, 179); err != nil {
		return nil, nil, err
	}
	req.Seed = s.config.Seed
	if value := c.QueryParam("seed"); value != "" {
		if req.Seed, err = strconv.ParseUint(value, 10, 64); err != nil {
			return nil, nil, fmt.Errorf("invalid seed: %s", value)
		}
	}

	// Performance warning
	if req.Width*req.Height > 800*600 && req.RaysPerPixel > 64 {
		logger.Warningf("Render warning: Large image with high samples may render slowly")
	}

	sceneObj.SamplingConfig.Width = req.Width
	sceneObj.SamplingConfig.Height = req.Height
	sceneObj.SamplingConfig.MaxBounces = req.MaxBounces
	sceneObj.SamplingConfig.RaysPerPixel = req.RaysPerPixel
	if req.FOV > 0 {
		sceneObj.Camera.FOV = req.FOV
	}
	return req, sceneObj, nil
}

// newRenderer creates a renderer for one request. A nil rlog keeps the
// renderer's own logger.
func (s *Server) newRenderer(req *RenderRequest, rlog log.Logger) (*renderer.Renderer, error) {
	config := s.config
	config.Seed = req.Seed
	if rlog != nil {
		config.Logger = rlog
	}
	return renderer.NewRenderer(config)
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
}

func (s *Server) sendConsoleMessage(c echo.Context, msg ConsoleMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Error marshaling console message: %v", err)
		return
	}
	s.sendSSEEvent(c, "console", string(data))
}

// sendSSEEvent writes one SSE event and flushes it to the client
func (s *Server) sendSSEEvent(c echo.Context, event, data string) error {
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
