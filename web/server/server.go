package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/df07/go-sphere-tracer/pkg/loaders"
	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/renderer"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

var logger = log.New("server")

// Limits applied to request parameters
const (
	maxResolution   = 2000
	maxFrames       = 10000
	maxBounces      = 64
	maxRaysPerPixel = 1024
)

// Server handles web requests for the sphere tracer
type Server struct {
	port     int
	sceneDir string // Directory of YAML scene files offered next to the built-ins
	config   renderer.Config
	e        *echo.Echo
}

// NewServer creates a new web server. config is the base renderer
// configuration; each render request gets its own renderer built from it.
func NewServer(port int, sceneDir string, config renderer.Config) *Server {
	s := &Server{
		port:     port,
		sceneDir: sceneDir,
		config:   config,
		e:        echo.New(),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORS())

	s.e.GET("/api/health", s.handleHealth)
	s.e.GET("/api/scenes", s.handleScenes)
	s.e.GET("/api/scene-config", s.handleSceneConfig)
	s.e.GET("/api/render", s.handleRender)
	s.e.GET("/api/frame.png", s.handleFrame)
	s.e.GET("/api/inspect", s.handleInspect)
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start starts the web server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Noticef("Starting web server on http://localhost%s", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status string               `json:"status"`
	System *renderer.SystemInfo `json:"system,omitempty"`
}

// handleHealth reports liveness along with the host the server runs on
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if info, err := renderer.GetSystemInfo(); err != nil {
		logger.Debugf("system info unavailable: %v", err)
	} else {
		resp.System = &info
	}
	return c.JSON(http.StatusOK, resp)
}

// handleScenes lists the built-in scenes and the scene files, grouped by category
func (s *Server) handleScenes(c echo.Context) error {
	response, err := scene.ListAllScenes(s.sceneDir)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, response)
}

// createScene resolves a scene ID against the built-ins and the scene directory.
// Paths are not accepted from clients.
func (s *Server) createScene(sceneName string) (*scene.Scene, error) {
	if loaders.IsSceneFile(sceneName) {
		return nil, fmt.Errorf("unknown scene: %q", sceneName)
	}
	return loaders.ResolveScene(sceneName, s.sceneDir)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(c echo.Context) error {
	sceneName := c.QueryParam("scene")
	if sceneName == "" {
		sceneName = "default"
	}

	sceneObj, err := s.createScene(sceneName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	config := sceneObj.SamplingConfig
	response := map[string]interface{}{
		"scene":   sceneName,
		"spheres": sceneObj.GetPrimitiveCount(),
		"defaults": map[string]interface{}{
			"width":        config.Width,
			"height":       config.Height,
			"maxBounces":   config.MaxBounces,
			"raysPerPixel": config.RaysPerPixel,
		},
		"limits": map[string]interface{}{
			"width":        map[string]int{"min": 1, "max": maxResolution},
			"height":       map[string]int{"min": 1, "max": maxResolution},
			"frames":       map[string]int{"min": 0, "max": maxFrames},
			"maxBounces":   map[string]int{"min": 0, "max": maxBounces},
			"raysPerPixel": map[string]int{"min": 1, "max": maxRaysPerPixel},
		},
	}
	return c.JSON(http.StatusOK, response)
}

// parseIntParam parses an integer query parameter with validation
func parseIntParam(c echo.Context, key string, defaultValue, min, max int) (int, error) {
	if value := c.QueryParam(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float query parameter with validation
func parseFloatParam(c echo.Context, key string, defaultValue, min, max float64) (float64, error) {
	if value := c.QueryParam(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %f and %f, got: %f", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// imageToPNG encodes an image as PNG
func imageToPNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	data, err := imageToPNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
