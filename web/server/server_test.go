package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-sphere-tracer/pkg/renderer"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

const testSceneYAML = `# Scene: Two Spheres
# Group: Test Scenes
camera:
  position: [0, 0, -6]
  look_at: [0, 0, 0]
render:
  width: 32
  height: 18
  max_bounces: 2
spheres:
  - center: [-1, 0, 0]
    radius: 0.8
  - center: [1, 0, 0]
    radius: 0.8
    material:
      specular_probability: 1
`

func newTestServer() *Server {
	config := renderer.DefaultConfig()
	config.TileSize = 8
	config.NumWorkers = 2
	config.AllocCheck = renderer.LimitGuard(1 << 30)
	return NewServer(0, "", config)
}

func newTestServerWithScenes(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "two-spheres.yaml"), []byte(testSceneYAML), 0644); err != nil {
		t.Fatal(err)
	}
	s := newTestServer()
	s.sceneDir = dir
	return s
}

func doRequest(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(), "/api/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", resp.Status)
	}
}

func TestHandleScenes(t *testing.T) {
	rec := doRequest(t, newTestServerWithScenes(t), "/api/scenes")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp scene.ScenesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("Expected built-in and test scene groups, got %+v", resp.Groups)
	}
	if len(resp.Groups[0].Scenes) != len(scene.ListBuiltin()) {
		t.Errorf("Expected %d built-in scenes, got %d", len(scene.ListBuiltin()), len(resp.Groups[0].Scenes))
	}
	if got := resp.Groups[1]; got.Name != "Test Scenes" || len(got.Scenes) != 1 || got.Scenes[0].ID != "file:two-spheres" {
		t.Errorf("Unexpected file scene group: %+v", got)
	}
}

func TestHandleFrame_SceneFile(t *testing.T) {
	s := newTestServerWithScenes(t)

	rec := doRequest(t, s, "/api/frame.png?scene=file:two-spheres")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 18 {
		t.Errorf("Expected the scene file resolution 32x18, got %dx%d", b.Dx(), b.Dy())
	}

	// Paths are never resolved for clients
	path := url.QueryEscape(filepath.Join(s.sceneDir, "two-spheres.yaml"))
	if rec := doRequest(t, s, "/api/frame.png?scene="+path); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a scene path, got %d", rec.Code)
	}
}

func TestHandleSceneConfig(t *testing.T) {
	s := newTestServer()

	rec := doRequest(t, s, "/api/scene-config?scene=mirror")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp struct {
		Scene    string `json:"scene"`
		Spheres  int    `json:"spheres"`
		Defaults struct {
			MaxBounces int `json:"maxBounces"`
		} `json:"defaults"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if resp.Scene != "mirror" || resp.Spheres != 2 || resp.Defaults.MaxBounces != 2 {
		t.Errorf("Unexpected mirror scene config: %+v", resp)
	}

	if rec := doRequest(t, s, "/api/scene-config?scene=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown scene, got %d", rec.Code)
	}
}

func TestHandleFrame(t *testing.T) {
	rec := doRequest(t, newTestServer(), "/api/frame.png?scene=single&width=24&height=16&frames=3")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if samples := rec.Header().Get("X-Samples"); samples != "3" {
		t.Errorf("Expected 3 accumulated samples, got %s", samples)
	}

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 24 || b.Dy() != 16 {
		t.Errorf("Expected 24x16 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestHandleFrame_Deterministic(t *testing.T) {
	s := newTestServer()
	target := "/api/frame.png?scene=default&width=16&height=12&maxBounces=3&seed=9"

	first := doRequest(t, s, target)
	second := doRequest(t, s, target)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d and %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Errorf("Same seed and scene should produce identical images")
	}
}

func TestRenderParams_Invalid(t *testing.T) {
	s := newTestServer()

	targets := []string{
		"/api/frame.png?width=0",
		"/api/frame.png?height=abc",
		"/api/frame.png?maxBounces=-1",
		"/api/frame.png?raysPerPixel=0",
		"/api/frame.png?frames=0",
		"/api/frame.png?seed=-3",
		"/api/frame.png?fov=200",
		"/api/frame.png?scene=unknown",
		"/api/render?frames=-1",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			if rec := doRequest(t, s, target); rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleRender_StreamsFrames(t *testing.T) {
	rec := doRequest(t, newTestServer(), "/api/render?scene=single&width=16&height=12&frames=3")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	body := rec.Body.String()
	if n := strings.Count(body, "event: frame\n"); n != 3 {
		t.Errorf("Expected 3 frame events, got %d", n)
	}
	if !strings.Contains(body, "event: console\n") {
		t.Errorf("Expected console events in stream")
	}
	if !strings.Contains(body, "Starting progressive rendering with 3 frames") {
		t.Errorf("Expected the renderer's own log lines in the console stream")
	}
	if !strings.HasSuffix(body, "event: complete\ndata: Rendering completed\n\n") {
		t.Errorf("Expected the stream to end with a complete event")
	}

	// The last frame update reports completion and three accumulated samples
	var last FrameUpdate
	for _, chunk := range strings.Split(body, "\n\n") {
		if !strings.HasPrefix(chunk, "event: frame\ndata: ") {
			continue
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(chunk, "event: frame\ndata: ")), &last); err != nil {
			t.Fatalf("Invalid frame update: %v", err)
		}
	}
	if !last.IsComplete || last.Stats.Samples != 3 || last.ImageData == "" {
		t.Errorf("Unexpected final update: complete=%t samples=%d image=%d bytes",
			last.IsComplete, last.Stats.Samples, len(last.ImageData))
	}
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name         string
		target       string
		hit          bool
		sphereIndex  int
		materialType string
	}{
		{"center of single sphere", "/api/inspect?scene=single&width=20&height=20&x=10&y=10", true, 0, "diffuse"},
		{"corner misses", "/api/inspect?scene=single&width=20&height=20&x=0&y=0", false, -1, ""},
		{"mirror sphere", "/api/inspect?scene=mirror&width=20&height=20&x=10&y=10", true, 0, "mirror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp InspectResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if resp.Hit != tt.hit || resp.SphereIndex != tt.sphereIndex || resp.MaterialType != tt.materialType {
				t.Errorf("Expected hit=%t index=%d type=%q, got hit=%t index=%d type=%q",
					tt.hit, tt.sphereIndex, tt.materialType, resp.Hit, resp.SphereIndex, resp.MaterialType)
			}
			if resp.Hit && (resp.Distance <= 0 || resp.Normal[2] >= 0) {
				t.Errorf("Expected a front-facing hit in front of the camera, got distance %f normal %v",
					resp.Distance, resp.Normal)
			}
		})
	}
}

func TestHandleInspect_OutOfBounds(t *testing.T) {
	s := newTestServer()

	for _, target := range []string{
		"/api/inspect?scene=single&width=20&height=20&x=20&y=5",
		"/api/inspect?scene=single&width=20&height=20&y=5",
		"/api/inspect?scene=single&width=20&height=20&x=5&y=-1",
	} {
		if rec := doRequest(t, s, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, rec.Code)
		}
	}
}
