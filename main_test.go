package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"render", "scenes", "serve"} {
		if app.Command(name) == nil {
			t.Errorf("Expected command %q", name)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name  string
		scene string
		out   string
	}{
		{"built-in scene", "single", "single.png"},
		{"scene directory by name", "glossy-trio", "trio.png"},
		{"scene file path", "scenes/glossy-trio.yaml", "nested/trio.tiff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), tt.out)
			args := []string{"sphere-tracer", "render",
				"--width", "24", "--height", "16", "--frames", "2", "--bounces", "2", "--spp", "1",
				"--workers", "2", "--tile-size", "8", "--out", out, tt.scene}

			if err := newApp().Run(args); err != nil {
				t.Fatalf("render failed: %v", err)
			}

			if _, err := os.Stat(out); err != nil {
				t.Fatalf("Expected output image %s: %v", out, err)
			}
		})
	}
}

func TestRenderCommand_ImageSize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mirror.png")
	args := []string{"sphere-tracer", "render", "--width", "20", "--height", "10", "--frames", "1", "--out", out, "mirror"}
	if err := newApp().Run(args); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("Expected 20x10 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing scene", []string{"sphere-tracer", "render"}},
		{"unknown scene", []string{"sphere-tracer", "render", "nonexistent"}},
		{"missing scene file", []string{"sphere-tracer", "render", "scenes/nonexistent.yaml"}},
		{"negative bounces", []string{"sphere-tracer", "render", "--bounces", "-1", "--frames", "1", "single"}},
		{"invalid tile size", []string{"sphere-tracer", "render", "--tile-size", "0", "single"}},
		{"missing source image", []string{"sphere-tracer", "render", "--source", "missing.png", "single"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newApp().Run(tt.args); err == nil {
				t.Errorf("Expected an error for %v", tt.args)
			}
		})
	}
}

func TestScenesCommand(t *testing.T) {
	if err := newApp().Run([]string{"sphere-tracer", "scenes"}); err != nil {
		t.Errorf("scenes failed: %v", err)
	}
}
