package renderer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
)

func testKey() FrameKey {
	camera := geometry.NewCameraState(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0), 60, 0.3, 2)
	return FrameKey{Width: 2, Height: 1, Camera: camera, SceneFingerprint: 1}
}

func TestAccumulator_RunningMean(t *testing.T) {
	acc := NewAccumulator(nil)
	key := testKey()

	frames := [][]core.Vec3{
		{core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 0)},
		{core.NewVec3(0, 1, 0), core.NewVec3(2, 2, 2)},
		{core.NewVec3(0, 0, 1), core.NewVec3(4, 4, 4)},
	}

	var output []core.Vec3
	for i, frame := range frames {
		var n int
		var reset bool
		var err error
		output, n, reset, err = acc.Blend(frame, key)
		if err != nil {
			t.Fatalf("Blend failed: %v", err)
		}
		if n != i+1 {
			t.Errorf("Frame %d: expected n=%d, got %d", i, i+1, n)
		}
		if reset != (i == 0) {
			t.Errorf("Frame %d: unexpected reset=%t", i, reset)
		}
	}

	expected := []core.Vec3{core.NewVec3(1.0/3, 1.0/3, 1.0/3), core.NewVec3(2, 2, 2)}
	for i := range expected {
		if output[i].Subtract(expected[i]).Length() > 1e-12 {
			t.Errorf("Pixel %d: expected %v, got %v", i, expected[i], output[i])
		}
	}
}

func TestAccumulator_ResetOnKeyChange(t *testing.T) {
	key := testKey()
	moved := key
	moved.Camera = geometry.NewCameraState(core.NewVec3(0, 0, -4.9), core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0), 60, 0.3, 2)
	rescene := key
	rescene.SceneFingerprint = 2

	tests := []struct {
		name string
		key  FrameKey
	}{
		{"camera moved", moved},
		{"scene changed", rescene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(nil)
			for i := 0; i < 4; i++ {
				if _, _, _, err := acc.Blend([]core.Vec3{core.NewVec3(1, 1, 1), core.NewVec3(1, 1, 1)}, key); err != nil {
					t.Fatalf("Blend failed: %v", err)
				}
			}

			current := []core.Vec3{core.NewVec3(5, 5, 5), core.NewVec3(7, 7, 7)}
			output, n, reset, err := acc.Blend(current, tt.key)
			if err != nil {
				t.Fatalf("Blend failed: %v", err)
			}
			if !reset || n != 1 {
				t.Errorf("Expected reset with n=1, got reset=%t n=%d", reset, n)
			}
			for i := range current {
				if output[i] != current[i] {
					t.Errorf("Pixel %d: expected history discarded, got %v", i, output[i])
				}
			}
		})
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator(nil)
	key := testKey()
	buf := []core.Vec3{core.NewVec3(1, 1, 1), core.NewVec3(1, 1, 1)}

	acc.Blend(buf, key)
	acc.Blend(buf, key)
	acc.Reset()
	if acc.Samples() != 0 {
		t.Errorf("Expected 0 samples after Reset, got %d", acc.Samples())
	}

	_, n, reset, _ := acc.Blend(buf, key)
	if !reset || n != 1 {
		t.Errorf("Expected fresh history after Reset, got reset=%t n=%d", reset, n)
	}
}

func TestAccumulator_FailedAllocationKeepsHistory(t *testing.T) {
	acc := NewAccumulator(LimitGuard(2 * 24))
	key := testKey()

	if _, _, _, err := acc.Blend([]core.Vec3{core.NewVec3(1, 1, 1), core.NewVec3(2, 2, 2)}, key); err != nil {
		t.Fatalf("Blend failed: %v", err)
	}

	bigKey := key
	bigKey.Width = 4
	if _, _, _, err := acc.Blend(make([]core.Vec3, 4), bigKey); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("Expected ErrResourceExhausted, got %v", err)
	}

	if acc.Samples() != 1 {
		t.Errorf("Failed blend changed the sample count to %d", acc.Samples())
	}
	if got, ok := acc.Key(); !ok || got != key {
		t.Errorf("Failed blend changed the key")
	}

	output, n, reset, err := acc.Blend([]core.Vec3{core.NewVec3(3, 3, 3), core.NewVec3(4, 4, 4)}, key)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	if reset || n != 2 {
		t.Errorf("Expected history to continue, got reset=%t n=%d", reset, n)
	}
	if output[0] != core.NewVec3(2, 2, 2) || output[1] != core.NewVec3(3, 3, 3) {
		t.Errorf("Unexpected blended history %v", output)
	}
}

func TestAccumulator_VarianceShrinks(t *testing.T) {
	// Each frame is one noisy sample per pixel; the accumulated error must fall like 1/k
	const pixels = 2000
	sampler := core.NewPCGSampler(core.StreamKey{Seed: 11})
	acc := NewAccumulator(nil)
	key := FrameKey{Width: pixels, Height: 1, SceneFingerprint: 3}

	frame := make([]core.Vec3, pixels)
	variances := map[int]float64{}
	values := make([]float64, pixels)
	for k := 1; k <= 64; k++ {
		for i := range frame {
			v := sampler.Get1D()
			frame[i] = core.NewVec3(v, v, v)
		}
		output, _, _, err := acc.Blend(frame, key)
		if err != nil {
			t.Fatalf("Blend failed: %v", err)
		}
		if k == 1 || k == 4 || k == 64 {
			for i := range output {
				values[i] = output[i].X
			}
			_, variances[k] = stat.MeanVariance(values, nil)
		}
	}

	// Uniform [0,1) has variance 1/12
	for _, k := range []int{1, 4, 64} {
		expected := 1.0 / 12.0 / float64(k)
		if math.Abs(variances[k]-expected) > expected*0.15 {
			t.Errorf("After %d frames: expected variance ~%.5f, got %.5f", k, expected, variances[k])
		}
	}
}
