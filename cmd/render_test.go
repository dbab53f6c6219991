package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-sphere-tracer/pkg/log"
	"github.com/df07/go-sphere-tracer/pkg/renderer"
)

func TestDisplayFrameStats(t *testing.T) {
	var buf bytes.Buffer
	log.SetSink(&buf)
	defer log.SetSink(os.Stdout)

	stats := []renderer.FrameStats{
		{FrameIndex: 0, Samples: 1, RaysTraced: 100, MeanLuminance: 0.25, Reset: true, Duration: 3 * time.Millisecond},
		{FrameIndex: 1, Samples: 2, RaysTraced: 150, MeanLuminance: 0.3, ExcludedSpheres: 1, Duration: 2 * time.Millisecond},
	}
	displayFrameStats(stats, 5*time.Millisecond)

	out := buf.String()
	for _, want := range []string{"frame statistics", "Mean luminance", "1 (reset)", "0.3000", "250", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in stats output:\n%s", want, out)
		}
	}
}
