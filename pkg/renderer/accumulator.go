package renderer

import (
	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
)

// FrameKey captures everything that invalidates accumulated history when it changes
type FrameKey struct {
	Width            int
	Height           int
	Camera           geometry.CameraState
	SceneFingerprint uint64
}

// Accumulator keeps a running mean of frames rendered under the same FrameKey
type Accumulator struct {
	history *core.BufferCache[core.Vec3]
	n       int
	key     FrameKey
	valid   bool
}

// NewAccumulator creates an empty accumulator whose history allocations are approved by check
func NewAccumulator(check core.AllocCheck) *Accumulator {
	return &Accumulator{history: core.NewBufferCache[core.Vec3](check)}
}

// Blend folds current into the history:
//
//	output = history*(n/(n+1)) + current/(n+1)
//
// If key differs from the previous frame's key, or after Reset, the history is
// discarded first and output equals current. The returned slice is the history
// itself and is overwritten by the next Blend. On error nothing is modified.
func (a *Accumulator) Blend(current []core.Vec3, key FrameKey) (output []core.Vec3, n int, reset bool, err error) {
	reset = !a.valid || key != a.key
	history, err := a.history.Acquire(len(current))
	if err != nil {
		return nil, a.n, false, err
	}

	count := a.n
	if reset {
		count = 0
	}

	keep := float64(count) / float64(count+1)
	add := 1.0 / float64(count+1)
	for i := range current {
		if count == 0 {
			history[i] = current[i]
			continue
		}
		history[i] = history[i].Multiply(keep).Add(current[i].Multiply(add))
	}

	a.n = count + 1
	a.key = key
	a.valid = true
	return history, a.n, reset, nil
}

// Reset forces the next Blend to start a fresh history
func (a *Accumulator) Reset() {
	a.valid = false
	a.n = 0
}

// Samples returns how many frames the current history averages
func (a *Accumulator) Samples() int {
	return a.n
}

// Key returns the key of the last blended frame
func (a *Accumulator) Key() (FrameKey, bool) {
	return a.key, a.valid
}
