package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// ErrInvalidCamera is returned for camera parameters that cannot produce rays.
var ErrInvalidCamera = errors.New("geometry: invalid camera")

// CameraState is the per-frame snapshot of the live camera. It is a
// comparable value so that frames can detect camera movement with ==.
//
// The local-to-world matrix has the camera right, up and forward axes in its
// first three columns and the position in the fourth. Camera space is
// left-handed with +Z pointing forward.
type CameraState struct {
	Position     core.Vec3
	LocalToWorld mgl64.Mat4
	FOV          float64 // Vertical field of view in degrees
	NearClip     float64 // Distance from the camera to the near plane
	Aspect       float64 // Width / height
}

// NewCameraState creates a camera at position looking toward lookAt
func NewCameraState(position, lookAt, up core.Vec3, fov, nearClip, aspect float64) CameraState {
	forward := lookAt.Subtract(position).Normalize()
	right := up.Cross(forward).Normalize()
	trueUp := forward.Cross(right)

	m := mgl64.Mat4FromCols(
		mgl64.Vec4{right.X, right.Y, right.Z, 0},
		mgl64.Vec4{trueUp.X, trueUp.Y, trueUp.Z, 0},
		mgl64.Vec4{forward.X, forward.Y, forward.Z, 0},
		mgl64.Vec4{position.X, position.Y, position.Z, 1},
	)
	return CameraState{
		Position:     position,
		LocalToWorld: m,
		FOV:          fov,
		NearClip:     nearClip,
		Aspect:       aspect,
	}
}

// NewCameraStateFromMatrix creates a camera from a host-supplied local-to-world matrix
func NewCameraStateFromMatrix(localToWorld mgl64.Mat4, fov, nearClip, aspect float64) CameraState {
	pos := localToWorld.Col(3)
	return CameraState{
		Position:     core.NewVec3(pos[0], pos[1], pos[2]),
		LocalToWorld: localToWorld,
		FOV:          fov,
		NearClip:     nearClip,
		Aspect:       aspect,
	}
}

// WithAspect returns a copy whose aspect ratio matches a width x height output
func (c CameraState) WithAspect(width, height int) CameraState {
	if height > 0 {
		c.Aspect = float64(width) / float64(height)
	}
	return c
}

// Validate checks the camera can generate rays
func (c CameraState) Validate() error {
	switch {
	case !(c.Aspect > 0) || math.IsInf(c.Aspect, 0):
		return fmt.Errorf("%w: aspect ratio %v must be positive", ErrInvalidCamera, c.Aspect)
	case !(c.FOV > 0 && c.FOV < 180):
		return fmt.Errorf("%w: field of view %v must be within (0, 180) degrees", ErrInvalidCamera, c.FOV)
	case !(c.NearClip > 0) || math.IsInf(c.NearClip, 0):
		return fmt.Errorf("%w: near clip %v must be positive", ErrInvalidCamera, c.NearClip)
	case !c.Position.IsFinite():
		return fmt.Errorf("%w: non-finite position %v", ErrInvalidCamera, c.Position)
	case !matrixFinite(c.LocalToWorld):
		return fmt.Errorf("%w: non-finite local-to-world matrix", ErrInvalidCamera)
	case !(math.Abs(c.LocalToWorld.Det()) >= 1e-12):
		return fmt.Errorf("%w: singular local-to-world matrix", ErrInvalidCamera)
	}
	return nil
}

func matrixFinite(m mgl64.Mat4) bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ViewParams returns the near plane width, height and distance
func (c CameraState) ViewParams() (width, height, near float64) {
	height = c.NearClip * math.Tan(mgl64.DegToRad(c.FOV)*0.5) * 2
	width = height * c.Aspect
	return width, height, c.NearClip
}

// GenerateRay returns the world-space ray through pixel (x, y) of a
// width x height image, offset inside the pixel by jitter in [0,1)².
func (c CameraState) GenerateRay(x, y, width, height int, jitter core.Vec2) core.Ray {
	planeW, planeH, near := c.ViewParams()

	u := (float64(x)+jitter.X)/float64(width) - 0.5
	v := 0.5 - (float64(y)+jitter.Y)/float64(height)
	local := mgl64.Vec4{u * planeW, v * planeH, near, 1}

	target := c.LocalToWorld.Mul4x1(local)
	world := core.NewVec3(target[0], target[1], target[2])
	return core.NewRay(c.Position, world.Subtract(c.Position))
}

// Project maps a world-space point back to continuous pixel coordinates.
// ok is false for points at or behind the camera plane.
func (c CameraState) Project(point core.Vec3, width, height int) (px, py float64, ok bool) {
	local := c.LocalToWorld.Inv().Mul4x1(mgl64.Vec4{point.X, point.Y, point.Z, 1})
	if local[2] <= 0 {
		return 0, 0, false
	}

	planeW, planeH, near := c.ViewParams()
	scale := near / local[2]
	u := local[0]*scale/planeW + 0.5
	v := 0.5 - local[1]*scale/planeH
	return u * float64(width), v * float64(height), true
}
