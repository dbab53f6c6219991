package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/material"
)

// ErrInvalidSphere is returned by Validate for spheres that cannot be rendered.
var ErrInvalidSphere = errors.New("geometry: invalid sphere")

// Sphere represents a sphere shape. The material is owned by value.
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Material material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, mat material.Material) Sphere {
	return Sphere{
		Center:   center,
		Radius:   radius,
		Material: mat,
	}
}

// SphereFromTransform builds a sphere the way a unit-diameter sphere mesh is
// placed in a scene: the X scale is the diameter.
func SphereFromTransform(position, scale core.Vec3, mat material.Material) Sphere {
	return NewSphere(position, scale.X*0.5, mat)
}

// Validate checks that the sphere has a finite center and a positive finite radius
func (s Sphere) Validate() error {
	if !s.Center.IsFinite() {
		return fmt.Errorf("%w: non-finite center %v", ErrInvalidSphere, s.Center)
	}
	if math.IsNaN(s.Radius) || math.IsInf(s.Radius, 0) || s.Radius <= 0 {
		return fmt.Errorf("%w: radius %v must be positive", ErrInvalidSphere, s.Radius)
	}
	return nil
}

// HitInfo describes the nearest intersection of a ray with the scene
type HitInfo struct {
	DidHit   bool
	Distance float64
	Point    core.Vec3
	Normal   core.Vec3 // Outward unit normal
	Material *material.Material
}

// Hit tests if a ray intersects with the sphere within (tMin, tMax).
// The ray direction must be unit length.
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float64) (HitInfo, bool) {
	// Vector from sphere center to ray origin
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2·halfB·t + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return HitInfo{}, false
	}

	sqrtD := math.Sqrt(discriminant)

	// Try the closer intersection point first
	root := (-halfB - sqrtD) / a
	if !(root > tMin && root < tMax) {
		// Try the farther intersection point
		root = (-halfB + sqrtD) / a
		if !(root > tMin && root < tMax) {
			return HitInfo{}, false
		}
	}

	point := ray.At(root)
	return HitInfo{
		DidHit:   true,
		Distance: root,
		Point:    point,
		Normal:   point.Subtract(s.Center).Multiply(1.0 / s.Radius),
		Material: &s.Material,
	}, true
}
