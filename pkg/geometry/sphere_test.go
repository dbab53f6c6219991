package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/material"
)

func TestSphere_Hit_Miss(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, material.Default())
	ray := core.NewRay(core.NewVec3(2, 0, 0), core.NewVec3(0, 1, 0))

	hit, isHit := sphere.Hit(ray, 0.001, 1000.0)
	if isHit {
		t.Errorf("Expected miss, but got hit at t=%f", hit.Distance)
	}
}

func TestSphere_Hit_OutsideAndInside(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, material.Default())

	tests := []struct {
		name           string
		rayOrigin      core.Vec3
		rayDirection   core.Vec3
		expectedT      float64
		expectedNormal core.Vec3
	}{
		{
			name:           "hit from outside",
			rayOrigin:      core.NewVec3(0, 0, -5),
			rayDirection:   core.NewVec3(0, 0, 1),
			expectedT:      4.0,
			expectedNormal: core.NewVec3(0, 0, -1),
		},
		{
			name:           "hit from inside returns far root",
			rayOrigin:      core.NewVec3(0, 0, 0),
			rayDirection:   core.NewVec3(0, 0, 1),
			expectedT:      1.0,
			expectedNormal: core.NewVec3(0, 0, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.rayOrigin, tt.rayDirection)
			hit, isHit := sphere.Hit(ray, 0.001, 1000.0)

			if !isHit || !hit.DidHit {
				t.Fatal("Expected hit, but got miss")
			}
			if math.Abs(hit.Distance-tt.expectedT) > 1e-9 {
				t.Errorf("Expected t=%f, got t=%f", tt.expectedT, hit.Distance)
			}
			if hit.Normal.Subtract(tt.expectedNormal).Length() > 1e-9 {
				t.Errorf("Expected normal %v, got %v", tt.expectedNormal, hit.Normal)
			}
			if hit.Material != &sphere.Material {
				t.Errorf("Expected hit to reference the sphere's material")
			}
		})
	}
}

func TestSphere_Hit_Bounds(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, material.Default())
	ray := core.NewRay(core.NewVec3(0, 0, 2), core.NewVec3(0, 0, -1))

	hit, isHit := sphere.Hit(ray, 0.001, 0.5)
	if isHit {
		t.Errorf("Expected miss due to tMax bound, but got hit at t=%f", hit.Distance)
	}

	hit, isHit = sphere.Hit(ray, 3.5, 1000.0)
	if isHit {
		t.Errorf("Expected miss due to tMin bound, but got hit at t=%f", hit.Distance)
	}
}

func TestSphere_Hit_BehindRay(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, -5), 1.0, material.Default())
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))

	if _, isHit := sphere.Hit(ray, 0.001, math.Inf(1)); isHit {
		t.Errorf("Sphere behind the ray origin must not be hit")
	}
}

func TestSphere_Hit_NonFiniteRayMisses(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, material.Default())
	nan := math.NaN()

	rays := []struct {
		name string
		ray  core.Ray
	}{
		{"NaN origin", core.Ray{Origin: core.NewVec3(nan, 0, -5), Direction: core.NewVec3(0, 0, 1)}},
		{"NaN direction", core.Ray{Origin: core.NewVec3(0, 0, -5), Direction: core.NewVec3(0, nan, 1)}},
	}

	for _, tt := range rays {
		t.Run(tt.name, func(t *testing.T) {
			if hit, isHit := sphere.Hit(tt.ray, 0.001, math.Inf(1)); isHit || hit.DidHit {
				t.Errorf("Expected miss for a non-finite ray, got hit at t=%f", hit.Distance)
			}
		})
	}
}

func TestSphere_Hit_PointLiesOnSurface(t *testing.T) {
	sampler := core.NewPCGSampler(core.StreamKey{Seed: 11})

	for i := 0; i < 500; i++ {
		center := core.NewVec3(sampler.Get1D()*4-2, sampler.Get1D()*4-2, sampler.Get1D()*4+3)
		radius := 0.1 + sampler.Get1D()*2
		sphere := NewSphere(center, radius, material.Default())

		origin := core.NewVec3(0, 0, -5)
		target := center.Add(core.SampleOnUnitSphere(sampler.Get2D()).Multiply(radius * 1.5))
		ray := core.NewRay(origin, target.Subtract(origin))

		hit, isHit := sphere.Hit(ray, 1e-4, math.Inf(1))
		if !isHit {
			continue
		}
		dist := ray.Origin.Add(ray.Direction.Multiply(hit.Distance)).Subtract(center).Length()
		if math.Abs(dist-radius) > 1e-6 {
			t.Fatalf("Hit at t=%f is %f from center, expected radius %f", hit.Distance, dist, radius)
		}
		if math.Abs(hit.Normal.Length()-1) > 1e-9 {
			t.Fatalf("Expected unit normal, got %v", hit.Normal)
		}
	}
}

func TestSphere_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sphere  Sphere
		wantErr bool
	}{
		{"valid", NewSphere(core.NewVec3(0, 0, 0), 1, material.Default()), false},
		{"zero radius", NewSphere(core.NewVec3(0, 0, 0), 0, material.Default()), true},
		{"negative radius", NewSphere(core.NewVec3(0, 0, 0), -1, material.Default()), true},
		{"NaN radius", NewSphere(core.NewVec3(0, 0, 0), math.NaN(), material.Default()), true},
		{"infinite center", NewSphere(core.NewVec3(math.Inf(1), 0, 0), 1, material.Default()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sphere.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSphere) {
					t.Errorf("Expected ErrInvalidSphere, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSphereFromTransform(t *testing.T) {
	s := SphereFromTransform(core.NewVec3(1, 2, 3), core.NewVec3(4, 4, 4), material.Default())
	if s.Radius != 2 {
		t.Errorf("Expected radius 2 from scale 4, got %f", s.Radius)
	}
	if s.Center != core.NewVec3(1, 2, 3) {
		t.Errorf("Expected center (1,2,3), got %v", s.Center)
	}
}
