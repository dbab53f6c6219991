package core

import (
	"math"
	"testing"
)

func TestVec3_Reflect(t *testing.T) {
	tests := []struct {
		name     string
		incoming Vec3
		normal   Vec3
		expected Vec3
	}{
		{
			name:     "Head-on reflection",
			incoming: NewVec3(0, 0, 1),
			normal:   NewVec3(0, 0, -1),
			expected: NewVec3(0, 0, -1),
		},
		{
			name:     "45 degree reflection off floor",
			incoming: NewVec3(1, -1, 0).Normalize(),
			normal:   NewVec3(0, 1, 0),
			expected: NewVec3(1, 1, 0).Normalize(),
		},
		{
			name:     "Grazing direction is unchanged",
			incoming: NewVec3(1, 0, 0),
			normal:   NewVec3(0, 1, 0),
			expected: NewVec3(1, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.incoming.Reflect(tt.normal)

			const tolerance = 1e-9
			if result.Subtract(tt.expected).Length() > tolerance {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVec3_IsFinite(t *testing.T) {
	tests := []struct {
		name     string
		vector   Vec3
		expected bool
	}{
		{"Regular vector", NewVec3(1, -2, 3), true},
		{"NaN component", NewVec3(math.NaN(), 0, 0), false},
		{"Positive infinity", NewVec3(0, math.Inf(1), 0), false},
		{"Negative infinity", NewVec3(0, 0, math.Inf(-1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vector.IsFinite(); got != tt.expected {
				t.Errorf("IsFinite(%v) = %t, expected %t", tt.vector, got, tt.expected)
			}
		})
	}
}

func TestVec3_Lerp(t *testing.T) {
	a := NewVec3(0, 0, 0)
	b := NewVec3(2, 4, 6)

	mid := a.Lerp(b, 0.5)
	if mid != NewVec3(1, 2, 3) {
		t.Errorf("Expected midpoint (1,2,3), got %v", mid)
	}
	if a.Lerp(b, 0) != a {
		t.Errorf("Lerp at t=0 should return the start vector")
	}
	if a.Lerp(b, 1) != b {
		t.Errorf("Lerp at t=1 should return the end vector")
	}
}

func TestNewRay_NormalizesDirection(t *testing.T) {
	ray := NewRay(NewVec3(1, 2, 3), NewVec3(0, 0, 10))

	if math.Abs(ray.Direction.Length()-1.0) > 1e-12 {
		t.Errorf("Expected unit direction, got length %f", ray.Direction.Length())
	}

	point := ray.At(2)
	expected := NewVec3(1, 2, 5)
	if point.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected At(2) = %v, got %v", expected, point)
	}
}

func TestVec3_Luminance(t *testing.T) {
	white := NewVec3(1, 1, 1)
	if math.Abs(white.Luminance()-1.0) > 1e-9 {
		t.Errorf("Expected white luminance 1.0, got %f", white.Luminance())
	}
	if NewVec3(0, 0, 0).Luminance() != 0 {
		t.Errorf("Expected black luminance 0")
	}
}
