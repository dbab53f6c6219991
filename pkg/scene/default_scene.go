package scene

import (
	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/material"
)

// NewDefaultScene creates a small sphere arrangement on a huge ground sphere,
// lit by an emissive sphere and a horizon sky.
func NewDefaultScene() *Scene {
	cfg := DefaultSamplingConfig()

	s := &Scene{
		Name:   "default",
		Camera: newCamera(core.NewVec3(0, 1.2, -6), core.NewVec3(0, 0.6, 0), 40, cfg),
		Environment: HorizonSky{
			GroundColor:  core.NewVec3(0.35, 0.3, 0.35),
			HorizonColor: core.NewVec3(1.0, 1.0, 1.0),
			ZenithColor:  core.NewVec3(0.08, 0.37, 0.73),
			SunDirection: core.NewVec3(-0.4, 0.8, -0.5),
			SunFocus:     500,
			SunIntensity: 10,
		},
		SamplingConfig: cfg,
	}

	ground := material.NewDiffuse(core.NewVec3(0.45, 0.55, 0.45))
	red := material.NewDiffuse(core.NewVec3(0.8, 0.25, 0.2))
	blue := material.NewDiffuse(core.NewVec3(0.15, 0.3, 0.75))
	chrome := material.NewMirror(core.NewVec3(0.9, 0.9, 0.9), 0.0)
	satin := material.NewDiffuse(core.NewVec3(0.9, 0.75, 0.3))
	satin.SpecularProbability = 0.3
	satin.Roughness = 0.2
	lamp := material.NewEmissive(core.NewVec3(1.0, 0.9, 0.75), 6)

	s.AddSphere(geometry.NewSphere(core.NewVec3(0, -1000, 0), 1000, ground))
	s.AddSphere(geometry.NewSphere(core.NewVec3(-1.6, 0.6, 0.4), 0.6, red))
	s.AddSphere(geometry.NewSphere(core.NewVec3(0, 0.8, 0), 0.8, chrome))
	s.AddSphere(geometry.NewSphere(core.NewVec3(1.5, 0.5, -0.3), 0.5, blue))
	s.AddSphere(geometry.NewSphere(core.NewVec3(0.7, 0.25, -1.3), 0.25, satin))
	s.AddSphere(geometry.NewSphere(core.NewVec3(-3, 4, 2), 1.2, lamp))

	return s
}

// NewSingleSphereScene creates one diffuse sphere at the origin seen from (0,0,-5)
func NewSingleSphereScene() *Scene {
	cfg := DefaultSamplingConfig()
	cfg.MaxBounces = 1
	cfg.RaysPerPixel = 1

	s := &Scene{
		Name:           "single",
		Camera:         newCamera(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 0), 60, cfg),
		Environment:    DefaultEnvironment(),
		SamplingConfig: cfg,
	}
	s.AddSphere(geometry.NewSphere(core.NewVec3(0, 0, 0), 1, material.NewDiffuse(core.NewVec3(0.7, 0.7, 0.7))))
	return s
}

// NewMirrorScene places a perfect mirror in view and a bright emitter behind
// the camera. The emitter can only be seen in the reflection, which needs
// at least two bounces.
func NewMirrorScene() *Scene {
	cfg := DefaultSamplingConfig()
	cfg.MaxBounces = 2

	s := &Scene{
		Name:           "mirror",
		Camera:         newCamera(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 0), 60, cfg),
		Environment:    Black,
		SamplingConfig: cfg,
	}
	s.AddSphere(geometry.NewSphere(core.NewVec3(0, 0, 0), 1, material.NewMirror(core.NewVec3(0.95, 0.95, 0.95), 0)))
	s.AddSphere(geometry.NewSphere(core.NewVec3(0, 0, -12), 4, material.NewEmissive(core.NewVec3(1, 0.95, 0.9), 5)))
	return s
}
