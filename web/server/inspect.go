package server

import (
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
	"github.com/df07/go-sphere-tracer/pkg/material"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	SphereIndex  int                    `json:"sphereIndex"` // Index into the scene's sphere list, -1 on a miss
	MaterialType string                 `json:"materialType,omitempty"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	Background   [3]float64             `json:"background"` // Environment radiance along the ray
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// InspectResult contains information about the sphere hit by an inspection ray
type InspectResult struct {
	Ray         core.Ray
	Hit         geometry.HitInfo
	SphereIndex int
	Sphere      geometry.Sphere
}

// inspectPixel casts a ray through the center of the pixel and returns the first sphere hit
func inspectPixel(sceneObj *scene.Scene, width, height, pixelX, pixelY int) InspectResult {
	camera := sceneObj.Camera.WithAspect(width, height)
	ray := camera.GenerateRay(pixelX, pixelY, width, height, core.NewVec2(0.5, 0.5))

	store := scene.Snapshot(sceneObj.Spheres, sceneObj.Environment)
	hit := store.Intersect(ray)
	result := InspectResult{Ray: ray, Hit: hit, SphereIndex: -1}
	if !hit.DidHit {
		return result
	}

	// The store only returns the hit record, so find the sphere it came from.
	// Scanning in scene order keeps the tie-break of the store.
	for i, sphere := range sceneObj.Spheres {
		if sphere.Validate() != nil {
			continue
		}
		if sphereHit, ok := sphere.Hit(ray, scene.HitEpsilon, math.Inf(1)); ok && sphereHit.Distance == hit.Distance {
			result.SphereIndex = i
			result.Sphere = sphere
			break
		}
	}
	return result
}

// extractMaterialInfo classifies a material and lists its properties
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := map[string]interface{}{
		"albedo":              vecToArray(mat.Albedo),
		"color":               hexColor(mat.Albedo),
		"roughness":           mat.Roughness,
		"specularProbability": mat.SpecularProbability,
	}

	switch {
	case mat.IsEmissive():
		properties["emission"] = vecToArray(mat.Emitted())
		properties["color"] = hexColor(mat.EmissionColor)
		return "emissive", properties
	case mat.SpecularProbability >= 1:
		return "mirror", properties
	case mat.SpecularProbability > 0:
		return "glossy", properties
	default:
		return "diffuse", properties
	}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(c echo.Context) error {
	req, sceneObj, err := s.parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
	}

	pixelX, err := parseIntParam(c, "x", -1, 0, req.Width-1)
	if err != nil || pixelX < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid x coordinate")
	}
	pixelY, err := parseIntParam(c, "y", -1, 0, req.Height-1)
	if err != nil || pixelY < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid y coordinate")
	}

	if err := sceneObj.Camera.WithAspect(req.Width, req.Height).Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result := inspectPixel(sceneObj, req.Width, req.Height, pixelX, pixelY)
	env := sceneObj.Environment
	if env == nil {
		env = scene.DefaultEnvironment()
	}

	response := InspectResponse{
		Hit:         result.Hit.DidHit,
		SphereIndex: result.SphereIndex,
		Background:  vecToArray(env.Radiance(result.Ray.Direction)),
	}
	if !result.Hit.DidHit {
		return c.JSON(http.StatusOK, response)
	}

	materialType, materialProps := extractMaterialInfo(result.Sphere.Material.Sanitize())
	response.MaterialType = materialType
	response.Point = vecToArray(result.Hit.Point)
	response.Normal = vecToArray(result.Hit.Normal)
	response.Distance = result.Hit.Distance
	response.Properties = map[string]interface{}{
		"material": materialProps,
		"geometry": map[string]interface{}{
			"center": vecToArray(result.Sphere.Center),
			"radius": result.Sphere.Radius,
		},
	}
	return c.JSON(http.StatusOK, response)
}

func vecToArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(v core.Vec3) string {
	channel := func(f float64) int {
		return int(math.Max(0, math.Min(1, f)) * 255)
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(v.X), channel(v.Y), channel(v.Z))
}
