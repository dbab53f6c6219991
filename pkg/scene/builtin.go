package scene

import (
	"fmt"
	"sort"
)

// BuiltinGroup is the group every built-in scene is listed under
const BuiltinGroup = "Built-in Scenes"

var builtins = map[string]struct {
	description string
	create      func() *Scene
}{
	"default":    {"Spheres on a ground sphere under a horizon sky", NewDefaultScene},
	"single":     {"One diffuse sphere at the origin", NewSingleSphereScene},
	"mirror":     {"Mirror sphere reflecting an emitter behind the camera", NewMirrorScene},
	"spheregrid": {"Grid of glossy colored spheres", NewSphereGridScene},
}

// ListBuiltin returns the built-in scenes sorted by ID
func ListBuiltin() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtins))
	for id, b := range builtins {
		scenes = append(scenes, SceneInfo{
			ID:          id,
			Name:        titleCase(id),
			DisplayName: titleCase(id),
			Description: b.description,
			Group:       BuiltinGroup,
			Type:        "builtin",
		})
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}

// NewBuiltin creates a fresh copy of the named built-in scene
func NewBuiltin(id string) (*Scene, error) {
	b, ok := builtins[id]
	if !ok {
		return nil, fmt.Errorf("unknown scene: %q", id)
	}
	return b.create(), nil
}
