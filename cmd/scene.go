package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-sphere-tracer/pkg/loaders"
	"github.com/df07/go-sphere-tracer/pkg/scene"
)

// Directory searched for YAML scenes referenced by name
var sceneDir = "scenes"

// createScene resolves a scene argument: a path to a YAML scene file, a
// built-in scene ID, or the name of a YAML file in the scene directory.
func createScene(name string) (*scene.Scene, error) {
	return loaders.ResolveScene(name, sceneDir)
}

// createOutputDir returns the directory renders of a scene are written to
func createOutputDir(name string) string {
	base := filepath.Base(name)
	if loaders.IsSceneFile(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = strings.TrimPrefix(base, "file:")
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "scene"
	}
	return filepath.Join("output", base)
}

// ListScenes displays the built-in scenes and the YAML scenes found in the scene directory.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	response, err := scene.ListAllScenes(sceneDir)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Group", "Scene", "Name", "Spheres", "Description"})

	total := 0
	for _, group := range response.Groups {
		for _, info := range group.Scenes {
			spheres := "?"
			if s, err := createScene(sceneRef(info)); err != nil {
				logger.Warningf("%s: %v", info.ID, err)
			} else {
				spheres = fmt.Sprintf("%d", s.GetPrimitiveCount())
			}
			table.Append([]string{group.Name, info.ID, info.DisplayName, spheres, info.Description})
			total++
		}
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d", total)})

	table.Render()
	logger.Noticef("available scenes\n%s", buf.String())
	return nil
}

// sceneRef returns the argument that renders the listed scene
func sceneRef(info scene.SceneInfo) string {
	if info.FilePath != "" {
		return info.FilePath
	}
	return info.ID
}
