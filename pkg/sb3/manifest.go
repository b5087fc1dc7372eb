// Package sb3 understands the project bundle format: a zip of the
// project manifest (project.json) plus every costume and sound file the
// manifest references.
package sb3

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/scratch"
)

// Asset is one costume or sound entry in a manifest. The file name on
// the asset service is md5ext when present, otherwise assetId plus the
// data format extension.
type Asset struct {
	AssetID    string `json:"assetId"`
	Name       string `json:"name"`
	MD5Ext     string `json:"md5ext"`
	DataFormat string `json:"dataFormat"`
}

// Target is one sprite or the stage.
type Target struct {
	Name     string  `json:"name"`
	IsStage  bool    `json:"isStage"`
	Costumes []Asset `json:"costumes"`
	Sounds   []Asset `json:"sounds"`
}

// Manifest is the parsed shape of project.json, reduced to the parts
// needed for bundling.
type Manifest struct {
	Targets []Target `json:"targets"`
}

// Parse decodes a raw project manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing project manifest: %w", err)
	}
	return &m, nil
}

// FileName returns the asset's file name on the asset service.
// Costumes without a format default to svg, sounds to wav, matching
// what the editor itself assumes.
func (a Asset) FileName(isSound bool) string {
	if a.MD5Ext != "" {
		return a.MD5Ext
	}
	if a.AssetID == "" {
		return ""
	}
	format := a.DataFormat
	if format == "" {
		if isSound {
			format = "wav"
		} else {
			format = "svg"
		}
	}
	return a.AssetID + "." + format
}

// AssetFiles returns the deduplicated, validated file names of every
// asset the manifest references, in stable order. Entries that do not
// look like md5-named files are skipped rather than fetched.
func (m *Manifest) AssetFiles() []string {
	seen := make(map[string]struct{})
	var names []string

	add := func(name string) {
		if name == "" || !scratch.IsValidAssetName(name) {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, t := range m.Targets {
		for _, costume := range t.Costumes {
			add(costume.FileName(false))
		}
		for _, sound := range t.Sounds {
			add(sound.FileName(true))
		}
	}

	sort.Strings(names)
	return names
}
