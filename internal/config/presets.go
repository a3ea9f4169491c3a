package config

import "fmt"

// Preset is one of the fixed output formats for export. No free-form
// codec/bitrate configuration beyond this table.
type Preset struct {
	Name        string
	Width       int
	Height      int
	BitrateKbps int
}

var presets = []Preset{
	{Name: "720p", Width: 1280, Height: 720, BitrateKbps: 4000},
	{Name: "1080p", Width: 1920, Height: 1080, BitrateKbps: 8000},
	{Name: "vertical", Width: 1080, Height: 1920, BitrateKbps: 8000},
	{Name: "square", Width: 1080, Height: 1080, BitrateKbps: 6000},
}

// PresetByName resolves a preset, failing on unknown names rather than
// guessing
func PresetByName(name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}

// Presets lists the available preset names
func Presets() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}
