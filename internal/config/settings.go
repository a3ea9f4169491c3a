package config

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TransitionStyle selects how consecutive slides hand over the screen.
type TransitionStyle string

const (
	StylePlain     TransitionStyle = "plain"
	StyleCrossfade TransitionStyle = "crossfade"
	StyleZoom      TransitionStyle = "zoom"
	StylePanZoom   TransitionStyle = "pan-zoom"
)

// ColorGrade is applied per-quad during scene composition.
type ColorGrade string

const (
	GradeNone  ColorGrade = "none"
	GradeMono  ColorGrade = "mono"
	GradeSepia ColorGrade = "sepia"
	GradeVivid ColorGrade = "vivid"
)

// PostEffect is the optional whole-frame second pass.
type PostEffect string

const (
	PostNone PostEffect = "none"
	PostFilm PostEffect = "film"
	PostTape PostEffect = "tape"
)

// DefaultTransitionSeconds is the fixed transition overlap between slides.
const DefaultTransitionSeconds = 2.0

// MusicSettings selects background music for export.
type MusicSettings struct {
	Path   string `yaml:"path"`
	Volume int    `yaml:"volume"` // 0-100
}

// Settings is the immutable per-session snapshot. A play or export run
// captures one by value; the render loop never reads live mutable state.
type Settings struct {
	Style           TransitionStyle `yaml:"style"`
	SlideDuration   float64         `yaml:"slide_duration"`
	Transition      float64         `yaml:"transition"`
	PlayVideoInFull bool            `yaml:"play_video_in_full"`
	PlayVideoAudio  bool            `yaml:"play_video_audio"`
	ZoomOnFaces     bool            `yaml:"zoom_on_faces"`
	Grade           ColorGrade      `yaml:"color_grade"`
	Post            PostEffect      `yaml:"post_effect"`
	Background      string          `yaml:"background"` // hex, e.g. "#000000"
	Music           MusicSettings   `yaml:"music"`
}

// DefaultSettings returns the baseline snapshot
func DefaultSettings() Settings {
	return Settings{
		Style:           StyleCrossfade,
		SlideDuration:   5.0,
		Transition:      DefaultTransitionSeconds,
		PlayVideoInFull: true,
		PlayVideoAudio:  true,
		ZoomOnFaces:     true,
		Grade:           GradeNone,
		Post:            PostNone,
		Background:      "#000000",
		Music:           MusicSettings{Volume: 60},
	}
}

// LoadSettings reads a settings profile from yaml, filling defaults first
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, err
	}

	return s, s.Validate()
}

// Save writes the settings profile to file
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects snapshots that would produce a degenerate timeline
func (s Settings) Validate() error {
	switch s.Style {
	case StylePlain, StyleCrossfade, StyleZoom, StylePanZoom:
	default:
		return fmt.Errorf("unknown transition style %q", s.Style)
	}
	if s.SlideDuration <= 0 {
		return fmt.Errorf("slide duration must be positive, got %.2f", s.SlideDuration)
	}
	if s.Transition < 0 {
		return fmt.Errorf("transition duration cannot be negative")
	}
	if s.Music.Volume < 0 || s.Music.Volume > 100 {
		return fmt.Errorf("music volume must be 0-100, got %d", s.Music.Volume)
	}
	switch s.Grade {
	case GradeNone, GradeMono, GradeSepia, GradeVivid:
	default:
		return fmt.Errorf("unknown color grade %q", s.Grade)
	}
	switch s.Post {
	case PostNone, PostFilm, PostTape:
	default:
		return fmt.Errorf("unknown post effect %q", s.Post)
	}
	return nil
}

// Motion reports whether the style animates scale and pan
func (s Settings) Motion() bool {
	return s.Style == StyleZoom || s.Style == StylePanZoom
}

// BackgroundColor parses the background hex string, defaulting to black
func (s Settings) BackgroundColor() color.NRGBA {
	hex := strings.TrimPrefix(s.Background, "#")
	if len(hex) != 6 {
		return color.NRGBA{A: 0xff}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
