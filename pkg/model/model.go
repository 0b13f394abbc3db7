package model

import (
	"strings"
)

const (
	// DefaultRadiusMeters is the geofence radius used when none is configured.
	DefaultRadiusMeters = 40.0
	// DefaultLanguage is the language narration is authored in unless stated otherwise.
	DefaultLanguage = "vi"
)

// POI represents a Point of Interest in the food street.
// Geo, radius, priority and audio fields are language independent;
// Name, Description and Narration come from the translation for Language.
type POI struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Coordinates
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Geofence
	RadiusMeters float64 `json:"radius_meters"`
	Priority     int     `json:"priority"`

	// Content
	Narration string `json:"narration"` // Text for TTS
	AudioURL  string `json:"audio_url"` // Pre-recorded audio, wins over Narration
	Language  string `json:"language"`  // Locale the translation was authored in

	ImageURL string `json:"image_url,omitempty"`
	MapLink  string `json:"map_link,omitempty"`
}

// HasPlayableContent reports whether the POI has anything to narrate.
func (p *POI) HasPlayableContent() bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.Narration) != "" || strings.TrimSpace(p.AudioURL) != ""
}

// HasAudio reports whether the POI carries a pre-recorded audio resource.
func (p *POI) HasAudio() bool {
	return p != nil && strings.TrimSpace(p.AudioURL) != ""
}

// DisplayName returns the best available name for the POI.
func (p *POI) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// NarrationLanguage returns the language of the narration, falling back to DefaultLanguage.
func (p *POI) NarrationLanguage() string {
	if l := strings.TrimSpace(p.Language); l != "" {
		return l
	}
	return DefaultLanguage
}

// NormalizeLanguage lower-cases and trims a language code. Empty input yields DefaultLanguage.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return DefaultLanguage
	}
	return code
}
