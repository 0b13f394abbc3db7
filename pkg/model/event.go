package model

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventLocationUpdated  EventType = "location_updated"
	EventActivePOIChanged EventType = "active_poi_changed"
	EventNarration        EventType = "narration"
	EventTracking         EventType = "tracking"
	EventPOIsLoaded       EventType = "pois_loaded"
)

// NarrationOutcome describes how a narration attempt ended.
type NarrationOutcome string

const (
	OutcomePlayed     NarrationOutcome = "played"
	OutcomeSuppressed NarrationOutcome = "suppressed"
	OutcomeNoContent  NarrationOutcome = "no_content"
	OutcomeCancelled  NarrationOutcome = "cancelled"
	OutcomeFailed     NarrationOutcome = "failed"
)

// Event is published by the session controller to its subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Location (location_updated)
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`

	// Active POI transition (active_poi_changed)
	PreviousPOIID string `json:"previous_poi_id,omitempty"`
	POIID         string `json:"poi_id,omitempty"`
	POIName       string `json:"poi_name,omitempty"`

	// Narration result (narration)
	Outcome NarrationOutcome `json:"outcome,omitempty"`
	Trigger string           `json:"trigger,omitempty"` // "auto" or "manual"
	Error   string           `json:"error,omitempty"`

	// Status text for the UI (tracking, pois_loaded)
	Status string `json:"status,omitempty"`
	Count  int    `json:"count,omitempty"`
}
