package model

import "time"

// PlaybackRecord is the ledger entry of the last successful playback of a POI.
type PlaybackRecord struct {
	POIID        string    `json:"poi_id"`
	LastPlayedAt time.Time `json:"last_played_at"`
	LastLanguage string    `json:"last_language"`
	PlayCount    int       `json:"play_count"`
}
