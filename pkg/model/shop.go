package model

import "fmt"

// Shop is the admin backend's view of a POI: geo fields plus its Vietnamese translation.
// The JSON shape is the wire format of the admin /api/shops endpoints.
type Shop struct {
	ID           string  `json:"id"`
	ShopName     string  `json:"shopName"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
	Priority     int     `json:"priority"`
	Description  string  `json:"description"`
	AudioURL     string  `json:"audioUrl"`
	TTSText      string  `json:"ttsText"`
}

// MapLink returns the Google Maps link for a coordinate.
func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%v,%v", lat, lon)
}
