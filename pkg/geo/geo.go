// Package geo provides the geodesic helpers used by the geofence engine and the location sources.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for all distance calculations.
const EarthRadiusMeters = 6371000

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func deg(r float64) float64 { return r * 180 / math.Pi }

// Distance returns the great-circle (haversine) distance between a and b in meters.
func Distance(a, b Point) float64 {
	phi1, phi2 := rad(a.Lat), rad(b.Lat)
	sinLat := math.Sin(rad(b.Lat-a.Lat) / 2)
	sinLon := math.Sin(rad(b.Lon-a.Lon) / 2)

	h := sinLat*sinLat + math.Cos(phi1)*math.Cos(phi2)*sinLon*sinLon
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DestinationPoint walks distMeters from start along the initial bearing (degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	delta := distMeters / EarthRadiusMeters
	phi1, lambda1, theta := rad(start.Lat), rad(start.Lon), rad(bearing)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)
	return Point{Lat: deg(phi2), Lon: deg(lambda2)}
}

// Bearing returns the initial bearing from a to b in degrees, 0..360.
func Bearing(a, b Point) float64 {
	phi1, phi2 := rad(a.Lat), rad(b.Lat)
	dLambda := rad(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return math.Mod(deg(math.Atan2(y, x))+360, 360)
}

// Valid reports whether the point lies within the WGS-84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
