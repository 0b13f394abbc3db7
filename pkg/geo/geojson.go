package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"foodstreet/pkg/model"
)

// POIFeatureCollection renders POIs as a GeoJSON FeatureCollection.
// Each feature carries the geofence radius and priority so map clients can draw the trigger circle.
// The collection's bbox covers all POIs so clients can fit the map to it.
// states may be nil; when present it adds the runtime distance and active flag per POI id.
func POIFeatureCollection(pois []model.POI, states map[string]model.RuntimeState) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range pois {
		p := &pois[i]
		f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
		f.ID = p.ID
		f.Properties["id"] = p.ID
		f.Properties["name"] = p.Name
		f.Properties["description"] = p.Description
		f.Properties["radius_meters"] = p.RadiusMeters
		f.Properties["priority"] = p.Priority
		f.Properties["language"] = p.Language
		f.Properties["has_audio"] = p.HasAudio()
		f.Properties["playable"] = p.HasPlayableContent()
		if p.ImageURL != "" {
			f.Properties["image_url"] = p.ImageURL
		}
		if st, ok := states[p.ID]; ok {
			if st.DistanceKnown() {
				f.Properties["distance_meters"] = st.DistanceMeters
			}
			f.Properties["is_active"] = st.IsActive
		}
		fc.Append(f)
	}
	if b, ok := Bounds(pois); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}

// Bounds returns the bounding box of all POIs, or false when the list is empty.
func Bounds(pois []model.POI) (orb.Bound, bool) {
	if len(pois) == 0 {
		return orb.Bound{}, false
	}
	b := orb.Point{pois[0].Lon, pois[0].Lat}.Bound()
	for _, p := range pois[1:] {
		b = b.Extend(orb.Point{p.Lon, p.Lat})
	}
	return b, true
}
