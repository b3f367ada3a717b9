package domain

import "encoding/json"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box (WGS 84).
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Geometry is a GeoJSON geometry. Coordinates are carried as raw JSON so
// that geometries produced by PostGIS pass through without re-encoding.
// Coordinate order is lon,lat per the GeoJSON spec.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Bounds computes the bounding box of the geometry's coordinates. The
// second return is false when the geometry has no positions or the raw
// coordinates are not valid GeoJSON nesting.
func (g Geometry) Bounds() (Bounds, bool) {
	var coords any
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return Bounds{}, false
	}
	b := Bounds{MinLat: 91, MinLon: 181, MaxLat: -91, MaxLon: -181}
	if !extendBounds(&b, coords) {
		return Bounds{}, false
	}
	return b, true
}

// extendBounds walks arbitrarily nested coordinate arrays. A position is
// an array whose first element is a number, in lon,lat order.
func extendBounds(b *Bounds, node any) bool {
	arr, ok := node.([]any)
	if !ok || len(arr) == 0 {
		return false
	}
	if _, leaf := arr[0].(float64); leaf {
		if len(arr) < 2 {
			return false
		}
		lon, okLon := arr[0].(float64)
		lat, okLat := arr[1].(float64)
		if !okLon || !okLat {
			return false
		}
		if lat < b.MinLat {
			b.MinLat = lat
		}
		if lat > b.MaxLat {
			b.MaxLat = lat
		}
		if lon < b.MinLon {
			b.MinLon = lon
		}
		if lon > b.MaxLon {
			b.MaxLon = lon
		}
		return true
	}
	found := false
	for _, child := range arr {
		if extendBounds(b, child) {
			found = true
		}
	}
	return found
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// RoofFeatureCollection renders roof segments as a GeoJSON
// FeatureCollection, one feature per segment.
func RoofFeatureCollection(roofs []RoofSegment) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(roofs))}
	for _, r := range roofs {
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: map[string]any{
				"egid":                r.EGID,
				"area_ratio_original": r.AreaRatioOriginal,
				"flaeche":             r.Flaeche,
				"stromertrag":         r.Stromertrag,
				"klasse":              r.Klasse,
			},
			Geometry: r.Geometry,
		})
	}
	return fc
}
