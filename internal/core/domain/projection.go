package domain

// Conversions between Swiss LV95 plane coordinates (EPSG:2056) and WGS 84
// (EPSG:4326) using the swisstopo approximate series expansion. Accuracy is
// around one meter, which is plenty for building centroids and map extents.

// LV95ToWGS84 converts an LV95 easting/northing pair to a WGS 84 point.
func LV95ToWGS84(e, n float64) GeoPoint {
	y := (e - 2600000.0) / 1000000.0
	x := (n - 1200000.0) / 1000000.0

	lon := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	lat := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	// Unit is 10000'' — convert to degrees.
	return GeoPoint{Lat: lat * 100.0 / 36.0, Lon: lon * 100.0 / 36.0}
}

// WGS84ToLV95 converts a WGS 84 point to LV95 easting/northing.
func WGS84ToLV95(p GeoPoint) (e, n float64) {
	phi := (p.Lat*3600.0 - 169028.66) / 10000.0
	lam := (p.Lon*3600.0 - 26782.5) / 10000.0

	e = 2600072.37 +
		211455.93*lam -
		10938.51*lam*phi -
		0.36*lam*phi*phi -
		44.54*lam*lam*lam

	n = 1200147.07 +
		308807.95*phi +
		3745.25*lam*lam +
		76.63*phi*phi -
		194.56*lam*lam*phi +
		119.79*phi*phi*phi

	return e, n
}

// BoundsToLV95 converts a WGS 84 bounding box to an LV95 envelope
// (minE, minN, maxE, maxN), suitable for ST_MakeEnvelope in SRID 2056.
func BoundsToLV95(b Bounds) (minE, minN, maxE, maxN float64) {
	minE, minN = WGS84ToLV95(GeoPoint{Lat: b.MinLat, Lon: b.MinLon})
	maxE, maxN = WGS84ToLV95(GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon})
	if minE > maxE {
		minE, maxE = maxE, minE
	}
	if minN > maxN {
		minN, maxN = maxN, minN
	}
	return minE, minN, maxE, maxN
}
