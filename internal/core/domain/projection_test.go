package domain

import (
	"math"
	"testing"
)

// The LV95 origin (old Bern observatory) is the published reference point
// for the swisstopo approximation formulas.
func TestLV95ToWGS84_BernOrigin(t *testing.T) {
	p := LV95ToWGS84(2600000, 1200000)

	if math.Abs(p.Lat-46.95108) > 0.0001 {
		t.Errorf("lat: expected ~46.95108, got %f", p.Lat)
	}
	if math.Abs(p.Lon-7.43864) > 0.0001 {
		t.Errorf("lon: expected ~7.43864, got %f", p.Lon)
	}
}

func TestLV95ToWGS84_Zurich(t *testing.T) {
	// Zurich main station, E 2683350 / N 1248100.
	p := LV95ToWGS84(2683350, 1248100)

	if math.Abs(p.Lat-47.378) > 0.01 {
		t.Errorf("lat: expected ~47.378, got %f", p.Lat)
	}
	if math.Abs(p.Lon-8.540) > 0.01 {
		t.Errorf("lon: expected ~8.540, got %f", p.Lon)
	}
}

func TestWGS84ToLV95_RoundTrip(t *testing.T) {
	points := []struct {
		e, n float64
	}{
		{2600000, 1200000},
		{2683350, 1248100}, // Zurich
		{2585000, 1220000}, // Biel
		{2500000, 1118000}, // Geneva region
	}

	for _, pt := range points {
		wgs := LV95ToWGS84(pt.e, pt.n)
		e, n := WGS84ToLV95(wgs)

		// The approximation round-trips to within a couple of meters.
		if math.Abs(e-pt.e) > 3 {
			t.Errorf("easting %0.f: round trip gave %0.f", pt.e, e)
		}
		if math.Abs(n-pt.n) > 3 {
			t.Errorf("northing %0.f: round trip gave %0.f", pt.n, n)
		}
	}
}

func TestBoundsToLV95_Ordering(t *testing.T) {
	b := Bounds{MinLat: 47.0, MinLon: 7.4, MaxLat: 47.1, MaxLon: 7.5}
	minE, minN, maxE, maxN := BoundsToLV95(b)

	if minE >= maxE {
		t.Errorf("expected minE < maxE, got %f >= %f", minE, maxE)
	}
	if minN >= maxN {
		t.Errorf("expected minN < maxN, got %f >= %f", minN, maxN)
	}
}
