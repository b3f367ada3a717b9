package domain

import (
	"encoding/json"
	"testing"
)

func TestValidEGID(t *testing.T) {
	valid := []string{"1", "191350970", "999999999999"}
	for _, s := range valid {
		if !ValidEGID(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "abc", "123;DROP TABLE", "1913509701234", "19 1"}
	for _, s := range invalid {
		if ValidEGID(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestNewLookupResult_Totals(t *testing.T) {
	roofs := []RoofSegment{
		{EGID: "42", AreaRatioOriginal: 0.8, Flaeche: 60.5, Stromertrag: 10000},
		{EGID: "42", AreaRatioOriginal: 0.5, Flaeche: 39.5, Stromertrag: 5500},
	}

	res := NewLookupResult("42", roofs)

	if len(res.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Data))
	}
	if res.TotalFlaeche != 100.0 {
		t.Errorf("expected total_flaeche 100, got %f", res.TotalFlaeche)
	}
	if res.TotalStromertrag != 15500.0 {
		t.Errorf("expected total_stromertrag 15500, got %f", res.TotalStromertrag)
	}
}

func TestNewLookupResult_Empty(t *testing.T) {
	res := NewLookupResult("404", nil)

	// data must serialize as [] rather than null for the viewer.
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, ok := decoded["data"].([]any)
	if !ok {
		t.Fatalf("expected data to be an array, got %T", decoded["data"])
	}
	if len(data) != 0 {
		t.Errorf("expected empty data, got %d entries", len(data))
	}
	if decoded["total_flaeche"].(float64) != 0 {
		t.Errorf("expected zero total_flaeche")
	}
}

func TestRoofFeatureCollection(t *testing.T) {
	roofs := []RoofSegment{
		{
			EGID:        "42",
			Flaeche:     12.5,
			Stromertrag: 2200,
			Klasse:      4,
			Geometry:    Geometry{Type: "MultiPolygon", Coordinates: json.RawMessage(`[[[[7.44,46.95],[7.45,46.95],[7.45,46.96],[7.44,46.95]]]]`)},
		},
	}

	fc := RoofFeatureCollection(roofs)

	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Geometry.Type != "MultiPolygon" {
		t.Errorf("geometry type lost: %s", f.Geometry.Type)
	}
	if f.Properties["egid"] != "42" {
		t.Errorf("expected egid property, got %v", f.Properties["egid"])
	}
}
