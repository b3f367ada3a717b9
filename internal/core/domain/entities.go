package domain

import (
	"time"
)

// RoofSegment is one roof surface from the SFOE solar cadastre
// (SOLKAT_CH_DACH), keyed by the EGID of the building it belongs to.
type RoofSegment struct {
	ID                string    `json:"id"`
	EGID              string    `json:"egid"`
	AreaRatioOriginal float64   `json:"area_ratio_original"`
	Flaeche           float64   `json:"flaeche"`     // usable area, m²
	Stromertrag       float64   `json:"stromertrag"` // expected yield, kWh/year
	Klasse            int       `json:"klasse"`      // suitability class 1 (low) .. 5 (top)
	Geometry          Geometry  `json:"geometry"`
	CreatedAt         time.Time `json:"created_at"`
}

// Building is one entry of the GWR federal building register.
type Building struct {
	ID               string    `json:"id"`
	EGID             string    `json:"egid"`
	Address          string    `json:"address,omitempty"`
	Municipality     string    `json:"municipality,omitempty"`
	Canton           string    `json:"canton,omitempty"`
	BuildingClass    int       `json:"building_class,omitempty"`
	Status           int       `json:"status,omitempty"`
	ConstructionYear int       `json:"construction_year,omitempty"`
	Location         GeoPoint  `json:"location"`
	Distance         *float64  `json:"distance,omitempty"` // computed field, meters
	CreatedAt        time.Time `json:"created_at"`
}

// BuildingPotential is the refined per-building solar aggregate.
type BuildingPotential struct {
	EGID             string    `json:"egid"`
	RoofCount        int       `json:"roof_count"`
	TotalFlaeche     float64   `json:"total_flaeche"`
	TotalStromertrag float64   `json:"total_stromertrag"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DatasetVersion records one loaded version of a source dataset.
// Versions are calendar dates in YYYYMMDD form.
type DatasetVersion struct {
	Slug      string    `json:"slug"`
	Version   string    `json:"version"`
	AsOf      time.Time `json:"as_of"`
	RowCount  int64     `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// LookupRoof is one entry of the lookup response. The JSON keys are the
// public contract of /v1/lookup and must not change.
type LookupRoof struct {
	AreaRatioOriginal float64  `json:"area_ratio_original"`
	Flaeche           float64  `json:"flaeche"`
	Stromertrag       float64  `json:"stromertrag"`
	Geometry          Geometry `json:"geometry"`
}

// LookupResult is the /v1/lookup response body. An unknown EGID yields an
// empty Data slice and zero totals, not an error.
type LookupResult struct {
	EGID             string       `json:"egid"`
	Data             []LookupRoof `json:"data"`
	TotalFlaeche     float64      `json:"total_flaeche"`
	TotalStromertrag float64      `json:"total_stromertrag"`
	ProcessingTimeS  float64      `json:"processing_time_s"`
}

// NewLookupResult builds a lookup payload from roof segments and computes
// the area and yield totals.
func NewLookupResult(egid string, roofs []RoofSegment) *LookupResult {
	res := &LookupResult{
		EGID: egid,
		Data: make([]LookupRoof, 0, len(roofs)),
	}
	for _, r := range roofs {
		res.Data = append(res.Data, LookupRoof{
			AreaRatioOriginal: r.AreaRatioOriginal,
			Flaeche:           r.Flaeche,
			Stromertrag:       r.Stromertrag,
			Geometry:          r.Geometry,
		})
		res.TotalFlaeche += r.Flaeche
		res.TotalStromertrag += r.Stromertrag
	}
	return res
}

// ValidEGID reports whether s looks like a Swiss building identifier:
// 1 to 12 decimal digits.
func ValidEGID(s string) bool {
	if len(s) == 0 || len(s) > 12 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
