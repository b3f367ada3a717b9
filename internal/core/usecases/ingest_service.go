package usecases

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/ports"
)

const upsertBatchSize = 500

// IngestService loads parsed dataset rows into the repositories and keeps
// the dataset version bookkeeping.
type IngestService struct {
	roofs     ports.RoofRepository
	buildings ports.BuildingRepository
	datasets  ports.DatasetRepository
	publisher ports.EventPublisher
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	roofs ports.RoofRepository,
	buildings ports.BuildingRepository,
	datasets ports.DatasetRepository,
	publisher ports.EventPublisher,
) *IngestService {
	return &IngestService{roofs: roofs, buildings: buildings, datasets: datasets, publisher: publisher}
}

// IngestRoofCSV streams a solar cadastre CSV export into the roof table.
// Expected columns: df_uid (the segment identifier), egid,
// area_ratio_original, flaeche, stromertrag, klasse, geometry (GeoJSON,
// LV95 coordinates). Rows with a missing DF_UID or EGID, or an
// unparseable geometry, are skipped.
func (s *IngestService) IngestRoofCSV(ctx context.Context, r io.Reader, slug, version string) (int64, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range []string{"df_uid", "egid", "flaeche", "stromertrag", "geometry"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var batch []domain.RoofSegment
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.roofs.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert roofs: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		// DF_UID is the cadastre's segment identifier and the upsert key,
		// so a row without one cannot be stored.
		roofID := strings.TrimSpace(record[cols["df_uid"]])
		if roofID == "" {
			continue
		}

		egid := strings.TrimSpace(record[cols["egid"]])
		if !domain.ValidEGID(egid) {
			continue
		}

		var geom domain.Geometry
		if err := json.Unmarshal([]byte(record[cols["geometry"]]), &geom); err != nil {
			continue
		}

		flaeche, _ := strconv.ParseFloat(getField(record, cols, "flaeche"), 64)
		stromertrag, _ := strconv.ParseFloat(getField(record, cols, "stromertrag"), 64)
		ratio, _ := strconv.ParseFloat(getField(record, cols, "area_ratio_original"), 64)
		klasse, _ := strconv.Atoi(getField(record, cols, "klasse"))

		batch = append(batch, domain.RoofSegment{
			ID:                roofID,
			EGID:              egid,
			AreaRatioOriginal: ratio,
			Flaeche:           flaeche,
			Stromertrag:       stromertrag,
			Klasse:            klasse,
			Geometry:          geom,
		})

		if len(batch) >= upsertBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	return total, s.finish(ctx, slug, version, total)
}

// buildingFeature matches one GWR feature as distributed in the register
// dump: a point in LV95 plus the attribute subset we keep.
type buildingFeature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [E, N]
	} `json:"geometry"`
	Properties struct {
		EGID         json.Number `json:"egid"`
		Address      string      `json:"address"`
		Municipality string      `json:"ggdename"`
		Canton       string      `json:"gdekt"`
		Klasse       int         `json:"gklas"`
		Status       int         `json:"gstat"`
		BuildYear    int         `json:"gbauj"`
	} `json:"properties"`
}

// IngestBuildingsGeoJSON loads a GWR buildings GeoJSON dump. Coordinates
// are LV95 and converted to WGS 84 here; features outside the national
// bounding box are dropped (the register contains the odd outlier in the
// middle of the ocean).
func (s *IngestService) IngestBuildingsGeoJSON(ctx context.Context, r io.Reader, slug, version string) (int64, error) {
	var fc struct {
		Features []buildingFeature `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return 0, fmt.Errorf("decode feature collection: %w", err)
	}

	var batch []domain.Building
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.buildings.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert buildings: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for _, f := range fc.Features {
		egid := f.Properties.EGID.String()
		if !domain.ValidEGID(egid) {
			continue
		}
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		e, n := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		if !insideSwissBounds(e, n) {
			continue
		}

		batch = append(batch, domain.Building{
			EGID:             egid,
			Address:          f.Properties.Address,
			Municipality:     f.Properties.Municipality,
			Canton:           f.Properties.Canton,
			BuildingClass:    f.Properties.Klasse,
			Status:           f.Properties.Status,
			ConstructionYear: f.Properties.BuildYear,
			Location:         domain.LV95ToWGS84(e, n),
		})

		if len(batch) >= upsertBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	return total, s.finish(ctx, slug, version, total)
}

// finish records the loaded version and announces it.
func (s *IngestService) finish(ctx context.Context, slug, version string, rows int64) error {
	v := &domain.DatasetVersion{
		Slug:     slug,
		Version:  version,
		AsOf:     time.Now(),
		RowCount: rows,
	}
	if s.datasets != nil {
		if err := s.datasets.RecordVersion(ctx, v); err != nil {
			return fmt.Errorf("record version: %w", err)
		}
	}
	if s.publisher != nil {
		_ = s.publisher.PublishDatasetUpdated(ctx, v)
	}
	return nil
}

// insideSwissBounds checks an LV95 coordinate against the national
// bounding box. Rows outside it are bad source data.
func insideSwissBounds(e, n float64) bool {
	return e >= 2485071 && e <= 2837119 && n >= 1074261 && n <= 1299941
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
