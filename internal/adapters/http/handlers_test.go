package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/folimar/solkat/internal/adapters/http"
	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/usecases"
)

// ---- Mock repositories ----

type mockRoofRepo struct {
	getByEGIDFn  func(ctx context.Context, egid string) ([]domain.RoofSegment, error)
	envelopeFn   func(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error)
	randomEGIDFn func(ctx context.Context) (string, error)
}

func (m *mockRoofRepo) UpsertBatch(ctx context.Context, roofs []domain.RoofSegment) error {
	return nil
}
func (m *mockRoofRepo) GetByEGID(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
	if m.getByEGIDFn != nil {
		return m.getByEGIDFn(ctx, egid)
	}
	return nil, nil
}
func (m *mockRoofRepo) FindInEnvelope(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error) {
	if m.envelopeFn != nil {
		return m.envelopeFn(ctx, b, limit)
	}
	return nil, nil
}
func (m *mockRoofRepo) RandomEGID(ctx context.Context) (string, error) {
	if m.randomEGIDFn != nil {
		return m.randomEGIDFn(ctx)
	}
	return "191", nil
}
func (m *mockRoofRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

type mockBuildingRepo struct {
	getByEGIDFn func(ctx context.Context, egid string) (*domain.Building, error)
	nearbyFn    func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Building, error)
	searchFn    func(ctx context.Context, query string, limit int) ([]domain.Building, error)
}

func (m *mockBuildingRepo) UpsertBatch(ctx context.Context, buildings []domain.Building) error {
	return nil
}
func (m *mockBuildingRepo) GetByEGID(ctx context.Context, egid string) (*domain.Building, error) {
	if m.getByEGIDFn != nil {
		return m.getByEGIDFn(ctx, egid)
	}
	return nil, fmt.Errorf("no rows")
}
func (m *mockBuildingRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Building, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, lat, lon, radiusMeters, limit)
	}
	return nil, nil
}
func (m *mockBuildingRepo) Search(ctx context.Context, query string, limit int) ([]domain.Building, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}
func (m *mockBuildingRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

type mockPotentialRepo struct {
	getByEGIDFn func(ctx context.Context, egid string) (*domain.BuildingPotential, error)
	topFn       func(ctx context.Context, limit int) ([]domain.BuildingPotential, error)
}

func (m *mockPotentialRepo) Recompute(ctx context.Context) (int64, error) { return 0, nil }
func (m *mockPotentialRepo) GetByEGID(ctx context.Context, egid string) (*domain.BuildingPotential, error) {
	if m.getByEGIDFn != nil {
		return m.getByEGIDFn(ctx, egid)
	}
	return nil, fmt.Errorf("no rows")
}
func (m *mockPotentialRepo) Top(ctx context.Context, limit int) ([]domain.BuildingPotential, error) {
	if m.topFn != nil {
		return m.topFn(ctx, limit)
	}
	return nil, nil
}

type mockDatasetRepo struct {
	listFn func(ctx context.Context) ([]domain.DatasetVersion, error)
}

func (m *mockDatasetRepo) RecordVersion(ctx context.Context, v *domain.DatasetVersion) error {
	return nil
}
func (m *mockDatasetRepo) Latest(ctx context.Context, slug string) (*domain.DatasetVersion, error) {
	return nil, nil
}
func (m *mockDatasetRepo) List(ctx context.Context) ([]domain.DatasetVersion, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Lookups:    usecases.NewLookupService(&mockRoofRepo{}, nil),
		Buildings:  usecases.NewBuildingService(&mockBuildingRepo{}, nil),
		Potentials: usecases.NewPotentialService(&mockPotentialRepo{}, nil, nil),
		Datasets:   usecases.NewDatasetService(&mockDatasetRepo{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func segment(egid string, flaeche, ertrag float64) domain.RoofSegment {
	return domain.RoofSegment{
		ID:                egid + "-1",
		EGID:              egid,
		AreaRatioOriginal: 1,
		Flaeche:           flaeche,
		Stromertrag:       ertrag,
		Klasse:            4,
		Geometry: domain.Geometry{
			Type:        "MultiPolygon",
			Coordinates: json.RawMessage(`[[[[7.44,46.95],[7.45,46.95],[7.45,46.96],[7.44,46.95]]]]`),
		},
		CreatedAt: time.Now(),
	}
}

// ---- Lookup handler tests ----

func TestLookup_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Lookups = usecases.NewLookupService(&mockRoofRepo{
			getByEGIDFn: func(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
				return []domain.RoofSegment{
					segment(egid, 120.5, 21000),
					segment(egid, 80, 9000),
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/lookup?egid=191", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.EGID != "191" {
		t.Errorf("expected egid 191, got %s", result.EGID)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 roofs, got %d", len(result.Data))
	}
	if result.TotalFlaeche != 200.5 {
		t.Errorf("expected total_flaeche 200.5, got %f", result.TotalFlaeche)
	}
	if result.TotalStromertrag != 30000 {
		t.Errorf("expected total_stromertrag 30000, got %f", result.TotalStromertrag)
	}
}

func TestLookup_UnknownEGIDReturnsEmptyData(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/lookup?egid=999999", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for unknown egid, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}

	var result domain.LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.TotalFlaeche != 0 || result.TotalStromertrag != 0 {
		t.Errorf("expected zero totals, got %f / %f", result.TotalFlaeche, result.TotalStromertrag)
	}
}

func TestLookup_MalformedEGIDRejected(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/lookup?egid=191;DROP+TABLE+roofs", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for malformed egid, got %d", resp.StatusCode)
	}
}

func TestLookup_NoEGIDSamplesRandom(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Lookups = usecases.NewLookupService(&mockRoofRepo{
			randomEGIDFn: func(ctx context.Context) (string, error) { return "2345678", nil },
			getByEGIDFn: func(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
				return []domain.RoofSegment{segment(egid, 50, 7000)}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/lookup", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.LookupResult
	json.NewDecoder(resp.Body).Decode(&result)
	if result.EGID != "2345678" {
		t.Errorf("expected sampled egid 2345678, got %s", result.EGID)
	}
}

func TestLookupGeoJSON(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Lookups = usecases.NewLookupService(&mockRoofRepo{
			getByEGIDFn: func(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
				return []domain.RoofSegment{segment(egid, 100, 15000)}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/lookup/geojson?egid=191", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Errorf("expected 1 feature, got %d", len(fc.Features))
	}
}

func TestRoofsBBox_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/roofs/bbox?min_lat=46.9", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRoofsBBox_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Lookups = usecases.NewLookupService(&mockRoofRepo{
			envelopeFn: func(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error) {
				return []domain.RoofSegment{segment("191", 100, 15000), segment("192", 60, 8000)}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/roofs/bbox?min_lat=46.94&min_lon=7.43&max_lat=46.96&max_lon=7.45", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var fc domain.FeatureCollection
	json.NewDecoder(resp.Body).Decode(&fc)
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
}

// ---- Building handler tests ----

func TestGetBuilding_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Buildings = usecases.NewBuildingService(&mockBuildingRepo{
			getByEGIDFn: func(ctx context.Context, egid string) (*domain.Building, error) {
				return &domain.Building{
					EGID:         egid,
					Address:      "Bundesgasse 3",
					Municipality: "Bern",
					Canton:       "BE",
					Location:     domain.GeoPoint{Lat: 46.9466, Lon: 7.4402},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/buildings/302040060", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var b domain.Building
	json.NewDecoder(resp.Body).Decode(&b)
	if b.Municipality != "Bern" {
		t.Errorf("expected Bern, got %s", b.Municipality)
	}
}

func TestGetBuilding_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/buildings/987654", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestNearbyBuildings_RequiresCoordinates(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/buildings/nearby?radius=200", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyBuildings_RadiusValidation(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/buildings/nearby?lat=46.95&lon=7.44&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for oversized radius, got %d", resp.StatusCode)
	}
}

func TestSearchBuildings_RequiresQuery(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/buildings/search", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchBuildings_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Buildings = usecases.NewBuildingService(&mockBuildingRepo{
			searchFn: func(ctx context.Context, query string, limit int) ([]domain.Building, error) {
				return []domain.Building{
					{EGID: "191", Address: "Bundesgasse 3", Municipality: "Bern"},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/buildings/search?q=bundesgasse", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var buildings []domain.Building
	json.NewDecoder(resp.Body).Decode(&buildings)
	if len(buildings) != 1 {
		t.Errorf("expected 1 building, got %d", len(buildings))
	}
}

// ---- Potential handler tests ----

func TestTopPotential(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Potentials = usecases.NewPotentialService(&mockPotentialRepo{
			topFn: func(ctx context.Context, limit int) ([]domain.BuildingPotential, error) {
				return []domain.BuildingPotential{
					{EGID: "191", RoofCount: 3, TotalStromertrag: 90000},
					{EGID: "192", RoofCount: 2, TotalStromertrag: 45000},
				}, nil
			},
		}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/potential/top", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var top []domain.BuildingPotential
	json.NewDecoder(resp.Body).Decode(&top)
	if len(top) != 2 {
		t.Errorf("expected 2 entries, got %d", len(top))
	}
	if top[0].EGID != "191" {
		t.Errorf("expected top egid 191, got %s", top[0].EGID)
	}
}

func TestGetPotential_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/potential/55555", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Dataset handler tests ----

func TestListDatasets_Pagination(t *testing.T) {
	versions := make([]domain.DatasetVersion, 5)
	for i := range versions {
		versions[i] = domain.DatasetVersion{
			Slug:    fmt.Sprintf("dataset-%d", i),
			Version: "20260815",
		}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(&mockDatasetRepo{
			listFn: func(ctx context.Context) ([]domain.DatasetVersion, error) { return versions, nil },
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/datasets?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.DatasetVersion `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 datasets in page, got %d", len(result.Data))
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("expected healthy status, got %s", body)
	}
}

// ---- GraphQL ----

func TestGraphQL_Lookup(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Lookups = usecases.NewLookupService(&mockRoofRepo{
			getByEGIDFn: func(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
				return []domain.RoofSegment{segment(egid, 100, 15000)}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	query := `{"query":"{ lookup(egid: \"191\") { egid total_stromertrag } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), `"egid":"191"`) {
		t.Errorf("unexpected graphql response: %s", body)
	}
}
