package landing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const stacFixture = `{
  "features": [
    {
      "id": "solkat-2025",
      "properties": {"datetime": "2025-06-01T00:00:00Z"},
      "assets": {
        "data": {"href": "https://data.geo.admin.ch/solkat/20250601.zip", "type": "application/zip"}
      }
    },
    {
      "id": "solkat-2026",
      "properties": {"datetime": "2026-08-15T00:00:00Z"},
      "assets": {
        "data": {"href": "https://data.geo.admin.ch/solkat/20260815.zip", "type": "application/zip"},
        "preview": {"href": "https://data.geo.admin.ch/solkat/preview.png", "type": "image/png"}
      }
    }
  ]
}`

func TestResolveAsset_PicksNewest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(stacFixture))
	}))
	defer srv.Close()

	asset, err := ResolveAsset(context.Background(), srv.Client(), srv.URL, "data")
	if err != nil {
		t.Fatal(err)
	}
	if asset.Version != "20260815" {
		t.Errorf("expected version 20260815, got %s", asset.Version)
	}
	if asset.URL != "https://data.geo.admin.ch/solkat/20260815.zip" {
		t.Errorf("unexpected url %s", asset.URL)
	}
}

func TestResolveAsset_SingleItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "gwr-2026",
			"properties": {"datetime": "2026-01-01T00:00:00Z"},
			"assets": {"data": {"href": "https://example.org/gwr.geojson"}}
		}`))
	}))
	defer srv.Close()

	asset, err := ResolveAsset(context.Background(), srv.Client(), srv.URL, "data")
	if err != nil {
		t.Fatal(err)
	}
	if asset.Version != "20260101" {
		t.Errorf("expected version 20260101, got %s", asset.Version)
	}
}

func TestResolveAsset_MissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stacFixture))
	}))
	defer srv.Close()

	if _, err := ResolveAsset(context.Background(), srv.Client(), srv.URL, "nope"); err == nil {
		t.Error("expected error for missing asset key")
	}
}

func TestResolveAsset_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := ResolveAsset(context.Background(), srv.Client(), srv.URL, "data"); err == nil {
		t.Error("expected error for HTTP 500")
	}
}
