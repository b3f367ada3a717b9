package landing

import (
	"context"
	"io"
	"strings"
	"testing"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLocalBackend_PutOpen(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	n, err := b.Put(ctx, "solkat-ch-dach/20260815__roofs.zip", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("expected 7 bytes written, got %d", n)
	}

	rc, err := b.Open(ctx, "solkat-ch-dach/20260815__roofs.zip")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("expected payload, got %s", data)
	}
}

func TestLocalBackend_ExistsDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if ok, _ := b.Exists(ctx, "gone.zip"); ok {
		t.Error("expected not exists")
	}

	if _, err := b.Put(ctx, "here.zip", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := b.Exists(ctx, "here.zip"); !ok {
		t.Error("expected exists")
	}

	if err := b.Delete(ctx, "here.zip"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := b.Exists(ctx, "here.zip"); ok {
		t.Error("expected deleted")
	}

	// Deleting twice is not an error
	if err := b.Delete(ctx, "here.zip"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestLocalBackend_List(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	files := []string{
		"solkat-ch-dach/20260815__roofs.zip",
		"solkat-ch-dach/20250601__roofs.zip",
		"gwr/20260101__buildings.geojson",
	}
	for _, f := range files {
		if _, err := b.Put(ctx, f, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	names, err := b.List(ctx, "solkat-ch-dach/")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
	// Sorted ascending, so the newest version comes last
	if names[1] != "solkat-ch-dach/20260815__roofs.zip" {
		t.Errorf("unexpected order: %v", names)
	}
}

func TestLocalBackend_RejectsEscapingPaths(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.Put(ctx, "../outside.zip", strings.NewReader("x")); err == nil {
		t.Error("expected error for escaping path")
	}
	if _, err := b.Open(ctx, "/etc/passwd"); err == nil {
		t.Error("expected error for absolute path")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	name := "solkat-ch-dach/20260815__roofs.zip"
	if _, err := b.Put(ctx, name, strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	want := &Meta{
		SourceURL: "https://data.geo.admin.ch/ch.bfe.solarenergie-eignung-daecher/roofs.zip",
		SHA256:    "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881",
		Size:      1,
	}
	if err := WriteMeta(ctx, b, name, want); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMeta(ctx, b, name)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceURL != want.SourceURL || got.SHA256 != want.SHA256 || got.Size != want.Size {
		t.Errorf("meta mismatch: %+v", got)
	}
}

func TestDepLog(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	// Never written: reads as empty
	log, err := ReadDepLog(ctx, b, "potential")
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 0 {
		t.Errorf("expected empty dep log, got %v", log)
	}

	recorded := DepLog{"solkat-ch-dach": "20250601", "gwr": "20260101"}
	if err := WriteDepLog(ctx, b, "potential", recorded); err != nil {
		t.Fatal(err)
	}

	log, err = ReadDepLog(ctx, b, "potential")
	if err != nil {
		t.Fatal(err)
	}
	if log["solkat-ch-dach"] != "20250601" || log["gwr"] != "20260101" {
		t.Errorf("dep log round trip mismatch: %v", log)
	}

	// The store exposes the same log through the core port.
	store := NewDepLogStore(b)
	got, err := store.Read(ctx, "potential")
	if err != nil {
		t.Fatal(err)
	}
	if got["gwr"] != "20260101" {
		t.Errorf("store read mismatch: %v", got)
	}
	if err := store.Write(ctx, "potential", map[string]string{"gwr": "20260815"}); err != nil {
		t.Fatal(err)
	}
	if got, _ = store.Read(ctx, "potential"); got["gwr"] != "20260815" {
		t.Errorf("store write not visible: %v", got)
	}
}
