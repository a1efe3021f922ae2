package jsonfile_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samirrijal/placesweep/internal/adapters/jsonfile"
	"github.com/samirrijal/placesweep/internal/core/domain"
)

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	e := jsonfile.NewExporter(filepath.Join(dir, "out"))

	snap := &domain.SearchSnapshot{
		Slug:        "san_diego",
		City:        "San Diego",
		GeneratedAt: time.Unix(1700000000, 0).UTC(),
		TotalPlaces: 1,
		Filter:      domain.SearchFilter{IncludedTypes: []string{"restaurant"}, MinRating: 4.5},
		Places:      []domain.Place{{ID: "abc", Name: "The Spot", Types: []string{"restaurant"}}},
	}

	path, err := e.Export(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "san_diego.json" {
		t.Errorf("unexpected file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var out struct {
		City        string         `json:"city"`
		GeneratedAt int64          `json:"generatedAt"`
		TotalPlaces int            `json:"totalPlaces"`
		Filters     struct {
			IncludedTypes []string `json:"includedTypes"`
			MinRating     float64  `json:"minRating"`
		} `json:"filters"`
		Places []domain.Place `json:"places"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if out.City != "San Diego" || out.TotalPlaces != 1 {
		t.Errorf("unexpected payload: %+v", out)
	}
	if out.GeneratedAt != 1700000000 {
		t.Errorf("expected unix timestamp, got %d", out.GeneratedAt)
	}
	if out.Filters.MinRating != 4.5 {
		t.Errorf("expected filters recorded, got %+v", out.Filters)
	}
	if len(out.Places) != 1 || out.Places[0].ID != "abc" {
		t.Errorf("unexpected places: %+v", out.Places)
	}

	// No temp file may survive the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestExporter_Export_NilPlaces(t *testing.T) {
	dir := t.TempDir()
	e := jsonfile.NewExporter(dir)

	path, err := e.Export(context.Background(), &domain.SearchSnapshot{Slug: "empty", City: "Empty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	// Places serializes as an array, never null.
	if string(out["places"]) != "[]" {
		t.Errorf("expected empty places array, got %s", out["places"])
	}
}

func TestExporter_Export_Overwrites(t *testing.T) {
	dir := t.TempDir()
	e := jsonfile.NewExporter(dir)

	first := &domain.SearchSnapshot{Slug: "bilbao", City: "Bilbao", TotalPlaces: 1}
	second := &domain.SearchSnapshot{Slug: "bilbao", City: "Bilbao", TotalPlaces: 7}

	if _, err := e.Export(context.Background(), first); err != nil {
		t.Fatalf("first export: %v", err)
	}
	path, err := e.Export(context.Background(), second)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var out struct {
		TotalPlaces int `json:"totalPlaces"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if out.TotalPlaces != 7 {
		t.Errorf("expected latest export to win, got %d", out.TotalPlaces)
	}
}
