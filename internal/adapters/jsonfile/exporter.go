package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samirrijal/placesweep/internal/core/domain"
)

// Exporter implements ports.SnapshotExporter by writing one pretty-printed
// JSON file per city slug under a fixed output directory.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter rooted at dir. The directory is created on
// first export.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// payload mirrors the legacy export layout consumed by downstream notebooks.
type payload struct {
	City        string              `json:"city"`
	GeneratedAt int64               `json:"generatedAt"`
	TotalPlaces int                 `json:"totalPlaces"`
	Filters     domain.SearchFilter `json:"filters"`
	Places      []domain.Place      `json:"places"`
}

// Export writes <dir>/<slug>.json and returns the written path. A re-export
// of the same slug replaces the previous file.
func (e *Exporter) Export(ctx context.Context, snap *domain.SearchSnapshot) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	places := snap.Places
	if places == nil {
		places = []domain.Place{}
	}

	data, err := json.MarshalIndent(payload{
		City:        snap.City,
		GeneratedAt: snap.GeneratedAt.Unix(),
		TotalPlaces: snap.TotalPlaces,
		Filters:     snap.Filter,
		Places:      places,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	// Write then rename so readers never see a half-written file.
	path := filepath.Join(e.dir, snap.Slug+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}
	return path, nil
}
