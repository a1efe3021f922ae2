package ports

import (
	"context"

	"github.com/samirrijal/placesweep/internal/core/domain"
)

// SnapshotRepository persists completed sweep snapshots and their places.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *domain.SearchSnapshot) error
	// GetBySlug returns the most recent snapshot for a city slug, including
	// its places, or nil when none exists.
	GetBySlug(ctx context.Context, slug string) (*domain.SearchSnapshot, error)
	// List returns snapshot headers (no places) newest first, plus the total
	// number of stored snapshots.
	List(ctx context.Context, limit, offset int) ([]domain.SearchSnapshot, int, error)
	FindPlacesNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Place, error)
}
