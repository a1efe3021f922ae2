package ports

import (
	"context"
	"time"

	"github.com/samirrijal/placesweep/internal/core/domain"
)

// Geocoder resolves a free-form city or place name into a bounding region.
type Geocoder interface {
	// BoundsFor returns ErrGeocodeNotFound when the name does not resolve.
	BoundsFor(ctx context.Context, city string) (domain.Region, error)
}

// InsightOracle answers aggregate queries about places inside a circle.
// Counts are exact; listings are reliable only while the true count is at
// most the service's per-call cap. Recoverable failures are reported as
// TransientError so callers can compensate instead of aborting.
type InsightOracle interface {
	Count(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error)
	Places(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error)
}

// PlaceDetailer resolves one place ref into its full raw record.
type PlaceDetailer interface {
	// Details returns ErrPlaceNotFound when the ref no longer resolves.
	Details(ctx context.Context, ref domain.PlaceRef) (*domain.PlaceDetail, error)
}

// SnapshotExporter writes a completed snapshot to secondary storage and
// returns the written location.
type SnapshotExporter interface {
	Export(ctx context.Context, snap *domain.SearchSnapshot) (string, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes sweep lifecycle events to a message broker.
type EventPublisher interface {
	PublishSweepEvent(ctx context.Context, ev *domain.SweepEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}
