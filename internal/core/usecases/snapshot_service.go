package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
)

// SnapshotService serves stored sweep results.
type SnapshotService struct {
	snapshots ports.SnapshotRepository
	cache     ports.CacheService
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(snapshots ports.SnapshotRepository, cache ports.CacheService) *SnapshotService {
	return &SnapshotService{snapshots: snapshots, cache: cache}
}

func snapshotCacheKey(slug string) string {
	return "snapshots:slug:" + slug
}

// GetBySlug returns the latest snapshot for a slug, or nil when none exists.
func (s *SnapshotService) GetBySlug(ctx context.Context, slug string) (*domain.SearchSnapshot, error) {
	if slug == "" {
		return nil, fmt.Errorf("slug must not be empty")
	}

	key := snapshotCacheKey(slug)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var snap domain.SearchSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	snap, err := s.snapshots.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	// Snapshots are immutable once written, so a longer TTL is safe; the
	// sweep invalidates the key when it saves a fresh one.
	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, key, data, 10*time.Minute)
		}
	}

	return snap, nil
}

// InvalidateSlug drops the cached copy of a slug's snapshot. Called when a
// sweep in another process stores a fresh one.
func (s *SnapshotService) InvalidateSlug(ctx context.Context, slug string) error {
	if s.cache == nil || slug == "" {
		return nil
	}
	return s.cache.Delete(ctx, snapshotCacheKey(slug))
}

// List returns snapshot headers newest first plus the stored total.
func (s *SnapshotService) List(ctx context.Context, limit, offset int) ([]domain.SearchSnapshot, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.snapshots.List(ctx, limit, offset)
}

// PlacesNearby returns stored places within radiusMeters of a point.
func (s *SnapshotService) PlacesNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Place, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if radiusMeters <= 0 || radiusMeters > 50000 {
		radiusMeters = 2000
	}

	cacheKey := fmt.Sprintf("places:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var places []domain.Place
			if err := json.Unmarshal(data, &places); err == nil {
				return places, nil
			}
		}
	}

	places, err := s.snapshots.FindPlacesNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(places); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return places, nil
}
