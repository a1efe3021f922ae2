package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/pkg/metrics"
)

// SweepConfig carries sweep-wide policy, constructed once at startup and
// passed in rather than read from the environment mid-run.
type SweepConfig struct {
	Decomposer      DecomposerConfig
	Workers         int
	DefaultFilter   domain.SearchFilter
	EstimateRadiusM float64
	CostPerDetail   float64
	ProgressEvery   int
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Workers <= 0 {
		c.Workers = 16
	}
	if c.EstimateRadiusM <= 0 {
		c.EstimateRadiusM = 10000
	}
	if c.CostPerDetail <= 0 {
		c.CostPerDetail = 0.02
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 25
	}
	if len(c.DefaultFilter.IncludedTypes) == 0 {
		c.DefaultFilter.IncludedTypes = []string{"restaurant"}
	}
	if c.DefaultFilter.MinRating == 0 {
		c.DefaultFilter.MinRating = 4.5
	}
	if c.DefaultFilter.MaxRating == 0 {
		c.DefaultFilter.MaxRating = 5.0
	}
	if len(c.DefaultFilter.OperatingStatus) == 0 {
		c.DefaultFilter.OperatingStatus = []string{"OPERATING_STATUS_OPERATIONAL"}
	}
	return c
}

// SweepResult is the outcome of one sweep run.
type SweepResult struct {
	Snapshot      *domain.SearchSnapshot // nil in count-only mode
	SavedPath     string                 // file export location, when exported
	Discovered    int
	Stats         domain.SweepStats
	EstimatedCost float64
	Elapsed       time.Duration
}

// Estimate is a cheap single-count-call estimate for a city center, used to
// gauge the cost of a full sweep before committing to one.
type Estimate struct {
	City          string  `json:"city"`
	Count         int     `json:"count"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// SweepService runs the full discovery pipeline: geocode, decompose,
// hydrate, normalize, persist, export, publish.
type SweepService struct {
	geocoder  ports.Geocoder
	oracle    ports.InsightOracle
	hydrator  *Hydrator
	snapshots ports.SnapshotRepository
	exporter  ports.SnapshotExporter
	events    ports.EventPublisher
	cache     ports.CacheService
	cfg       SweepConfig
	tracer    trace.Tracer
}

// NewSweepService wires the pipeline. Snapshots, exporter, events and cache
// may be nil; the corresponding steps are skipped.
func NewSweepService(
	geocoder ports.Geocoder,
	oracle ports.InsightOracle,
	details ports.PlaceDetailer,
	snapshots ports.SnapshotRepository,
	exporter ports.SnapshotExporter,
	events ports.EventPublisher,
	cache ports.CacheService,
	cfg SweepConfig,
) *SweepService {
	cfg = cfg.withDefaults()
	return &SweepService{
		geocoder:  geocoder,
		oracle:    oracle,
		hydrator:  NewHydrator(details, cfg.Workers),
		snapshots: snapshots,
		exporter:  exporter,
		events:    events,
		cache:     cache,
		cfg:       cfg,
		tracer:    otel.Tracer("placesweep/sweep"),
	}
}

// SweepCity geocodes the city and sweeps its bounding region. With countOnly
// the pipeline stops after discovery and reports size and estimated cost
// without spending on detail calls.
func (s *SweepService) SweepCity(ctx context.Context, city string, filter domain.SearchFilter, countOnly bool) (*SweepResult, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("city must not be empty")
	}

	region, err := s.geocoder.BoundsFor(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", city, err)
	}

	return s.run(ctx, city, region, filter, countOnly)
}

// SweepRegion sweeps an explicit region under the given name, skipping
// geocoding entirely.
func (s *SweepService) SweepRegion(ctx context.Context, name string, region domain.Region, filter domain.SearchFilter, countOnly bool) (*SweepResult, error) {
	if !region.Valid() {
		return nil, fmt.Errorf("invalid region: north < south or east < west")
	}
	if strings.TrimSpace(name) == "" {
		name = "region"
	}
	return s.run(ctx, name, region, filter, countOnly)
}

// Estimate performs a single fixed-radius count call around the city center.
func (s *SweepService) Estimate(ctx context.Context, city string) (*Estimate, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("city must not be empty")
	}

	region, err := s.geocoder.BoundsFor(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", city, err)
	}

	circle := domain.Circle{Center: region.Center(), Radius: s.cfg.EstimateRadiusM}
	count, err := s.oracle.Count(ctx, circle, s.cfg.DefaultFilter)
	if err != nil {
		return nil, fmt.Errorf("count places: %w", err)
	}

	return &Estimate{
		City:          city,
		Count:         count,
		EstimatedCost: float64(count) * s.cfg.CostPerDetail,
	}, nil
}

func (s *SweepService) run(ctx context.Context, city string, region domain.Region, filter domain.SearchFilter, countOnly bool) (*SweepResult, error) {
	slug := domain.Slugify(city)
	filter = s.withFilterDefaults(filter)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "sweep",
		trace.WithAttributes(
			attribute.String("sweep.city", city),
			attribute.Bool("sweep.count_only", countOnly),
		))
	defer span.End()

	s.publish(ctx, &domain.SweepEvent{Type: "started", Slug: slug, City: city, Time: time.Now().UTC()})

	dec := NewDecomposer(s.oracle, s.cfg.Decomposer)
	dec.OnProgress = func(visited, discovered int) {
		if visited%s.cfg.ProgressEvery == 0 {
			s.publish(ctx, &domain.SweepEvent{
				Type:           "progress",
				Slug:           slug,
				City:           city,
				RegionsVisited: visited,
				RefsDiscovered: discovered,
				Time:           time.Now().UTC(),
			})
		}
	}

	dctx, dspan := s.tracer.Start(ctx, "sweep.decompose")
	refs, stats, err := dec.Run(dctx, region, filter)
	dspan.End()

	metrics.RegionsVisited.Add(float64(stats.RegionsVisited))
	metrics.RegionsSplit.Add(float64(stats.Splits))
	metrics.RegionsDropped.Add(float64(stats.DroppedRegions))

	if err != nil {
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decompose region: %w", err)
	}

	span.SetAttributes(
		attribute.Int("sweep.regions_visited", stats.RegionsVisited),
		attribute.Int("sweep.refs_discovered", stats.RefsDiscovered),
		attribute.Bool("sweep.truncated", stats.Truncated),
	)

	if stats.Truncated {
		slog.Warn("sweep truncated by worklist ceiling",
			"city", city, "dropped_regions", stats.DroppedRegions)
	}

	if countOnly {
		stats.ElapsedMS = time.Since(start).Milliseconds()
		metrics.SweepsTotal.WithLabelValues("count_only").Inc()
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		s.publish(ctx, &domain.SweepEvent{
			Type:           "completed",
			Slug:           slug,
			City:           city,
			RegionsVisited: stats.RegionsVisited,
			RefsDiscovered: stats.RefsDiscovered,
			Truncated:      stats.Truncated,
			Time:           time.Now().UTC(),
		})
		return &SweepResult{
			Discovered:    len(refs),
			Stats:         stats,
			EstimatedCost: float64(len(refs)) * s.cfg.CostPerDetail,
			Elapsed:       time.Since(start),
		}, nil
	}

	hctx, hspan := s.tracer.Start(ctx, "sweep.hydrate")
	places, err := s.hydrator.Run(hctx, refs)
	hspan.End()
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("hydrate places: %w", err)
	}

	metrics.PlacesHydrated.Add(float64(len(places)))
	metrics.HydrationDropped.Add(float64(len(refs) - len(places)))

	stats.ElapsedMS = time.Since(start).Milliseconds()
	now := time.Now().UTC()
	snap := &domain.SearchSnapshot{
		ID:          uuid.NewString(),
		Slug:        slug,
		City:        city,
		Region:      region,
		Filter:      filter,
		GeneratedAt: now,
		TotalPlaces: len(places),
		Stats:       stats,
		Places:      places,
		CreatedAt:   now,
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, snap); err != nil {
			metrics.SweepsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
		metrics.SnapshotsSaved.Inc()
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, snapshotCacheKey(slug))
	}

	var savedPath string
	if s.exporter != nil {
		path, err := s.exporter.Export(ctx, snap)
		if err != nil {
			// The database copy is the source of truth; a failed file export
			// is not worth failing the sweep over.
			slog.Warn("snapshot export failed", "slug", slug, "error", err)
		} else {
			savedPath = path
		}
	}

	s.publish(ctx, &domain.SweepEvent{
		Type:           "completed",
		Slug:           slug,
		City:           city,
		RegionsVisited: stats.RegionsVisited,
		RefsDiscovered: stats.RefsDiscovered,
		TotalPlaces:    len(places),
		Truncated:      stats.Truncated,
		Time:           now,
	})

	metrics.SweepsTotal.WithLabelValues("ok").Inc()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	return &SweepResult{
		Snapshot:      snap,
		SavedPath:     savedPath,
		Discovered:    len(refs),
		Stats:         stats,
		EstimatedCost: float64(len(refs)) * s.cfg.CostPerDetail,
		Elapsed:       time.Since(start),
	}, nil
}

func (s *SweepService) withFilterDefaults(f domain.SearchFilter) domain.SearchFilter {
	def := s.cfg.DefaultFilter
	if len(f.IncludedTypes) == 0 {
		f.IncludedTypes = def.IncludedTypes
	}
	if f.MinRating == 0 {
		f.MinRating = def.MinRating
	}
	if f.MaxRating == 0 {
		f.MaxRating = def.MaxRating
	}
	if len(f.OperatingStatus) == 0 {
		f.OperatingStatus = def.OperatingStatus
	}
	return f
}

func (s *SweepService) publish(ctx context.Context, ev *domain.SweepEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSweepEvent(ctx, ev); err != nil {
		slog.Debug("sweep event publish failed", "type", ev.Type, "slug", ev.Slug, "error", err)
	}
}
