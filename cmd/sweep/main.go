package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samirrijal/placesweep/internal/adapters/googlemaps"
	"github.com/samirrijal/placesweep/internal/adapters/jsonfile"
	natsadapter "github.com/samirrijal/placesweep/internal/adapters/nats"
	"github.com/samirrijal/placesweep/internal/adapters/nominatim"
	"github.com/samirrijal/placesweep/internal/adapters/postgres"
	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/core/usecases"
	"github.com/samirrijal/placesweep/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string      `json:"source"`
	Cities []CityEntry `json:"cities"`
}

type CityEntry struct {
	Name      string   `json:"name"`
	Types     []string `json:"types,omitempty"`
	MinRating float64  `json:"min_rating,omitempty"`
	MaxRating float64  `json:"max_rating,omitempty"`
	CountOnly bool     `json:"count_only,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("placesweep-sweep")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Google.APIKey == "" {
		log.Fatal("PLACESWEEP_GOOGLE_API_KEY is not set; a sweep cannot run without it")
	}

	// A batch of sweeps can run for hours. Ctrl-C finishes the current city
	// cleanly instead of dropping a half-hydrated snapshot.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("PlaceSweep batch runner — %d cities from %s", len(manifest.Cities), manifest.Source)

	// Filter cities (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	svc := buildSweepService(cfg, db)

	// Cities run one at a time. Each sweep already fans out internally and
	// every call shares the same upstream quota.
	var (
		swept     int
		failed    int
		totalCost float64
	)
	for _, city := range manifest.Cities {
		slug := domain.Slugify(city.Name)
		if len(slugFilter) > 0 && !slugFilter[slug] {
			continue
		}
		if ctx.Err() != nil {
			log.Printf("interrupted, %d cities left unswept", len(manifest.Cities)-swept-failed)
			break
		}

		res, err := sweepCity(ctx, svc, city)
		if err != nil {
			log.Printf("ERROR [%s]: %v", slug, err)
			failed++
			continue
		}
		swept++
		totalCost += res.EstimatedCost
	}

	log.Printf("batch complete: %d swept, %d failed, ~$%.2f spent", swept, failed, totalCost)
}

// ---------------------------------------------------------------------------
// Per-city sweep
// ---------------------------------------------------------------------------

func sweepCity(ctx context.Context, svc *usecases.SweepService, city CityEntry) (*usecases.SweepResult, error) {
	slug := domain.Slugify(city.Name)
	mode := "full"
	if city.CountOnly {
		mode = "count-only"
	}
	log.Printf("[%s] sweeping (%s)", slug, mode)

	filter := domain.SearchFilter{
		IncludedTypes: city.Types,
		MinRating:     city.MinRating,
		MaxRating:     city.MaxRating,
	}

	start := time.Now()
	res, err := svc.SweepCity(ctx, city.Name, filter, city.CountOnly)
	if err != nil {
		return nil, err
	}

	log.Printf("[%s]   discovered: %d refs in %d regions (%d splits, %d count calls)",
		slug, res.Discovered, res.Stats.RegionsVisited, res.Stats.Splits, res.Stats.CountCalls)
	if res.Stats.Truncated {
		log.Printf("[%s]   WARNING: worklist ceiling hit, results are incomplete", slug)
	}
	if res.Stats.DroppedRegions > 0 {
		log.Printf("[%s]   WARNING: %d regions dropped after repeated upstream failures", slug, res.Stats.DroppedRegions)
	}
	if res.Snapshot != nil {
		log.Printf("[%s]   stored %d places", slug, res.Snapshot.TotalPlaces)
	}
	if res.SavedPath != "" {
		log.Printf("[%s]   exported to %s", slug, res.SavedPath)
	}
	log.Printf("[%s] done in %s (~$%.2f)", slug, time.Since(start).Round(time.Second), res.EstimatedCost)
	return res, nil
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func buildSweepService(cfg *config.Config, db *postgres.DB) *usecases.SweepService {
	geocoder := nominatim.New(nominatim.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   time.Duration(cfg.Geocoder.Timeout) * time.Second,
	})

	places := googlemaps.New(googlemaps.Config{
		APIKey:          cfg.Google.APIKey,
		InsightsBaseURL: cfg.Google.InsightsBaseURL,
		PlacesBaseURL:   cfg.Google.PlacesBaseURL,
		InsightsTimeout: time.Duration(cfg.Google.InsightsTimeout) * time.Second,
		DetailsTimeout:  time.Duration(cfg.Google.DetailsTimeout) * time.Second,
		RateQPS:         cfg.Google.RateQPS,
		RateBurst:       cfg.Google.RateBurst,
	})

	var exporter ports.SnapshotExporter
	if cfg.Storage.Export {
		exporter = jsonfile.NewExporter(cfg.Storage.OutputDir)
	}

	// Events let the API evict its cached copy when a batch sweep replaces
	// a snapshot. The batch still works without a broker.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		log.Printf("nats unavailable, events disabled: %v", err)
	} else {
		events = pub
	}

	return usecases.NewSweepService(geocoder, places, places, postgres.NewSnapshotRepo(db), exporter, events, nil, usecases.SweepConfig{
		Decomposer: usecases.DecomposerConfig{
			Cap:             cfg.Sweep.Cap,
			WorklistCeiling: cfg.Sweep.WorklistCeiling,
			MinRadiusM:      cfg.Sweep.MinRadiusM,
		},
		Workers: cfg.Sweep.Workers,
		DefaultFilter: domain.SearchFilter{
			IncludedTypes: cfg.Sweep.DefaultTypes,
			MinRating:     cfg.Sweep.MinRating,
			MaxRating:     cfg.Sweep.MaxRating,
		},
		EstimateRadiusM: cfg.Sweep.EstimateRadiusM,
		CostPerDetail:   cfg.Sweep.CostPerDetail,
		ProgressEvery:   cfg.Sweep.ProgressEvery,
	})
}
