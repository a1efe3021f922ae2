package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/pkg/geospatial"
)

// DecomposerConfig carries the policy knobs for one sweep.
type DecomposerConfig struct {
	// Cap is the listing oracle's per-call identifier limit. A region whose
	// count exceeds it must be split before listing.
	Cap int
	// WorklistCeiling bounds growth of the pending-region stack when
	// compensating for transient count failures.
	WorklistCeiling int
	// MinRadiusM floors covering-circle radii so degenerate regions still
	// produce a usable query shape.
	MinRadiusM float64
}

func (c DecomposerConfig) withDefaults() DecomposerConfig {
	if c.Cap <= 0 {
		c.Cap = 100
	}
	if c.WorklistCeiling <= 0 {
		c.WorklistCeiling = 2048
	}
	if c.MinRadiusM <= 0 {
		c.MinRadiusM = 50
	}
	return c
}

// Decomposer discovers every place ref inside a region by recursive quadrant
// splitting, guided by count feedback from the insight oracle.
type Decomposer struct {
	oracle ports.InsightOracle
	cfg    DecomposerConfig

	// OnProgress, when set, receives (regionsVisited, refsDiscovered) after
	// each processed region.
	OnProgress func(visited, discovered int)
}

// NewDecomposer creates a Decomposer. Zero config fields fall back to the
// standard cap (100), ceiling (2048) and radius floor (50 m).
func NewDecomposer(oracle ports.InsightOracle, cfg DecomposerConfig) *Decomposer {
	return &Decomposer{oracle: oracle, cfg: cfg.withDefaults()}
}

// Run walks the region space depth-first and returns the deduplicated,
// sorted set of discovered refs plus run statistics. The walk is strictly
// sequential: every oracle call costs money, so speculative parallel
// splitting multiplies spend without bound.
//
// Per popped region: a zero count drops it, a count within the cap lists its
// refs, a larger count splits it into four exact quadrants. A transient
// count failure also splits, on the theory that smaller regions are more
// likely to succeed, unless the worklist already sits at its ceiling; then
// the region is dropped and the run is marked truncated. A fatal oracle
// error aborts the whole run.
func (d *Decomposer) Run(ctx context.Context, root domain.Region, filter domain.SearchFilter) ([]domain.PlaceRef, domain.SweepStats, error) {
	var stats domain.SweepStats
	seen := make(refSet)
	stack := []domain.Region{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		region := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.RegionsVisited++

		circle := d.cover(region)

		count, err := d.oracle.Count(ctx, circle, filter)
		stats.CountCalls++
		if err != nil {
			if !ports.IsTransient(err) {
				return nil, stats, fmt.Errorf("count places: %w", err)
			}
			if len(stack) < d.cfg.WorklistCeiling {
				stats.Splits++
				stack = pushQuadrants(stack, region)
			} else {
				stats.DroppedRegions++
				stats.Truncated = true
				slog.Warn("worklist ceiling reached, dropping region",
					"north", region.North, "south", region.South,
					"west", region.West, "east", region.East,
					"error", err)
			}
			d.progress(stats.RegionsVisited, len(seen))
			continue
		}

		switch {
		case count == 0:
			// nothing to find here
		case count <= d.cfg.Cap:
			refs, lerr := d.oracle.Places(ctx, circle, filter)
			stats.ListingCalls++
			if lerr != nil {
				if !ports.IsTransient(lerr) {
					return nil, stats, fmt.Errorf("list places: %w", lerr)
				}
				// Split once instead of re-asking the same circle.
				stats.Splits++
				stack = pushQuadrants(stack, region)
				break
			}
			seen.add(refs...)
		default:
			stats.Splits++
			stack = pushQuadrants(stack, region)
		}

		d.progress(stats.RegionsVisited, len(seen))
	}

	refs := seen.sorted()
	stats.RefsDiscovered = len(refs)
	return refs, stats, nil
}

func (d *Decomposer) cover(r domain.Region) domain.Circle {
	radius := geospatial.CoveringRadius(r.North, r.South, r.West, r.East, d.cfg.MinRadiusM)
	return domain.Circle{Center: r.Center(), Radius: radius}
}

func (d *Decomposer) progress(visited, discovered int) {
	if d.OnProgress != nil {
		d.OnProgress(visited, discovered)
	}
}

func pushQuadrants(stack []domain.Region, r domain.Region) []domain.Region {
	q := r.Quadrants()
	return append(stack, q[:]...)
}

// refSet deduplicates discovered refs. Covering circles of sibling quadrants
// overlap near shared edges, so the same ref routinely arrives twice.
type refSet map[domain.PlaceRef]struct{}

func (s refSet) add(refs ...domain.PlaceRef) {
	for _, ref := range refs {
		if ref != "" {
			s[ref] = struct{}{}
		}
	}
}

func (s refSet) sorted() []domain.PlaceRef {
	out := make([]domain.PlaceRef, 0, len(s))
	for ref := range s {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
