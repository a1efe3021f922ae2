package usecases_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/core/usecases"
)

// --- Mock InsightOracle ---

type mockOracle struct {
	countFn  func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error)
	placesFn func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error)
}

func (m *mockOracle) Count(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, circle, filter)
	}
	return 0, nil
}

func (m *mockOracle) Places(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
	if m.placesFn != nil {
		return m.placesFn(ctx, circle, filter)
	}
	return nil, nil
}

func TestDecomposer_ListsRegionWithinCap(t *testing.T) {
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			if filter.MinRating != 4.5 {
				t.Errorf("expected filter to pass through, got min rating %f", filter.MinRating)
			}
			return 3, nil
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			return []domain.PlaceRef{"places/c", "places/a", "places/a", ""}, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{MinRating: 4.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs after dedup, got %d: %v", len(refs), refs)
	}
	if refs[0] != "places/a" || refs[1] != "places/c" {
		t.Errorf("expected sorted refs, got %v", refs)
	}
	if stats.RegionsVisited != 1 || stats.CountCalls != 1 || stats.ListingCalls != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Splits != 0 || stats.Truncated {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.RefsDiscovered != 2 {
		t.Errorf("expected 2 discovered, got %d", stats.RefsDiscovered)
	}
}

func TestDecomposer_SplitsWhenCountExceedsCap(t *testing.T) {
	countCalls := 0
	listCalls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			countCalls++
			if countCalls == 1 {
				return 250, nil
			}
			return 10, nil
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			listCalls++
			return []domain.PlaceRef{domain.PlaceRef("places/q" + strconv.Itoa(listCalls))}, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{Cap: 100})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RegionsVisited != 5 {
		t.Errorf("expected 5 regions visited, got %d", stats.RegionsVisited)
	}
	if stats.Splits != 1 {
		t.Errorf("expected 1 split, got %d", stats.Splits)
	}
	if stats.CountCalls != 5 || stats.ListingCalls != 4 {
		t.Errorf("unexpected call counts: %+v", stats)
	}
	if len(refs) != 4 {
		t.Errorf("expected 4 refs, got %d: %v", len(refs), refs)
	}
}

func TestDecomposer_DedupsAcrossSiblingRegions(t *testing.T) {
	// Sibling covering circles overlap at shared quadrant edges, so a place on
	// the edge shows up in more than one listing. It must survive exactly once.
	countCalls := 0
	listCalls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			countCalls++
			if countCalls == 1 {
				return 250, nil
			}
			return 2, nil
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			listCalls++
			return []domain.PlaceRef{
				"places/edge",
				domain.PlaceRef("places/own" + strconv.Itoa(listCalls)),
			}, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{Cap: 100})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 5 {
		t.Fatalf("expected 5 unique refs, got %d: %v", len(refs), refs)
	}
	edges := 0
	for _, r := range refs {
		if r == "places/edge" {
			edges++
		}
	}
	if edges != 1 {
		t.Errorf("expected the edge place once, found it %d times", edges)
	}
	if stats.RefsDiscovered != 5 {
		t.Errorf("expected 5 discovered, got %d", stats.RefsDiscovered)
	}
}

func TestDecomposer_TerminatesOnMonotonicCounts(t *testing.T) {
	// Counts keyed off region width, shrinking with every split as a monotonic
	// oracle does. Two levels over the cap means 1 + 4 splits and 16 leaves.
	listCalls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			// The covering radius shrinks roughly in half per split, so it
			// identifies the depth without touching region internals. The
			// 1x1 degree root covers ~70km, its quadrants ~35km.
			switch {
			case circle.Radius > 50000:
				return 250, nil
			case circle.Radius > 25000:
				return 150, nil
			default:
				return 40, nil
			}
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			listCalls++
			return []domain.PlaceRef{domain.PlaceRef("places/leaf" + strconv.Itoa(listCalls))}, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{Cap: 100})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Splits != 5 {
		t.Errorf("expected 5 splits, got %d", stats.Splits)
	}
	if stats.RegionsVisited != 21 {
		t.Errorf("expected 21 regions visited, got %d", stats.RegionsVisited)
	}
	if stats.ListingCalls != 16 || len(refs) != 16 {
		t.Errorf("expected 16 leaves, got %d calls / %d refs", stats.ListingCalls, len(refs))
	}
	if stats.Truncated {
		t.Error("a terminating run must not report truncation")
	}
}

func TestDecomposer_WalksDepthFirst(t *testing.T) {
	var centers []domain.GeoPoint
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			centers = append(centers, circle.Center)
			if len(centers) == 1 {
				return 500, nil
			}
			return 0, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	_, _, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Quadrants are pushed NW first, so the stack pops them SE, SW, NE, NW.
	want := []domain.GeoPoint{
		{Lat: 39.5, Lon: -2.5},
		{Lat: 39.25, Lon: -2.25},
		{Lat: 39.25, Lon: -2.75},
		{Lat: 39.75, Lon: -2.25},
		{Lat: 39.75, Lon: -2.75},
	}
	if len(centers) != len(want) {
		t.Fatalf("expected %d count calls, got %d", len(want), len(centers))
	}
	for i, c := range centers {
		if c != want[i] {
			t.Errorf("call %d: expected center %+v, got %+v", i, want[i], c)
		}
	}
}

func TestDecomposer_SplitsOnTransientCount(t *testing.T) {
	calls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			calls++
			if calls == 1 {
				return 0, ports.Transient("count", errors.New("upstream 503"))
			}
			return 0, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("expected transient count to be absorbed, got %v", err)
	}
	if stats.Splits != 1 || stats.RegionsVisited != 5 {
		t.Errorf("expected the failed region to split, got %+v", stats)
	}
	if stats.DroppedRegions != 0 || stats.Truncated {
		t.Errorf("nothing should be dropped below the ceiling: %+v", stats)
	}
	if len(refs) != 0 {
		t.Errorf("expected no refs, got %v", refs)
	}
}

func TestDecomposer_DropsRegionAtWorklistCeiling(t *testing.T) {
	calls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			calls++
			switch calls {
			case 1:
				return 500, nil
			case 2:
				return 0, ports.Transient("count", errors.New("upstream 503"))
			default:
				return 0, nil
			}
		},
	}

	// Ceiling of 3: after the root split the stack holds 3 siblings, so the
	// transient failure on the first quadrant cannot split again.
	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{WorklistCeiling: 3})
	_, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.Truncated {
		t.Error("expected run marked truncated")
	}
	if stats.DroppedRegions != 1 {
		t.Errorf("expected 1 dropped region, got %d", stats.DroppedRegions)
	}
	if stats.Splits != 1 || stats.RegionsVisited != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDecomposer_SplitsOnTransientListing(t *testing.T) {
	countCalls := 0
	listCalls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			countCalls++
			if countCalls == 1 {
				return 5, nil
			}
			return 2, nil
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			listCalls++
			if listCalls == 1 {
				return nil, ports.Transient("places", errors.New("upstream 429"))
			}
			return []domain.PlaceRef{domain.PlaceRef("places/l" + strconv.Itoa(listCalls))}, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("expected transient listing to be absorbed, got %v", err)
	}
	if stats.Splits != 1 {
		t.Errorf("expected the failed listing to split its region, got %d splits", stats.Splits)
	}
	if stats.ListingCalls != 5 {
		t.Errorf("expected 5 listing calls, got %d", stats.ListingCalls)
	}
	if len(refs) != 4 {
		t.Errorf("expected 4 refs from the quadrants, got %d: %v", len(refs), refs)
	}
}

func TestDecomposer_FatalCountAborts(t *testing.T) {
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			return 0, errors.New("quota exhausted")
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err == nil {
		t.Fatal("expected error")
	}
	if refs != nil {
		t.Errorf("expected nil refs, got %v", refs)
	}
	if stats.CountCalls != 1 {
		t.Errorf("expected the run to stop after one call, got %d", stats.CountCalls)
	}
}

func TestDecomposer_FatalListingAborts(t *testing.T) {
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			return 3, nil
		},
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			return nil, errors.New("quota exhausted")
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	_, _, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDecomposer_ContextCanceled(t *testing.T) {
	calls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			calls++
			return 0, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	_, _, err := d.Run(ctx,
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no oracle calls, got %d", calls)
	}
}

func TestDecomposer_ZeroCountSkipsListing(t *testing.T) {
	listed := false
	oracle := &mockOracle{
		placesFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
			listed = true
			return nil, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	refs, stats, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listed {
		t.Error("listing should not run for an empty region")
	}
	if stats.RegionsVisited != 1 || stats.ListingCalls != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(refs) != 0 {
		t.Errorf("expected no refs, got %v", refs)
	}
}

func TestDecomposer_ReportsProgress(t *testing.T) {
	calls := 0
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			calls++
			if calls == 1 {
				return 200, nil
			}
			return 0, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{})
	var visits []int
	d.OnProgress = func(visited, discovered int) {
		visits = append(visits, visited)
	}
	_, _, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 39, West: -3, East: -2},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 5 {
		t.Fatalf("expected 5 progress reports, got %d", len(visits))
	}
	if visits[4] != 5 {
		t.Errorf("expected final visited count 5, got %d", visits[4])
	}
}

func TestDecomposer_DegenerateRegionUsesRadiusFloor(t *testing.T) {
	var radius float64
	oracle := &mockOracle{
		countFn: func(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
			radius = circle.Radius
			return 0, nil
		},
	}

	d := usecases.NewDecomposer(oracle, usecases.DecomposerConfig{MinRadiusM: 75})
	_, _, err := d.Run(context.Background(),
		domain.Region{North: 40, South: 40, West: -3, East: -3},
		domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if radius != 75 {
		t.Errorf("expected radius floored at 75, got %f", radius)
	}
}
