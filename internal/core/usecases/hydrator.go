package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
)

// Hydrator resolves place refs into normalized records using a bounded
// worker pool. Pool size respects upstream rate limits while overlapping
// network latency.
type Hydrator struct {
	details ports.PlaceDetailer
	workers int
}

// NewHydrator creates a Hydrator. A non-positive worker count falls back
// to 16.
func NewHydrator(details ports.PlaceDetailer, workers int) *Hydrator {
	if workers <= 0 {
		workers = 16
	}
	return &Hydrator{details: details, workers: workers}
}

// Run fetches every ref concurrently and returns the normalized records in
// completion order. A ref whose lookup fails or is gone upstream is dropped
// without failing the batch; every dispatched lookup is joined before Run
// returns. The batch as a whole only fails when the context is canceled.
func (h *Hydrator) Run(ctx context.Context, refs []domain.PlaceRef) ([]domain.Place, error) {
	var (
		mu     sync.Mutex
		places = make([]domain.Place, 0, len(refs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for _, ref := range refs {
		g.Go(func() error {
			detail, err := h.details.Details(gctx, ref)
			if err != nil {
				if !errors.Is(err, ports.ErrPlaceNotFound) {
					slog.Debug("place detail lookup dropped", "ref", ref, "error", err)
				}
				return nil
			}

			place := NormalizePlace(detail)
			mu.Lock()
			places = append(places, place)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return places, nil
}
