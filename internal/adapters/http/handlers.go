package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/core/usecases"
	"github.com/samirrijal/placesweep/internal/pkg/geospatial"
)

// searchResponse is the success envelope for a completed sweep.
type searchResponse struct {
	OK            bool                   `json:"ok"`
	ElapsedSec    float64                `json:"elapsedSec"`
	Saved         string                 `json:"saved,omitempty"`
	TotalHydrated int                    `json:"totalHydrated"`
	Data          *domain.SearchSnapshot `json:"data"`
}

// countOnlyResponse reports discovery size and projected hydration spend
// without making any detail calls.
type countOnlyResponse struct {
	OK              bool              `json:"ok"`
	ElapsedSec      float64           `json:"elapsedSec"`
	TotalDiscovered int               `json:"totalDiscovered"`
	EstimatedCost   float64           `json:"estimatedCost"`
	Stats           domain.SweepStats `json:"stats"`
}

// SearchCityHandler runs a full sweep for a city.
// GET /v1/search?city=San+Diego&types=restaurant,cafe&min_rating=4.5&count_only=true
func SearchCityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			return errBadRequest(c, "city query parameter is required")
		}

		filter, err := filterFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		countOnly := c.QueryBool("count_only", false)

		res, err := deps.Sweeps.SweepCity(c.UserContext(), city, filter, countOnly)
		if err != nil {
			return sweepError(c, city, err)
		}
		return c.JSON(sweepResponse(res))
	}
}

// SearchPointHandler sweeps the bounding region of a circle around a point,
// skipping geocoding.
// GET /v1/search/point?lat=32.71&lon=-117.16&radius=5000&name=downtown
func SearchPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 5000)

		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radius <= 0 || radius > 100000 {
			return errBadRequest(c, "radius must be between 1 and 100000 meters")
		}

		name := strings.TrimSpace(c.Query("name"))
		if name == "" {
			name = fmt.Sprintf("point_%.4f_%.4f", lat, lon)
		}

		filter, err := filterFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		countOnly := c.QueryBool("count_only", false)

		south, west, north, east := geospatial.BoundingBox(lat, lon, radius)
		region := domain.Region{North: north, South: south, West: west, East: east}

		res, err := deps.Sweeps.SweepRegion(c.UserContext(), name, region, filter, countOnly)
		if err != nil {
			return sweepError(c, name, err)
		}
		return c.JSON(sweepResponse(res))
	}
}

// EstimateHandler performs a single fixed-radius count call for a city.
// GET /v1/estimate?city=San+Diego
func EstimateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			return errBadRequest(c, "city query parameter is required")
		}

		est, err := deps.Sweeps.Estimate(c.Context(), city)
		if err != nil {
			return sweepError(c, city, err)
		}

		return c.JSON(fiber.Map{
			"ok":            true,
			"city":          est.City,
			"count":         est.Count,
			"estimatedCost": est.EstimatedCost,
		})
	}
}

// ListSnapshotsHandler returns stored snapshot headers, newest first.
// GET /v1/snapshots?offset=0&limit=20
func ListSnapshotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		snaps, total, err := deps.Snapshots.List(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: snaps, Pagination: pg})
	}
}

// GetSnapshotHandler returns the latest stored snapshot for a city slug.
func GetSnapshotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "snapshot slug is required")
		}

		snap, err := deps.Snapshots.GetBySlug(c.Context(), slug)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if snap == nil {
			return errNotFound(c, "no snapshot for "+slug)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(snap)
	}
}

// NearbyPlacesHandler returns stored places within a radius of a point.
// GET /v1/places/nearby?lat=32.71&lon=-117.16&radius=2000&limit=50
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 2000)
		limit := c.QueryInt("limit", 50)

		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		places, err := deps.Snapshots.PlacesNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(places)
	}
}

// filterFromQuery builds a filter from types, min_rating and max_rating query
// parameters. Unset fields fall back to service defaults.
func filterFromQuery(c *fiber.Ctx) (domain.SearchFilter, error) {
	var f domain.SearchFilter

	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.IncludedTypes = append(f.IncludedTypes, t)
			}
		}
	}

	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			return f, fmt.Errorf("min_rating must be a number between 0 and 5")
		}
		f.MinRating = v
	}
	if raw := c.Query("max_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			return f, fmt.Errorf("max_rating must be a number between 0 and 5")
		}
		f.MaxRating = v
	}
	if f.MinRating > 0 && f.MaxRating > 0 && f.MinRating > f.MaxRating {
		return f, fmt.Errorf("min_rating must not exceed max_rating")
	}

	return f, nil
}

// sweepError maps pipeline failures onto HTTP statuses. Deadline and cancel
// errors pass through so the timeout middleware can answer 408.
func sweepError(c *fiber.Ctx, name string, err error) error {
	log := LoggerFromCtx(c.UserContext())
	switch {
	case errors.Is(err, ports.ErrGeocodeNotFound):
		return errNotFound(c, fmt.Sprintf("could not resolve %q to a region", name))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn("sweep aborted", "target", name, "error", err)
		return err
	default:
		log.Error("sweep failed", "target", name, "error", err)
		return errInternal(c, err.Error())
	}
}

func sweepResponse(res *usecases.SweepResult) interface{} {
	if res.Snapshot == nil {
		return countOnlyResponse{
			OK:              true,
			ElapsedSec:      roundSec(res.Elapsed.Seconds()),
			TotalDiscovered: res.Discovered,
			EstimatedCost:   res.EstimatedCost,
			Stats:           res.Stats,
		}
	}
	return searchResponse{
		OK:            true,
		ElapsedSec:    roundSec(res.Elapsed.Seconds()),
		Saved:         res.SavedPath,
		TotalHydrated: res.Snapshot.TotalPlaces,
		Data:          res.Snapshot,
	}
}

func roundSec(s float64) float64 {
	return math.Round(s*100) / 100
}
