package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
)

// Geocoder resolves free-form city names against a Nominatim instance.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// Config configures the Geocoder.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// New creates a Geocoder talking to cfg.BaseURL (the public OSM instance by
// default).
func New(cfg Config) *Geocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Geocoder{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// searchResult is the slice of the nominatim response we read. The bounding
// box arrives as strings ordered south, north, west, east.
type searchResult struct {
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// BoundsFor implements ports.Geocoder.
func (g *Geocoder) BoundsFor(ctx context.Context, city string) (domain.Region, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("city", city)

	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Region{}, fmt.Errorf("build geocode request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Region{}, fmt.Errorf("geocode request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.Region{}, fmt.Errorf("geocode upstream error: %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Region{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Region{}, ports.ErrGeocodeNotFound
	}

	return parseBoundingBox(results[0].BoundingBox)
}

func parseBoundingBox(box []string) (domain.Region, error) {
	if len(box) != 4 {
		return domain.Region{}, fmt.Errorf("geocode response: expected 4 boundingbox values, got %d", len(box))
	}

	var vals [4]float64
	for i, s := range box {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Region{}, fmt.Errorf("geocode response: parse boundingbox value %q: %w", s, err)
		}
		vals[i] = v
	}

	region := domain.Region{South: vals[0], North: vals[1], West: vals[2], East: vals[3]}
	if !region.Valid() {
		return domain.Region{}, fmt.Errorf("geocode response: inverted bounding box")
	}
	return region, nil
}
