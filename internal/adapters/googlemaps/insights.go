package googlemaps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/pkg/metrics"
)

const (
	insightCount  = "INSIGHT_COUNT"
	insightPlaces = "INSIGHT_PLACES"
)

// --- wire shapes for v1:computeInsights ---

type insightsRequest struct {
	Insights []string       `json:"insights"`
	Filter   insightsFilter `json:"filter"`
}

type insightsFilter struct {
	LocationFilter  locationFilter `json:"locationFilter"`
	TypeFilter      typeFilter     `json:"typeFilter"`
	RatingFilter    *ratingFilter  `json:"ratingFilter,omitempty"`
	OperatingStatus []string       `json:"operatingStatus,omitempty"`
}

type locationFilter struct {
	Circle circleShape `json:"circle"`
}

type circleShape struct {
	Center circleCenter `json:"center"`
	Radius float64      `json:"radius"`
}

type circleCenter struct {
	LatLng domain.LatLng `json:"latLng"`
}

type typeFilter struct {
	IncludedTypes []string `json:"includedTypes"`
}

type ratingFilter struct {
	MinRating float64 `json:"minRating"`
	MaxRating float64 `json:"maxRating,omitempty"`
}

type insightsResponse struct {
	// The count arrives as a decimal string, not a number.
	Count  string `json:"count"`
	Places []struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"places"`
}

// Count implements the count half of ports.InsightOracle.
func (c *Client) Count(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) (int, error) {
	resp, err := c.computeInsights(ctx, "count", insightCount, circle, filter)
	if err != nil {
		return 0, err
	}
	if resp.Count == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(resp.Count)
	if err != nil {
		return 0, fmt.Errorf("insights count: parse %q: %w", resp.Count, err)
	}
	return n, nil
}

// Places implements the listing half of ports.InsightOracle. The upstream
// returns at most its per-call cap of refs; completeness above the cap is
// undefined, which is why callers split first.
func (c *Client) Places(ctx context.Context, circle domain.Circle, filter domain.SearchFilter) ([]domain.PlaceRef, error) {
	resp, err := c.computeInsights(ctx, "places", insightPlaces, circle, filter)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.PlaceRef, 0, len(resp.Places))
	for _, p := range resp.Places {
		ref := p.Name
		if ref == "" {
			ref = p.ID
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (c *Client) computeInsights(ctx context.Context, kind, insight string, circle domain.Circle, filter domain.SearchFilter) (*insightsResponse, error) {
	op := "insights " + kind
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: google api key not configured", op)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body := insightsRequest{
		Insights: []string{insight},
		Filter: insightsFilter{
			LocationFilter: locationFilter{
				Circle: circleShape{
					Center: circleCenter{LatLng: domain.LatLng{
						Latitude:  circle.Center.Lat,
						Longitude: circle.Center.Lon,
					}},
					Radius: circle.Radius,
				},
			},
			TypeFilter:      typeFilter{IncludedTypes: filter.IncludedTypes},
			OperatingStatus: filter.OperatingStatus,
		},
	}
	if filter.MinRating > 0 || filter.MaxRating > 0 {
		body.Filter.RatingFilter = &ratingFilter{
			MinRating: filter.MinRating,
			MaxRating: filter.MaxRating,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.insightsBaseURL+"/v1:computeInsights", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.insights.Do(req)
	metrics.OracleCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleCalls.WithLabelValues(kind, "transient").Inc()
		return nil, ports.Transient(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		cerr := classify(op, resp.StatusCode, raw)
		if ports.IsTransient(cerr) {
			metrics.OracleCalls.WithLabelValues(kind, "transient").Inc()
		} else {
			metrics.OracleCalls.WithLabelValues(kind, "error").Inc()
		}
		return nil, cerr
	}

	var out insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.OracleCalls.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	metrics.OracleCalls.WithLabelValues(kind, "ok").Inc()
	return &out, nil
}
