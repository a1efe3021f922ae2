package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/pkg/metrics"
)

// detailFieldMask selects exactly the fields the normalizer reads. Asking
// for more silently bumps the call into a pricier SKU.
const detailFieldMask = "id,name,displayName,googleMapsUri,primaryType,primaryTypeDisplayName,types,rating,userRatingCount,priceLevel,priceRange,location"

// Details implements ports.PlaceDetailer. A 404 maps to ErrPlaceNotFound so
// hydration can drop the ref without treating it as a failure.
func (c *Client) Details(ctx context.Context, ref domain.PlaceRef) (*domain.PlaceDetail, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("place details: google api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}

	// ref is a resource name like "places/ChIJ...".
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/%s", c.placesBaseURL, ref), nil)
	if err != nil {
		return nil, fmt.Errorf("place details: build request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", detailFieldMask)

	start := time.Now()
	resp, err := c.details.Do(req)
	metrics.OracleCallDuration.WithLabelValues("details").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleCalls.WithLabelValues("details", "error").Inc()
		return nil, fmt.Errorf("place details: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		metrics.OracleCalls.WithLabelValues("details", "not_found").Inc()
		return nil, ports.ErrPlaceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		metrics.OracleCalls.WithLabelValues("details", "error").Inc()
		return nil, fmt.Errorf("place details: upstream status %d", resp.StatusCode)
	}

	var detail domain.PlaceDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		metrics.OracleCalls.WithLabelValues("details", "error").Inc()
		return nil, fmt.Errorf("place details: decode response: %w", err)
	}

	metrics.OracleCalls.WithLabelValues("details", "ok").Inc()
	return &detail, nil
}
