package googlemaps_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samirrijal/placesweep/internal/adapters/googlemaps"
	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
)

func testConfig(url string) googlemaps.Config {
	return googlemaps.Config{
		APIKey:          "test-key",
		InsightsBaseURL: url,
		PlacesBaseURL:   url,
		RateQPS:         1000,
		RateBurst:       100,
	}
}

func testFilter() domain.SearchFilter {
	return domain.SearchFilter{
		IncludedTypes:   []string{"restaurant"},
		MinRating:       4.5,
		MaxRating:       5.0,
		OperatingStatus: []string{"OPERATING_STATUS_OPERATIONAL"},
	}
}

func TestClient_Count(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1:computeInsights" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}

		var req struct {
			Insights []string `json:"insights"`
			Filter   struct {
				LocationFilter struct {
					Circle struct {
						Center struct {
							LatLng struct {
								Latitude  float64 `json:"latitude"`
								Longitude float64 `json:"longitude"`
							} `json:"latLng"`
						} `json:"center"`
						Radius float64 `json:"radius"`
					} `json:"circle"`
				} `json:"locationFilter"`
				TypeFilter struct {
					IncludedTypes []string `json:"includedTypes"`
				} `json:"typeFilter"`
				RatingFilter *struct {
					MinRating float64 `json:"minRating"`
					MaxRating float64 `json:"maxRating"`
				} `json:"ratingFilter"`
				OperatingStatus []string `json:"operatingStatus"`
			} `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Insights) != 1 || req.Insights[0] != "INSIGHT_COUNT" {
			t.Errorf("expected INSIGHT_COUNT, got %v", req.Insights)
		}
		circle := req.Filter.LocationFilter.Circle
		if circle.Center.LatLng.Latitude != 39.5 || circle.Center.LatLng.Longitude != -2.5 {
			t.Errorf("unexpected center: %+v", circle.Center.LatLng)
		}
		if circle.Radius != 6000 {
			t.Errorf("unexpected radius: %f", circle.Radius)
		}
		if len(req.Filter.TypeFilter.IncludedTypes) != 1 || req.Filter.TypeFilter.IncludedTypes[0] != "restaurant" {
			t.Errorf("unexpected types: %v", req.Filter.TypeFilter.IncludedTypes)
		}
		if req.Filter.RatingFilter == nil || req.Filter.RatingFilter.MinRating != 4.5 || req.Filter.RatingFilter.MaxRating != 5.0 {
			t.Errorf("unexpected rating filter: %+v", req.Filter.RatingFilter)
		}
		if len(req.Filter.OperatingStatus) != 1 || req.Filter.OperatingStatus[0] != "OPERATING_STATUS_OPERATIONAL" {
			t.Errorf("unexpected operating status: %v", req.Filter.OperatingStatus)
		}

		_, _ = w.Write([]byte(`{"count":"1234"}`))
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	circle := domain.Circle{Center: domain.GeoPoint{Lat: 39.5, Lon: -2.5}, Radius: 6000}
	count, err := c.Count(context.Background(), circle, testFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1234 {
		t.Errorf("expected 1234, got %d", count)
	}
}

func TestClient_Count_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	count, err := c.Count(context.Background(), domain.Circle{Radius: 100}, testFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for absent count, got %d", count)
	}
}

func TestClient_Count_MalformedCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":"12x"}`))
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	if _, err := c.Count(context.Background(), domain.Circle{Radius: 100}, testFilter()); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
}

func TestClient_Places(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Insights []string `json:"insights"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Insights) != 1 || req.Insights[0] != "INSIGHT_PLACES" {
			t.Errorf("expected INSIGHT_PLACES, got %v", req.Insights)
		}
		// Some records carry only an id, some neither.
		_, _ = w.Write([]byte(`{"places":[{"name":"places/abc"},{"id":"xyz"},{}]}`))
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	refs, err := c.Places(context.Background(), domain.Circle{Radius: 100}, testFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0] != "places/abc" || refs[1] != "xyz" {
		t.Errorf("unexpected refs: %v", refs)
	}
}

func TestClient_Insights_ErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		c := googlemaps.New(testConfig(srv.URL))
		_, err := c.Count(context.Background(), domain.Circle{Radius: 100}, testFilter())
		if err == nil {
			t.Errorf("status %d: expected error", tc.status)
		} else if ports.IsTransient(err) != tc.transient {
			t.Errorf("status %d: expected transient=%v, got %v", tc.status, tc.transient, err)
		}
		srv.Close()
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	c := googlemaps.New(cfg)

	if _, err := c.Count(context.Background(), domain.Circle{Radius: 100}, testFilter()); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := c.Details(context.Background(), "places/abc"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected configuration error, got %v", err)
	}
	if hits != 0 {
		t.Errorf("no upstream calls expected without a key, got %d", hits)
	}
}

func TestClient_Details(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/places/abc" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		mask := r.Header.Get("X-Goog-FieldMask")
		if mask != "id,name,displayName,googleMapsUri,primaryType,primaryTypeDisplayName,types,rating,userRatingCount,priceLevel,priceRange,location" {
			t.Errorf("unexpected field mask: %s", mask)
		}

		_, _ = w.Write([]byte(`{
			"id": "abc",
			"name": "places/abc",
			"displayName": {"text": "The Spot", "languageCode": "en"},
			"rating": 4.7,
			"userRatingCount": 812,
			"location": {"latitude": 43.26, "longitude": -2.93}
		}`))
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	detail, err := c.Details(context.Background(), "places/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.ID != "abc" || detail.DisplayName.Text != "The Spot" {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.Rating == nil || *detail.Rating != 4.7 {
		t.Errorf("unexpected rating: %v", detail.Rating)
	}
	if detail.Location == nil || detail.Location.Latitude != 43.26 {
		t.Errorf("unexpected location: %+v", detail.Location)
	}
}

func TestClient_Details_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	_, err := c.Details(context.Background(), "places/gone")
	if !errors.Is(err, ports.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}
}

func TestClient_Details_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := googlemaps.New(testConfig(srv.URL))
	_, err := c.Details(context.Background(), "places/abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ports.ErrPlaceNotFound) {
		t.Error("a server failure is not a missing place")
	}
}
