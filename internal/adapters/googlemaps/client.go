package googlemaps

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/samirrijal/placesweep/internal/core/ports"
)

// Client talks to the Google places APIs: Area Insights for count/listing
// queries and Place Details for hydration. It implements both
// ports.InsightOracle and ports.PlaceDetailer.
type Client struct {
	apiKey          string
	insightsBaseURL string
	placesBaseURL   string
	insights        *http.Client
	details         *http.Client
	limiter         *rate.Limiter
}

// Config configures the Client.
type Config struct {
	APIKey          string
	InsightsBaseURL string
	PlacesBaseURL   string
	InsightsTimeout time.Duration
	DetailsTimeout  time.Duration
	RateQPS         float64
	RateBurst       int
}

// New creates a Client. An empty API key is allowed at construction; calls
// fail with a configuration error until one is set, so the service can boot
// and report the missing key instead of crash-looping.
func New(cfg Config) *Client {
	if cfg.InsightsBaseURL == "" {
		cfg.InsightsBaseURL = "https://areainsights.googleapis.com"
	}
	if cfg.PlacesBaseURL == "" {
		cfg.PlacesBaseURL = "https://places.googleapis.com"
	}
	if cfg.InsightsTimeout <= 0 {
		cfg.InsightsTimeout = 30 * time.Second
	}
	if cfg.DetailsTimeout <= 0 {
		cfg.DetailsTimeout = 20 * time.Second
	}
	if cfg.RateQPS <= 0 {
		cfg.RateQPS = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}

	return &Client{
		apiKey:          cfg.APIKey,
		insightsBaseURL: strings.TrimRight(cfg.InsightsBaseURL, "/"),
		placesBaseURL:   strings.TrimRight(cfg.PlacesBaseURL, "/"),
		insights:        &http.Client{Timeout: cfg.InsightsTimeout},
		details:         &http.Client{Timeout: cfg.DetailsTimeout},
		// Token bucket smoothing only; no retry or backoff beyond it.
		limiter: rate.NewLimiter(rate.Limit(cfg.RateQPS), cfg.RateBurst),
	}
}

// classify maps a non-2xx insights response onto the error taxonomy: rate
// limiting and server-side failures are recoverable by splitting the region,
// anything else (bad key, malformed filter) aborts the sweep.
func classify(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	err := fmt.Errorf("upstream status %d: %s", status, msg)
	if status == http.StatusTooManyRequests || status >= 500 {
		return ports.Transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
