package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// PlaceRef is an opaque place identifier as returned by the listing oracle,
// usually a resource name of the form "places/<id>".
type PlaceRef = string

// LocalizedText is the upstream localized string wrapper. Some fields arrive
// as a bare string instead of the wrapped form, so decoding accepts both.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

func (t *LocalizedText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.Text)
	}
	type plain LocalizedText
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = LocalizedText(p)
	return nil
}

// PlaceDetail is the raw record returned by the detail oracle, mirroring the
// upstream field mask. It is normalized into a Place before leaving the core.
type PlaceDetail struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"` // resource name, "places/<id>"
	DisplayName            LocalizedText  `json:"displayName"`
	GoogleMapsURI          string         `json:"googleMapsUri"`
	PrimaryType            string         `json:"primaryType"`
	PrimaryTypeDisplayName LocalizedText  `json:"primaryTypeDisplayName"`
	Types                  []string       `json:"types"`
	Rating                 *float64       `json:"rating"`
	UserRatingCount        *int           `json:"userRatingCount"`
	PriceLevel             string         `json:"priceLevel"`
	PriceRange             map[string]any `json:"priceRange"`
	Location               *LatLng        `json:"location"`
}

// Place is the canonical normalized place record. Every field except ID is
// optional; the JSON shape matches what the result consumers read.
type Place struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name,omitempty"`
	ResourceName           string         `json:"resourceName,omitempty"`
	GoogleMapsURI          string         `json:"googleMapsUri,omitempty"`
	PrimaryType            string         `json:"primaryType,omitempty"`
	PrimaryTypeDisplayName string         `json:"primaryTypeDisplayName,omitempty"`
	Types                  []string       `json:"types"`
	Rating                 *float64       `json:"rating,omitempty"`
	UserRatingCount        *int           `json:"userRatingCount,omitempty"`
	PriceLevel             string         `json:"priceLevel,omitempty"`
	PriceRange             map[string]any `json:"priceRange,omitempty"`
	GPSCoordinates         *LatLng        `json:"gps_coordinates"`
}

// SearchFilter narrows which places a sweep matches.
type SearchFilter struct {
	IncludedTypes   []string `json:"includedTypes"`
	MinRating       float64  `json:"minRating"`
	MaxRating       float64  `json:"maxRating,omitempty"`
	OperatingStatus []string `json:"operatingStatus,omitempty"`
}

// SweepStats summarizes one decomposition run, including how much of the
// region space was dropped when the worklist ceiling was hit.
type SweepStats struct {
	RegionsVisited int   `json:"regionsVisited"`
	Splits         int   `json:"splits"`
	CountCalls     int   `json:"countCalls"`
	ListingCalls   int   `json:"listingCalls"`
	RefsDiscovered int   `json:"refsDiscovered"`
	DroppedRegions int   `json:"droppedRegions"`
	Truncated      bool  `json:"truncated"`
	ElapsedMS      int64 `json:"elapsedMs"`
}

// SearchSnapshot is the persisted result of one completed sweep.
type SearchSnapshot struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	City        string       `json:"city"`
	Region      Region       `json:"region"`
	Filter      SearchFilter `json:"filter"`
	GeneratedAt time.Time    `json:"generated_at"`
	TotalPlaces int          `json:"total_places"`
	Stats       SweepStats   `json:"stats"`
	Places      []Place      `json:"places,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SweepEvent is published on the event bus as a sweep progresses.
type SweepEvent struct {
	Type           string    `json:"type"` // started | progress | completed
	Slug           string    `json:"slug"`
	City           string    `json:"city"`
	RegionsVisited int       `json:"regions_visited,omitempty"`
	RefsDiscovered int       `json:"refs_discovered,omitempty"`
	TotalPlaces    int       `json:"total_places,omitempty"`
	Truncated      bool      `json:"truncated,omitempty"`
	Time           time.Time `json:"time"`
}

// Slugify converts a city name into its storage key: trimmed, lowercased,
// spaces replaced with underscores.
func Slugify(city string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(city)), " ", "_")
}
