package usecases_test

import (
	"testing"

	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/usecases"
)

func TestNormalizePlace_FullRecord(t *testing.T) {
	rating := 4.7
	count := 812
	detail := &domain.PlaceDetail{
		ID:                     "abc123",
		Name:                   "places/abc123",
		DisplayName:            domain.LocalizedText{Text: "The Spot", LanguageCode: "en"},
		GoogleMapsURI:          "https://maps.google.com/?cid=1",
		PrimaryType:            "restaurant",
		PrimaryTypeDisplayName: domain.LocalizedText{Text: "Restaurant"},
		Types:                  []string{"restaurant", "food"},
		Rating:                 &rating,
		UserRatingCount:        &count,
		PriceLevel:             "PRICE_LEVEL_MODERATE",
		PriceRange: map[string]any{
			"startPrice": map[string]any{"units": "10"},
		},
		Location: &domain.LatLng{Latitude: 32.7157, Longitude: -117.1611},
	}

	p := usecases.NormalizePlace(detail)

	if p.ID != "abc123" {
		t.Errorf("expected id abc123, got %s", p.ID)
	}
	if p.Name != "The Spot" {
		t.Errorf("expected display text flattened, got %s", p.Name)
	}
	if p.ResourceName != "places/abc123" {
		t.Errorf("expected resource name kept, got %s", p.ResourceName)
	}
	if p.PrimaryTypeDisplayName != "Restaurant" {
		t.Errorf("expected Restaurant, got %s", p.PrimaryTypeDisplayName)
	}
	if p.Rating == nil || *p.Rating != 4.7 {
		t.Errorf("expected rating 4.7, got %v", p.Rating)
	}
	if p.UserRatingCount == nil || *p.UserRatingCount != 812 {
		t.Errorf("expected 812 ratings, got %v", p.UserRatingCount)
	}
	if p.GPSCoordinates == nil {
		t.Fatal("expected coordinates")
	}
	if p.GPSCoordinates.Latitude != 32.7157 || p.GPSCoordinates.Longitude != -117.1611 {
		t.Errorf("unexpected coordinates: %+v", p.GPSCoordinates)
	}
	if len(p.Types) != 2 {
		t.Errorf("expected 2 types, got %v", p.Types)
	}
}

func TestNormalizePlace_AbsentFields(t *testing.T) {
	p := usecases.NormalizePlace(&domain.PlaceDetail{ID: "bare"})

	if p.ID != "bare" {
		t.Errorf("expected id bare, got %s", p.ID)
	}
	// Types always serializes as an array, never null.
	if p.Types == nil {
		t.Error("expected empty types slice, got nil")
	}
	if len(p.Types) != 0 {
		t.Errorf("expected no types, got %v", p.Types)
	}
	if p.GPSCoordinates != nil {
		t.Errorf("expected nil coordinates, got %+v", p.GPSCoordinates)
	}
	if p.Rating != nil || p.UserRatingCount != nil {
		t.Error("expected nil rating fields")
	}
}
