package usecases

import "github.com/samirrijal/placesweep/internal/core/domain"

// NormalizePlace maps a raw detail record onto the canonical Place shape,
// flattening localized text wrappers and defaulting absent fields. Pure
// mapping: no error conditions, absent fields normalize to zero values.
func NormalizePlace(d *domain.PlaceDetail) domain.Place {
	p := domain.Place{
		ID:                     d.ID,
		Name:                   d.DisplayName.Text,
		ResourceName:           d.Name,
		GoogleMapsURI:          d.GoogleMapsURI,
		PrimaryType:            d.PrimaryType,
		PrimaryTypeDisplayName: d.PrimaryTypeDisplayName.Text,
		Types:                  d.Types,
		Rating:                 d.Rating,
		UserRatingCount:        d.UserRatingCount,
		PriceLevel:             d.PriceLevel,
		PriceRange:             d.PriceRange,
	}
	if p.Types == nil {
		p.Types = []string{}
	}
	if d.Location != nil {
		p.GPSCoordinates = &domain.LatLng{
			Latitude:  d.Location.Latitude,
			Longitude: d.Location.Longitude,
		}
	}
	return p
}
