package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/placesweep/internal/core/domain"
)

// SnapshotRepo implements ports.SnapshotRepository with pgx.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save stores a snapshot header and its places in one transaction. Places are
// inserted with pgx.Batch so large sweeps do not pay a round trip per row.
func (r *SnapshotRepo) Save(ctx context.Context, snap *domain.SearchSnapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO searches (id, slug, city, north, south, west, east, filter, stats, generated_at, total_places)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, snap.ID, snap.Slug, snap.City,
		snap.Region.North, snap.Region.South, snap.Region.West, snap.Region.East,
		snap.Filter, snap.Stats, snap.GeneratedAt, snap.TotalPlaces)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}

	if len(snap.Places) > 0 {
		batch := &pgx.Batch{}
		for i, p := range snap.Places {
			lon, lat := coordArgs(p.GPSCoordinates)
			batch.Queue(`
				INSERT INTO search_places (search_id, position, place_id, resource_name, name,
				    google_maps_uri, primary_type, primary_type_display_name, types,
				    rating, user_rating_count, price_level, price_range, location)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
				    ST_SetSRID(ST_MakePoint($14, $15), 4326)::geography)
			`, snap.ID, i, p.ID, p.ResourceName, p.Name,
				p.GoogleMapsURI, p.PrimaryType, p.PrimaryTypeDisplayName, p.Types,
				p.Rating, p.UserRatingCount, p.PriceLevel, p.PriceRange, lon, lat)
		}
		br := tx.SendBatch(ctx, batch)
		for range snap.Places {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetBySlug returns the most recent snapshot for a slug with its places, or
// nil when the slug has never been swept.
func (r *SnapshotRepo) GetBySlug(ctx context.Context, slug string) (*domain.SearchSnapshot, error) {
	var snap domain.SearchSnapshot
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, city, north, south, west, east, filter, stats, generated_at, total_places, created_at
		FROM searches
		WHERE slug = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, slug).Scan(
		&snap.ID, &snap.Slug, &snap.City,
		&snap.Region.North, &snap.Region.South, &snap.Region.West, &snap.Region.East,
		&snap.Filter, &snap.Stats, &snap.GeneratedAt, &snap.TotalPlaces, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT place_id, name, resource_name, COALESCE(google_maps_uri, ''),
		       COALESCE(primary_type, ''), COALESCE(primary_type_display_name, ''),
		       types, rating, user_rating_count, COALESCE(price_level, ''), price_range,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon
		FROM search_places
		WHERE search_id = $1
		ORDER BY position
	`, snap.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places := make([]domain.Place, 0, snap.TotalPlaces)
	for rows.Next() {
		var p domain.Place
		var lat, lon sql.NullFloat64
		if err := rows.Scan(
			&p.ID, &p.Name, &p.ResourceName, &p.GoogleMapsURI,
			&p.PrimaryType, &p.PrimaryTypeDisplayName,
			&p.Types, &p.Rating, &p.UserRatingCount, &p.PriceLevel, &p.PriceRange,
			&lat, &lon,
		); err != nil {
			return nil, err
		}
		if lat.Valid && lon.Valid {
			p.GPSCoordinates = &domain.LatLng{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap.Places = places
	return &snap, nil
}

// List returns snapshot headers newest first plus the total stored count.
// Places are not loaded.
func (r *SnapshotRepo) List(ctx context.Context, limit, offset int) ([]domain.SearchSnapshot, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM searches`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, city, north, south, west, east, filter, stats, generated_at, total_places, created_at
		FROM searches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var snaps []domain.SearchSnapshot
	for rows.Next() {
		var snap domain.SearchSnapshot
		if err := rows.Scan(
			&snap.ID, &snap.Slug, &snap.City,
			&snap.Region.North, &snap.Region.South, &snap.Region.West, &snap.Region.East,
			&snap.Filter, &snap.Stats, &snap.GeneratedAt, &snap.TotalPlaces, &snap.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, total, rows.Err()
}

// FindPlacesNearby returns distinct places within radiusMeters of a point
// across all stored snapshots, closest first. When the same place appears in
// several snapshots the most recently stored row wins.
func (r *SnapshotRepo) FindPlacesNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Place, error) {
	rows, err := r.db.Pool.Query(ctx, `
		WITH nearby AS (
			SELECT DISTINCT ON (place_id)
				place_id, name, resource_name, COALESCE(google_maps_uri, ''),
				COALESCE(primary_type, ''), COALESCE(primary_type_display_name, ''),
				types, rating, user_rating_count, COALESCE(price_level, ''), price_range,
				ST_Y(location::geometry) as lat,
				ST_X(location::geometry) as lon,
				ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
			FROM search_places
			WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
			ORDER BY place_id, id DESC
		)
		SELECT * FROM nearby
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []domain.Place
	for rows.Next() {
		var p domain.Place
		var plat, plon sql.NullFloat64
		var dist float64
		if err := rows.Scan(
			&p.ID, &p.Name, &p.ResourceName, &p.GoogleMapsURI,
			&p.PrimaryType, &p.PrimaryTypeDisplayName,
			&p.Types, &p.Rating, &p.UserRatingCount, &p.PriceLevel, &p.PriceRange,
			&plat, &plon, &dist,
		); err != nil {
			return nil, err
		}
		if plat.Valid && plon.Valid {
			p.GPSCoordinates = &domain.LatLng{Latitude: plat.Float64, Longitude: plon.Float64}
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

func coordArgs(ll *domain.LatLng) (interface{}, interface{}) {
	if ll == nil {
		return nil, nil
	}
	return ll.Longitude, ll.Latitude
}
