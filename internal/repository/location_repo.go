// Package repository implements the database access layer for Travel Together.
// This file handles locations and the per-trip display order.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/security"
)

// LocationRepository handles location-related database operations.
type LocationRepository struct{}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{}
}

// Add inserts a fully described location under the named trip.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - tripGUID: External identifier of the owning trip
//   - title: Display name of the stop
//   - lat, lng: Coordinates in degrees
//   - arrival, departure: Optional visit dates
//   - url: Optional website link
//
// Returns:
//   - string: GUID of the created location
//   - error: ErrNotFound when the trip GUID does not resolve
func (r *LocationRepository) Add(ctx context.Context, tripGUID, title string, lat, lng float64, arrival, departure *time.Time, url *string) (string, error) {
	guid := security.NewGUID()

	query := `
		INSERT INTO locations (trip_id, guid, title, latitude, longitude, arrival_date, departure_date, url)
		SELECT t.trip_id, $2, $3, $4, $5, $6, $7, $8 FROM trips t WHERE t.guid = $1
		RETURNING location_id
	`

	var locationID int
	err := database.DB.QueryRow(ctx, query,
		tripGUID, guid, title, lat, lng, arrival, departure, url,
	).Scan(&locationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return guid, nil
}

// AddShort inserts a location with just a title and coordinates, the quick-add
// path from the map view.
func (r *LocationRepository) AddShort(ctx context.Context, tripGUID, title string, lat, lng float64) (string, error) {
	return r.Add(ctx, tripGUID, title, lat, lng, nil, nil, nil)
}

// ListByTrip retrieves the locations of a trip in insertion order. Display
// order is applied on top by the service layer.
func (r *LocationRepository) ListByTrip(ctx context.Context, tripGUID string) ([]models.Location, error) {
	query := `
		SELECT l.location_id, l.trip_id, l.guid, l.title, l.latitude, l.longitude,
		       l.arrival_date, l.departure_date, l.url
		FROM locations l
		JOIN trips t ON t.trip_id = l.trip_id
		WHERE t.guid = $1
		ORDER BY l.location_id
	`

	rows, err := database.DB.Query(ctx, query, tripGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		err := rows.Scan(&l.ID, &l.TripID, &l.GUID, &l.Title, &l.Latitude, &l.Longitude,
			&l.ArrivalDate, &l.DepartureDate, &l.URL)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}

	return locations, rows.Err()
}

// Delete removes a location, scoped to its trip. The join guarantees a GUID
// belonging to a different trip's location deletes nothing, even if leaked.
func (r *LocationRepository) Delete(ctx context.Context, tripGUID, locationGUID string) error {
	query := `
		DELETE FROM locations
		USING trips
		WHERE locations.trip_id = trips.trip_id
		  AND trips.guid = $1
		  AND locations.guid = $2
	`
	_, err := database.DB.Exec(ctx, query, tripGUID, locationGUID)
	return err
}

// SetOrder stores the display order of a trip's locations as a JSON array of
// location GUIDs, replacing any previous order for the trip.
//
// Returns:
//   - error: ErrNotFound when the trip GUID does not resolve
func (r *LocationRepository) SetOrder(ctx context.Context, tripGUID string, order []string) error {
	blob, err := json.Marshal(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trip_locations (trip_id, location_order)
		SELECT t.trip_id, $2 FROM trips t WHERE t.guid = $1
		ON CONFLICT (trip_id) DO UPDATE SET location_order = EXCLUDED.location_order
	`

	tag, err := database.DB.Exec(ctx, query, tripGUID, string(blob))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrder retrieves the stored display order for a trip. Returns (nil, nil)
// when no order has been saved. A stored blob that fails to parse is treated
// the same as no order rather than surfaced as an error, so a corrupt row can
// never make a trip page unrenderable.
func (r *LocationRepository) GetOrder(ctx context.Context, tripGUID string) ([]string, error) {
	query := `
		SELECT tl.location_order
		FROM trip_locations tl
		JOIN trips t ON t.trip_id = tl.trip_id
		WHERE t.guid = $1
	`

	var blob string
	err := database.DB.QueryRow(ctx, query, tripGUID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order []string
	if err := json.Unmarshal([]byte(blob), &order); err != nil {
		return nil, nil
	}
	return order, nil
}
