// Package repository implements the database access layer for Travel Together.
// This file handles trips, which belong to groups and are visible to every
// group member.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/security"
)

// TripRepository handles trip-related database operations.
type TripRepository struct{}

// NewTripRepository creates a new instance of TripRepository.
func NewTripRepository() *TripRepository {
	return &TripRepository{}
}

// Create inserts a trip under the named group.
//
// Returns:
//   - string: GUID of the created trip
//   - error: ErrNotFound when the group GUID does not resolve
func (r *TripRepository) Create(ctx context.Context, groupGUID, title string) (string, error) {
	guid := security.NewGUID()

	// INSERT ... SELECT resolves the group in the same statement; zero rows
	// means the group does not exist.
	query := `
		INSERT INTO trips (group_id, guid, title)
		SELECT g.group_id, $2, $3 FROM groups g WHERE g.guid = $1
		RETURNING trip_id
	`

	var tripID int
	err := database.DB.QueryRow(ctx, query, groupGUID, guid, title).Scan(&tripID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return guid, nil
}

// FindByGUID retrieves a trip by external identifier.
// Returns (nil, nil) when no such trip exists.
func (r *TripRepository) FindByGUID(ctx context.Context, guid string) (*models.Trip, error) {
	var t models.Trip
	err := database.DB.QueryRow(ctx,
		`SELECT trip_id, group_id, guid, title FROM trips WHERE guid = $1`, guid,
	).Scan(&t.ID, &t.GroupID, &t.GUID, &t.Title)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GroupGUID returns the GUID of the group owning a trip.
// Returns ("", nil) when the trip does not exist. Used by the capability gate
// to translate trip-scoped routes into group permission checks.
func (r *TripRepository) GroupGUID(ctx context.Context, tripGUID string) (string, error) {
	query := `
		SELECT g.guid
		FROM groups g
		JOIN trips t ON t.group_id = g.group_id
		WHERE t.guid = $1
	`

	var guid string
	err := database.DB.QueryRow(ctx, query, tripGUID).Scan(&guid)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return guid, nil
}

// ListByUsername retrieves every trip visible to a user. Visibility is
// transitive through group membership: users → group_members → groups →
// trips, never direct ownership.
func (r *TripRepository) ListByUsername(ctx context.Context, username string) ([]models.Trip, error) {
	query := `
		SELECT t.trip_id, t.group_id, t.guid, t.title
		FROM trips t
		JOIN groups g ON g.group_id = t.group_id
		JOIN group_members gm ON gm.group_id = g.group_id
		JOIN users u ON u.user_id = gm.user_id
		WHERE u.username = $1
		ORDER BY t.title
	`

	return r.queryTrips(ctx, query, username)
}

// ListByGroup retrieves the trips of one group.
func (r *TripRepository) ListByGroup(ctx context.Context, groupGUID string) ([]models.Trip, error) {
	query := `
		SELECT t.trip_id, t.group_id, t.guid, t.title
		FROM trips t
		JOIN groups g ON g.group_id = t.group_id
		WHERE g.guid = $1
		ORDER BY t.title
	`

	return r.queryTrips(ctx, query, groupGUID)
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...interface{}) ([]models.Trip, error) {
	rows, err := database.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.ID, &t.GroupID, &t.GUID, &t.Title); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}

	return trips, rows.Err()
}

// Delete removes a trip. Its locations and order row go with it via
// ON DELETE CASCADE.
func (r *TripRepository) Delete(ctx context.Context, guid string) error {
	_, err := database.DB.Exec(ctx, `DELETE FROM trips WHERE guid = $1`, guid)
	return err
}
