// Package repository_test provides unit tests for the repository layer.
// Tests use pgxmock v4 for database mocking and follow table-driven testing
// patterns. Location repository tests verify trip-scoped inserts and deletes
// and the JSON display-order round trip.
package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocationRepository_Add verifies location creation under a trip.
//
// Test Cases:
//   - Full insert with dates and URL
//   - Quick-add with title and coordinates only
//   - Unknown trip yields ErrNotFound
func TestLocationRepository_Add(t *testing.T) {
	arrival := time.Date(2027, 7, 10, 0, 0, 0, 0, time.UTC)
	departure := time.Date(2027, 7, 12, 0, 0, 0, 0, time.UTC)
	url := "https://example.com/matterhorn"

	t.Run("full insert", func(t *testing.T) {
		// Arrange - Create and configure mock database
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		// Inject mock into database package
		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("INSERT INTO locations").
			WithArgs("cccccccccccccccccccccccccccccccc", pgxmock.AnyArg(), "Matterhorn",
				45.9763, 7.6586, &arrival, &departure, &url).
			WillReturnRows(pgxmock.NewRows([]string{"location_id"}).AddRow(100))

		repo := repository.NewLocationRepository()

		// Act
		guid, err := repo.Add(context.Background(), "cccccccccccccccccccccccccccccccc",
			"Matterhorn", 45.9763, 7.6586, &arrival, &departure, &url)

		// Assert
		assert.NoError(t, err, "Insert should succeed")
		assert.Len(t, guid, 32, "Location GUID should be 32 hex chars")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quick add without optional fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("INSERT INTO locations").
			WithArgs("cccccccccccccccccccccccccccccccc", pgxmock.AnyArg(), "Zermatt",
				46.0207, 7.7491, (*time.Time)(nil), (*time.Time)(nil), (*string)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"location_id"}).AddRow(101))

		repo := repository.NewLocationRepository()

		guid, err := repo.AddShort(context.Background(), "cccccccccccccccccccccccccccccccc",
			"Zermatt", 46.0207, 7.7491)

		assert.NoError(t, err, "Quick add should succeed")
		assert.Len(t, guid, 32)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown trip yields ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("INSERT INTO locations").
			WithArgs("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", pgxmock.AnyArg(), "Zermatt",
				46.0207, 7.7491, (*time.Time)(nil), (*time.Time)(nil), (*string)(nil)).
			WillReturnError(pgx.ErrNoRows)

		repo := repository.NewLocationRepository()

		guid, err := repo.AddShort(context.Background(), "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
			"Zermatt", 46.0207, 7.7491)

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Empty(t, guid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestLocationRepository_ListByTrip verifies the trip-scoped listing in
// insertion order.
func TestLocationRepository_ListByTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	rows := pgxmock.NewRows([]string{
		"location_id", "trip_id", "guid", "title", "latitude", "longitude",
		"arrival_date", "departure_date", "url",
	}).
		AddRow(100, 42, "11111111111111111111111111111111", "Matterhorn", 45.9763, 7.6586, nil, nil, nil).
		AddRow(101, 42, "22222222222222222222222222222222", "Zermatt", 46.0207, 7.7491, nil, nil, nil)

	mock.ExpectQuery("SELECT l.location_id, l.trip_id").
		WithArgs("cccccccccccccccccccccccccccccccc").
		WillReturnRows(rows)

	repo := repository.NewLocationRepository()

	locations, err := repo.ListByTrip(context.Background(), "cccccccccccccccccccccccccccccccc")

	assert.NoError(t, err, "Query should succeed")
	assert.Len(t, locations, 2, "Should return both stops")
	assert.Equal(t, "Matterhorn", locations[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLocationRepository_Delete verifies the trip-scoped delete. The join
// against trips means a location GUID presented under the wrong trip deletes
// nothing, so GUIDs leaked across trips are harmless.
func TestLocationRepository_Delete(t *testing.T) {
	t.Run("deletes within owning trip", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectExec("DELETE FROM locations").
			WithArgs("cccccccccccccccccccccccccccccccc", "11111111111111111111111111111111").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := repository.NewLocationRepository()

		err = repo.Delete(context.Background(),
			"cccccccccccccccccccccccccccccccc", "11111111111111111111111111111111")

		assert.NoError(t, err, "Deletion should succeed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong trip is a no-op", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		// Location 111... belongs to another trip; the join matches nothing.
		mock.ExpectExec("DELETE FROM locations").
			WithArgs("dddddddddddddddddddddddddddddddd", "11111111111111111111111111111111").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := repository.NewLocationRepository()

		err = repo.Delete(context.Background(),
			"dddddddddddddddddddddddddddddddd", "11111111111111111111111111111111")

		assert.NoError(t, err, "Cross-trip delete attempt silently affects nothing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestLocationRepository_Order verifies the display-order persistence.
//
// Test Cases:
//   - SetOrder upserts the JSON blob keyed by trip
//   - GetOrder round-trips the stored array
//   - No stored order returns (nil, nil)
//   - A corrupt blob is treated as no order, never an error
func TestLocationRepository_Order(t *testing.T) {
	t.Run("set order upserts JSON blob", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		order := []string{"22222222222222222222222222222222", "11111111111111111111111111111111"}
		blob := `["22222222222222222222222222222222","11111111111111111111111111111111"]`

		mock.ExpectExec("INSERT INTO trip_locations").
			WithArgs("cccccccccccccccccccccccccccccccc", blob).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := repository.NewLocationRepository()

		err = repo.SetOrder(context.Background(), "cccccccccccccccccccccccccccccccc", order)

		assert.NoError(t, err, "Upsert should succeed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set order on unknown trip yields ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectExec("INSERT INTO trip_locations").
			WithArgs("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		repo := repository.NewLocationRepository()

		err = repo.SetOrder(context.Background(), "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
			[]string{"11111111111111111111111111111111"})

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get order round-trips stored array", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		blob := `["22222222222222222222222222222222","11111111111111111111111111111111"]`
		mock.ExpectQuery("SELECT tl.location_order").
			WithArgs("cccccccccccccccccccccccccccccccc").
			WillReturnRows(pgxmock.NewRows([]string{"location_order"}).AddRow(blob))

		repo := repository.NewLocationRepository()

		order, err := repo.GetOrder(context.Background(), "cccccccccccccccccccccccccccccccc")

		assert.NoError(t, err, "Query should succeed")
		assert.Equal(t, []string{
			"22222222222222222222222222222222",
			"11111111111111111111111111111111",
		}, order)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no stored order returns nil without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("SELECT tl.location_order").
			WithArgs("cccccccccccccccccccccccccccccccc").
			WillReturnError(pgx.ErrNoRows)

		repo := repository.NewLocationRepository()

		order, err := repo.GetOrder(context.Background(), "cccccccccccccccccccccccccccccccc")

		assert.NoError(t, err, "Absence is not an error")
		assert.Nil(t, order)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt blob is treated as no order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("SELECT tl.location_order").
			WithArgs("cccccccccccccccccccccccccccccccc").
			WillReturnRows(pgxmock.NewRows([]string{"location_order"}).AddRow(`{"not":"an array"`))

		repo := repository.NewLocationRepository()

		order, err := repo.GetOrder(context.Background(), "cccccccccccccccccccccccccccccccc")

		assert.NoError(t, err, "A corrupt row must not make the trip page fail")
		assert.Nil(t, order, "Corrupt order degrades to insertion order")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
