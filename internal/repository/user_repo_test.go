// Package repository_test provides unit tests for the repository layer.
// Tests use pgxmock v4 for database mocking and follow table-driven testing
// patterns. User repository tests verify registration, lookups, and the
// verification-token lifecycle.
package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRow builds a full users-row mock in column order.
func userRow(t time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"user_id", "guid", "username", "firstname", "lastname", "email",
		"verified", "registered", "hashed_password", "salt", "verification_token",
		"verified_date", "password_reset_open", "password_change_count",
		"last_password_change", "last_login", "login_count",
	}).AddRow(
		1, "0123456789abcdef0123456789abcdef", "alice", "Alice", "Archer",
		"alice@example.com", true, t, "digest", "salt", nil,
		&t, false, 0, nil, nil, 3,
	)
}

// TestUserRepository_FindByUsername verifies user lookup by login name.
// Critical for the authentication flow, which retrieves salt and digest
// for password comparison.
//
// Test Cases:
//   - Successful lookup: Returns the matching user
//   - Unknown username: Returns (nil, nil), absence is not an error
func TestUserRepository_FindByUsername(t *testing.T) {
	testTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		username   string
		mockSetup  func(pgxmock.PgxPoolIface)
		expectUser bool
	}{
		{
			name:     "successful user lookup",
			username: "alice",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT user_id, guid, username").
					WithArgs("alice").
					WillReturnRows(userRow(testTime))
			},
			expectUser: true,
		},
		{
			name:     "unknown username returns nil without error",
			username: "nobody",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT user_id, guid, username").
					WithArgs("nobody").
					WillReturnError(pgx.ErrNoRows)
			},
			expectUser: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange - Create and configure mock database
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			// Inject mock into database package
			oldDB := database.DB
			database.DB = mock
			defer func() { database.DB = oldDB }()

			tt.mockSetup(mock)
			repo := repository.NewUserRepository()

			// Act
			user, err := repo.FindByUsername(context.Background(), tt.username)

			// Assert
			assert.NoError(t, err, "Lookups never error on absence")
			if tt.expectUser {
				require.NotNil(t, user, "User should be found")
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, "0123456789abcdef0123456789abcdef", user.GUID)
			} else {
				assert.Nil(t, user, "Unknown username should yield nil user")
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestUserRepository_FindByGUID verifies user lookup by external identifier.
// Used to resolve the verification link and session user.
func TestUserRepository_FindByGUID(t *testing.T) {
	testTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mock.ExpectQuery("SELECT user_id, guid, username").
		WithArgs("0123456789abcdef0123456789abcdef").
		WillReturnRows(userRow(testTime))

	repo := repository.NewUserRepository()

	user, err := repo.FindByGUID(context.Background(), "0123456789abcdef0123456789abcdef")

	assert.NoError(t, err, "Query should succeed")
	require.NotNil(t, user, "User should be found")
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUserRepository_Create verifies registration inserts.
//
// Test Cases:
//   - Successful creation: Populates ID and Registered from RETURNING
//   - Duplicate username: Unique violation maps to ErrDuplicateUser
//
// Security Notes:
//   - Salt and digest must be precomputed; the repository never sees plaintext
//   - Uniqueness is enforced by the database constraint, not a pre-check
func TestUserRepository_Create(t *testing.T) {
	testTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("successful creation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		user := &models.User{
			GUID:           "0123456789abcdef0123456789abcdef",
			Username:       "alice",
			Firstname:      "Alice",
			Lastname:       "Archer",
			Email:          "alice@example.com",
			HashedPassword: "digest",
			Salt:           "salt",
		}

		rows := pgxmock.NewRows([]string{"user_id", "registered"}).AddRow(1, testTime)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(user.GUID, "alice", "Alice", "Archer", "alice@example.com", "digest", "salt").
			WillReturnRows(rows)

		repo := repository.NewUserRepository()

		err = repo.Create(context.Background(), user)

		assert.NoError(t, err, "Creation should succeed")
		assert.Equal(t, 1, user.ID, "ID should be set from RETURNING")
		assert.Equal(t, testTime, user.Registered, "Registered should be set from RETURNING")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username maps to ErrDuplicateUser", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		oldDB := database.DB
		database.DB = mock
		defer func() { database.DB = oldDB }()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), "alice", "Alice", "Archer",
				"alice@example.com", "digest", "salt").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		repo := repository.NewUserRepository()

		err = repo.Create(context.Background(), &models.User{
			GUID: "deadbeefdeadbeefdeadbeefdeadbeef", Username: "alice",
			Firstname: "Alice", Lastname: "Archer", Email: "alice@example.com",
			HashedPassword: "digest", Salt: "salt",
		})

		assert.ErrorIs(t, err, repository.ErrDuplicateUser, "23505 should map to ErrDuplicateUser")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestUserRepository_MarkVerified verifies that verification is one atomic
// update covering the flag, token consumption, verified_date, and first-login
// bookkeeping.
func TestUserRepository_MarkVerified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	// A single UPDATE carries the whole transition. Splitting it would let a
	// crash leave a verified user with an outstanding token.
	mock.ExpectExec("UPDATE users").
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewUserRepository()

	err = repo.MarkVerified(context.Background(), "alice")

	assert.NoError(t, err, "Verification update should succeed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUserRepository_RecordLogin verifies login bookkeeping.
func TestUserRepository_RecordLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mock.ExpectExec("UPDATE users SET login_count").
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewUserRepository()

	err = repo.RecordLogin(context.Background(), "alice")

	assert.NoError(t, err, "Bookkeeping update should succeed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUserRepository_SetVerificationToken verifies token storage. A fresh
// token overwrites any prior unconsumed one, keeping at most one outstanding.
func TestUserRepository_SetVerificationToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mock.ExpectExec("UPDATE users SET verification_token").
		WithArgs("0123456789abcdef0123456789abcdef", "feedfacefeedfacefeedfacefeedface").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewUserRepository()

	err = repo.SetVerificationToken(context.Background(),
		"0123456789abcdef0123456789abcdef", "feedfacefeedfacefeedfacefeedface")

	assert.NoError(t, err, "Token update should succeed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUserRepository_UpdatePassword verifies credential replacement: new salt
// and digest stored together, change counted, reset flow closed.
func TestUserRepository_UpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mock.ExpectExec("UPDATE users").
		WithArgs("alice", "newdigest", "newsalt").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewUserRepository()

	err = repo.UpdatePassword(context.Background(), "alice", "newsalt", "newdigest")

	assert.NoError(t, err, "Password update should succeed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
