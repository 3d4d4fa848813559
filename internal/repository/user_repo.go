// Package repository implements the database access layer for Travel Together.
// This file handles user accounts: registration, lookups, login bookkeeping,
// and the verification-token lifecycle.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
)

// userColumns is the full column list scanned into models.User.
const userColumns = `user_id, guid, username, firstname, lastname, email, verified, registered,
	hashed_password, salt, verification_token, verified_date, password_reset_open,
	password_change_count, last_password_change, last_login, login_count`

// UserRepository handles user-related database operations.
type UserRepository struct{}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// scanUser scans one user row in userColumns order.
func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.GUID, &u.Username, &u.Firstname, &u.Lastname, &u.Email,
		&u.Verified, &u.Registered, &u.HashedPassword, &u.Salt,
		&u.VerificationToken, &u.VerifiedDate, &u.PasswordResetOpen,
		&u.PasswordChangeCount, &u.LastPasswordChange, &u.LastLogin, &u.LoginCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absence is not an error: callers branch on nil.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row for registration.
// GUID, salt, and password digest must be precomputed by the caller; the user
// starts unverified.
//
// Returns:
//   - error: ErrDuplicateUser when the username is already taken (mapped from
//     the unique-constraint violation), other database errors unchanged
//
// Side Effects: populates user.ID and user.Registered with database values.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (guid, username, firstname, lastname, email, hashed_password, salt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id, registered
	`

	err := database.DB.QueryRow(ctx, query,
		user.GUID, user.Username, user.Firstname, user.Lastname,
		user.Email, user.HashedPassword, user.Salt,
	).Scan(&user.ID, &user.Registered)

	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	return err
}

// FindByUsername retrieves a user by login name.
// Returns (nil, nil) when no such user exists.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(database.DB.QueryRow(ctx, query, username))
}

// FindByGUID retrieves a user by external identifier.
// Returns (nil, nil) when no such user exists.
func (r *UserRepository) FindByGUID(ctx context.Context, guid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE guid = $1`
	return scanUser(database.DB.QueryRow(ctx, query, guid))
}

// FindByEmail retrieves a user by email address.
// Returns (nil, nil) when no such user exists. Email is not unique; when
// several accounts share an address the oldest wins, matching the bulk-add
// resolution behavior.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY user_id LIMIT 1`
	return scanUser(database.DB.QueryRow(ctx, query, email))
}

// RecordLogin performs login bookkeeping for an already-authenticated user:
// increments login_count and stamps last_login.
func (r *UserRepository) RecordLogin(ctx context.Context, username string) error {
	query := `UPDATE users SET login_count = login_count + 1, last_login = NOW() WHERE username = $1`
	_, err := database.DB.Exec(ctx, query, username)
	return err
}

// MarkVerified completes email verification as one atomic update: sets the
// verified flag, consumes the outstanding token, stamps verified_date, and
// performs first-login bookkeeping. Verification doubles as the user's first
// login, so the two must not be split into separate statements.
func (r *UserRepository) MarkVerified(ctx context.Context, username string) error {
	query := `
		UPDATE users
		SET verified = TRUE,
		    verification_token = NULL,
		    verified_date = NOW(),
		    last_login = NOW(),
		    login_count = login_count + 1
		WHERE username = $1
	`
	_, err := database.DB.Exec(ctx, query, username)
	return err
}

// SetVerificationToken stores a freshly issued verification token on the user
// row, overwriting any prior unconsumed token. At most one token is
// outstanding per user.
func (r *UserRepository) SetVerificationToken(ctx context.Context, guid, token string) error {
	query := `UPDATE users SET verification_token = $2 WHERE guid = $1`
	_, err := database.DB.Exec(ctx, query, guid, token)
	return err
}

// UpdatePassword replaces the stored credential with a new salt and digest,
// counts the change, and closes any open reset flow.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, salt, digest string) error {
	query := `
		UPDATE users
		SET hashed_password = $2,
		    salt = $3,
		    password_change_count = password_change_count + 1,
		    last_password_change = NOW(),
		    password_reset_open = FALSE
		WHERE username = $1
	`
	_, err := database.DB.Exec(ctx, query, username, digest, salt)
	return err
}

// SetPasswordResetOpen flips the password-reset-in-progress flag.
func (r *UserRepository) SetPasswordResetOpen(ctx context.Context, username string, open bool) error {
	query := `UPDATE users SET password_reset_open = $2 WHERE username = $1`
	_, err := database.DB.Exec(ctx, query, username, open)
	return err
}
