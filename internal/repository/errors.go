// Package repository implements the database access layer for Travel Together.
// This file defines the error taxonomy shared by all repositories.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when an operation targets an entity that does not
// exist. Plain lookups do NOT return it: they return (nil, nil) on zero rows.
// It is reserved for mutations that require the target to exist, such as
// creating a trip under an unknown group.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when registration collides with an existing
// username. The unique constraint on users.username is the source of truth;
// the violation is mapped here rather than pre-checked.
var ErrDuplicateUser = errors.New("username already taken")

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
