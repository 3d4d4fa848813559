// Package models defines the domain entities and data transfer objects for
// Travel Together. It includes database models mapped to PostgreSQL tables,
// form DTOs for user input, and view models for template rendering.
package models

import "time"

// ============================================================================
// Domain Models (Database Entities)
// ============================================================================

// User represents a registered account.
//
// Every entity carries two identities: an internal serial primary key that
// never leaves the SQL layer, and an opaque 32-hex GUID used externally.
//
// Database Table: users
// Security Note: HashedPassword and Salt must never appear in responses or logs.
type User struct {
	ID                  int        `db:"user_id"`               // Primary key, auto-increment
	GUID                string     `db:"guid"`                  // Opaque external identifier (32 hex chars)
	Username            string     `db:"username"`              // Unique login name
	Firstname           string     `db:"firstname"`             // Given name
	Lastname            string     `db:"lastname"`              // Family name
	Email               string     `db:"email"`                 // Contact and verification address
	Verified            bool       `db:"verified"`              // Email ownership proven
	Registered          time.Time  `db:"registered"`            // Account creation timestamp
	HashedPassword      string     `db:"hashed_password"`       // hex(sha256(salt + password))
	Salt                string     `db:"salt"`                  // 64-char random salt
	VerificationToken   *string    `db:"verification_token"`    // Outstanding single-use token, nil once consumed
	VerifiedDate        *time.Time `db:"verified_date"`         // When verification completed
	PasswordResetOpen   bool       `db:"password_reset_open"`   // A reset flow is in progress
	PasswordChangeCount int        `db:"password_change_count"` // Lifetime password changes
	LastPasswordChange  *time.Time `db:"last_password_change"`  // Most recent password change
	LastLogin           *time.Time `db:"last_login"`            // Most recent successful login
	LoginCount          int        `db:"login_count"`           // Lifetime successful logins
}

// Group represents a travel group. Groups own trips; membership in a group
// transitively grants visibility of its trips.
//
// Database Table: groups
// Deletion cascades to group_members and trips.
type Group struct {
	ID   int    `db:"group_id"` // Primary key
	GUID string `db:"guid"`     // Opaque external identifier
	Name string `db:"name"`     // Display name
}

// Permission is one row of the fixed permission catalog seeded at schema
// creation. Effectively immutable reference data.
//
// Database Table: permissions
type Permission struct {
	ID             int    `db:"permission_id"`
	Name           string `db:"name"` // OWNER, MODERATOR, MEMBER, READER
	CanRead        bool   `db:"can_read"`
	CanWrite       bool   `db:"can_write"`
	CanDelete      bool   `db:"can_delete"`
	CanModifyGroup bool   `db:"can_modify_group"`
}

// Permission catalog names. The set is closed; rows are seeded by migration.
const (
	PermissionOwner     = "OWNER"
	PermissionModerator = "MODERATOR"
	PermissionMember    = "MEMBER"
	PermissionReader    = "READER"
)

// Capability is one of the boolean attributes a Permission may carry.
// Authorization checks are phrased as "does the caller hold any permission
// with this capability" rather than naming permissions directly.
type Capability string

const (
	CapabilityRead        Capability = "read"
	CapabilityWrite       Capability = "write"
	CapabilityDelete      Capability = "delete"
	CapabilityModifyGroup Capability = "modify_group"
)

// Trip represents a journey planned by a group.
//
// Database Table: trips
// Deletion cascades to locations and the trip's order row.
type Trip struct {
	ID      int    `db:"trip_id"`
	GroupID int    `db:"group_id"` // Owning group
	GUID    string `db:"guid"`
	Title   string `db:"title"`
}

// Location represents one stop on a trip's map.
//
// Database Table: locations
type Location struct {
	ID            int        `db:"location_id"`
	TripID        int        `db:"trip_id"` // Owning trip
	GUID          string     `db:"guid"`
	Title         string     `db:"title"`
	Latitude      float64    `db:"latitude"`
	Longitude     float64    `db:"longitude"`
	ArrivalDate   *time.Time `db:"arrival_date"`   // Optional
	DepartureDate *time.Time `db:"departure_date"` // Optional
	URL           *string    `db:"url"`            // Optional website
}

// ============================================================================
// View Models
// ============================================================================

// Member represents one group membership joined with user and permission
// details, for the group members page.
type Member struct {
	UserID     int    `db:"user_id"`
	Username   string `db:"username"`
	Firstname  string `db:"firstname"`
	Lastname   string `db:"lastname"`
	Email      string `db:"email"`
	Permission string `db:"permission"` // Permission name (OWNER, ...)
}

// GroupWithMembers extends Group with a member count for list views.
type GroupWithMembers struct {
	Group
	MemberCount int `db:"member_count"`
}

// ============================================================================
// Data Transfer Objects (DTOs) - Form Input
// ============================================================================

// RegisterForm carries the registration form fields.
type RegisterForm struct {
	Username  string
	Firstname string
	Lastname  string
	Email     string
	Password  string
}

// LoginForm carries login credentials plus the optional verification token
// a user may paste from their welcome email.
type LoginForm struct {
	Username string
	Password string
	Token    string
}

// LocationForm carries the add-location form fields. Dates and URL are the
// raw form strings; parsing happens after validation.
type LocationForm struct {
	Title         string
	Latitude      float64
	Longitude     float64
	ArrivalDate   string
	DepartureDate string
	URL           string
}

// AddMembersForm carries the bulk member-add form: free-form identifier
// lists plus the permission every resolved user receives.
type AddMembersForm struct {
	Emails     []string
	Usernames  []string
	Permission string
}
