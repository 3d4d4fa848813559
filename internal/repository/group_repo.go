// Package repository implements the database access layer for Travel Together.
// This file handles groups, memberships, and the fixed permission catalog.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/security"
)

// capabilityColumns maps each capability to its permissions column. Queries
// interpolate only values from this map, never caller input.
var capabilityColumns = map[models.Capability]string{
	models.CapabilityRead:        "can_read",
	models.CapabilityWrite:       "can_write",
	models.CapabilityDelete:      "can_delete",
	models.CapabilityModifyGroup: "can_modify_group",
}

// GroupRepository handles group and permission database operations.
type GroupRepository struct{}

// NewGroupRepository creates a new instance of GroupRepository.
func NewGroupRepository() *GroupRepository {
	return &GroupRepository{}
}

// Create inserts a new group and makes ownerUsername its OWNER in a single
// transaction. A group must never exist without exactly one owning member
// from creation, so the two statements commit or roll back together.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - name: Group display name
//   - ownerUsername: Username of the creator, must resolve to an account
//
// Returns:
//   - string: GUID of the created group
//   - error: ErrNotFound when ownerUsername does not resolve, database errors otherwise
func (r *GroupRepository) Create(ctx context.Context, name, ownerUsername string) (string, error) {
	tx, err := database.DB.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer tx.Rollback(ctx)

	guid := security.NewGUID()

	var groupID int
	err = tx.QueryRow(ctx,
		`INSERT INTO groups (guid, name) VALUES ($1, $2) RETURNING group_id`,
		guid, name,
	).Scan(&groupID)
	if err != nil {
		return "", err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, permission_id)
		SELECT $1, u.user_id, p.permission_id
		FROM users u, permissions p
		WHERE u.username = $2 AND p.name = $3
	`, groupID, ownerUsername, models.PermissionOwner)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() != 1 {
		return "", ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return guid, nil
}

// FindByGUID retrieves a group by external identifier.
// Returns (nil, nil) when no such group exists.
func (r *GroupRepository) FindByGUID(ctx context.Context, guid string) (*models.Group, error) {
	var g models.Group
	err := database.DB.QueryRow(ctx,
		`SELECT group_id, guid, name FROM groups WHERE guid = $1`, guid,
	).Scan(&g.ID, &g.GUID, &g.Name)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListByUsername retrieves the groups a user belongs to, with member counts.
func (r *GroupRepository) ListByUsername(ctx context.Context, username string) ([]models.GroupWithMembers, error) {
	query := `
		SELECT g.group_id, g.guid, g.name,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.group_id) AS member_count
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.group_id
		JOIN users u ON u.user_id = gm.user_id
		WHERE u.username = $1
		ORDER BY g.name
	`

	rows, err := database.DB.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupWithMembers
	for rows.Next() {
		var g models.GroupWithMembers
		if err := rows.Scan(&g.ID, &g.GUID, &g.Name, &g.MemberCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// AddMembers resolves the given emails and usernames to existing accounts and
// grants each the named permission in the group. Identifiers that do not
// resolve are skipped silently, so a bulk add never fails because one entry
// has a typo. Existing memberships are overwritten with the new permission
// (REPLACE semantics) rather than erroring.
//
// Returns:
//   - int: Number of memberships inserted or updated
//   - error: ErrNotFound when the group or permission name is unknown
func (r *GroupRepository) AddMembers(ctx context.Context, groupGUID string, emails, usernames []string, permissionName string) (int, error) {
	var groupID int
	err := database.DB.QueryRow(ctx,
		`SELECT group_id FROM groups WHERE guid = $1`, groupGUID,
	).Scan(&groupID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var permissionID int
	err = database.DB.QueryRow(ctx,
		`SELECT permission_id FROM permissions WHERE name = $1`, permissionName,
	).Scan(&permissionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	upsert := `
		INSERT INTO group_members (group_id, user_id, permission_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO UPDATE SET permission_id = EXCLUDED.permission_id
	`

	added := 0
	grant := func(lookup, identifier string) error {
		var userID int
		err := database.DB.QueryRow(ctx, lookup, identifier).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // unknown identifier, skip
		}
		if err != nil {
			return err
		}

		if _, err := database.DB.Exec(ctx, upsert, groupID, userID, permissionID); err != nil {
			return err
		}
		added++
		return nil
	}

	for _, email := range emails {
		if err := grant(`SELECT user_id FROM users WHERE email = $1 ORDER BY user_id LIMIT 1`, email); err != nil {
			return added, err
		}
	}
	for _, username := range usernames {
		if err := grant(`SELECT user_id FROM users WHERE username = $1`, username); err != nil {
			return added, err
		}
	}

	return added, nil
}

// PermissionName returns the permission a user holds in a group.
// Returns ("", nil) when the user has no membership row.
func (r *GroupRepository) PermissionName(ctx context.Context, username, groupGUID string) (string, error) {
	query := `
		SELECT p.name
		FROM permissions p
		JOIN group_members gm ON gm.permission_id = p.permission_id
		JOIN groups g ON g.group_id = gm.group_id
		JOIN users u ON u.user_id = gm.user_id
		WHERE u.username = $1 AND g.guid = $2
	`

	var name string
	err := database.DB.QueryRow(ctx, query, username, groupGUID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// HasCapability reports whether the user's permission in the group is one of
// the allowed permission names. A user without a membership row simply lacks
// the capability; that is a false, never an error.
func (r *GroupRepository) HasCapability(ctx context.Context, username, groupGUID string, allowed []string) (bool, error) {
	name, err := r.PermissionName(ctx, username, groupGUID)
	if err != nil {
		return false, err
	}
	if name == "" {
		return false, nil
	}

	for _, a := range allowed {
		if a == name {
			return true, nil
		}
	}
	return false, nil
}

// PermissionsWith returns the names of all permissions carrying the given
// capability. Authorization checks combine this with HasCapability: the set
// of permissions allowed to do X is exactly the set whose X capability is set.
func (r *GroupRepository) PermissionsWith(ctx context.Context, capability models.Capability) ([]string, error) {
	column, ok := capabilityColumns[capability]
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", capability)
	}

	// column comes from the whitelist above, never from caller input.
	query := fmt.Sprintf(`SELECT name FROM permissions WHERE %s = TRUE ORDER BY permission_id`, column)

	rows, err := database.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ListMembers retrieves all members of a group with their permission names.
func (r *GroupRepository) ListMembers(ctx context.Context, groupGUID string) ([]models.Member, error) {
	query := `
		SELECT u.user_id, u.username, u.firstname, u.lastname, u.email, p.name
		FROM users u
		JOIN group_members gm ON gm.user_id = u.user_id
		JOIN groups g ON g.group_id = gm.group_id
		JOIN permissions p ON p.permission_id = gm.permission_id
		WHERE g.guid = $1
		ORDER BY u.username
	`

	rows, err := database.DB.Query(ctx, query, groupGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Firstname, &m.Lastname, &m.Email, &m.Permission); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// Delete removes a group. Memberships and trips (and, transitively, the
// trips' locations and order rows) go with it via ON DELETE CASCADE.
func (r *GroupRepository) Delete(ctx context.Context, guid string) error {
	_, err := database.DB.Exec(ctx, `DELETE FROM groups WHERE guid = $1`, guid)
	return err
}
