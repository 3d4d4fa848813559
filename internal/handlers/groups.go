// Package handlers implements HTTP request handlers for Travel Together.
// This file handles travel groups: listing, creation, deletion, and
// membership management.
package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
)

// GroupHandler handles group-related HTTP requests.
type GroupHandler struct {
	store          *session.Store
	groupRepo      *repository.GroupRepository
	tripRepo       *repository.TripRepository
	validator      *security.ValidationService
	securityLogger *security.Logger
	maxBulkMembers int
}

// NewGroupHandler creates a new instance of GroupHandler.
func NewGroupHandler(store *session.Store, validator *security.ValidationService,
	securityLogger *security.Logger, config *security.SecurityConfig) *GroupHandler {
	return &GroupHandler{
		store:          store,
		groupRepo:      repository.NewGroupRepository(),
		tripRepo:       repository.NewTripRepository(),
		validator:      validator,
		securityLogger: securityLogger,
		maxBulkMembers: config.MaxBulkMembers,
	}
}

// ListGroups renders the caller's groups with member counts.
func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	groups, err := h.groupRepo.ListByUsername(c.UserContext(), username)
	if err != nil {
		return err
	}

	return c.Render("groups/index", fiber.Map{
		"Title":  "Your groups - Travel Together",
		"Groups": groups,
	})
}

// ShowCreateGroup renders the group creation form.
func (h *GroupHandler) ShowCreateGroup(c *fiber.Ctx) error {
	return c.Render("groups/create", fiber.Map{
		"Title": "New group - Travel Together",
	})
}

// CreateGroup creates a group with the caller as OWNER.
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	name := strings.TrimSpace(c.FormValue("name"))

	if err := h.validator.ValidateGroupName(name); err != nil {
		return c.Render("groups/create", fiber.Map{"Error": err.Error()})
	}

	guid, err := h.groupRepo.Create(c.UserContext(), name, username)
	if err != nil {
		return err
	}

	h.securityLogger.SecurityEvent(security.EventGroupCreate,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"group_guid": guid,
		})

	return c.Redirect("/groups/" + guid + "/members")
}

// DeleteGroup removes a group and, through cascades, its memberships and
// trips. Route is delete-gated.
func (h *GroupHandler) DeleteGroup(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	guid := c.Params("guid")

	if err := h.groupRepo.Delete(c.UserContext(), guid); err != nil {
		return err
	}

	h.securityLogger.SecurityEvent(security.EventGroupDelete,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"group_guid": guid,
		})

	return c.Redirect("/groups")
}

// Members renders the group page: member roster with permissions, the
// group's trips, and the bulk add form. Route is read-gated.
func (h *GroupHandler) Members(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	guid := c.Params("guid")

	group, err := h.groupRepo.FindByGUID(c.UserContext(), guid)
	if err != nil {
		return err
	}
	if group == nil {
		return c.Status(fiber.StatusNotFound).SendString("Group not found")
	}

	members, err := h.groupRepo.ListMembers(c.UserContext(), guid)
	if err != nil {
		return err
	}

	trips, err := h.tripRepo.ListByGroup(c.UserContext(), guid)
	if err != nil {
		return err
	}

	// The add-member and delete controls only render for holders of the
	// corresponding capabilities.
	canModify, err := h.groupRepo.HasCapability(c.UserContext(), username, guid,
		mustPermissions(h.groupRepo, c, models.CapabilityModifyGroup))
	if err != nil {
		return err
	}

	return c.Render("groups/members", fiber.Map{
		"Title":     group.Name + " - Travel Together",
		"Group":     group,
		"Members":   members,
		"Trips":     trips,
		"CanModify": canModify,
	})
}

// AddMembers performs the bulk member grant: free-form identifier lists plus
// one permission applied to every resolved account. Route is
// modify_group-gated.
//
// Form Data:
//   - emails: Whitespace or comma separated email addresses
//   - usernames: Whitespace or comma separated usernames
//   - permission: Permission name every resolved user receives
func (h *GroupHandler) AddMembers(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	guid := c.Params("guid")

	form := models.AddMembersForm{
		Emails:     splitIdentifiers(c.FormValue("emails")),
		Usernames:  splitIdentifiers(c.FormValue("usernames")),
		Permission: c.FormValue("permission"),
	}

	switch form.Permission {
	case models.PermissionOwner, models.PermissionModerator,
		models.PermissionMember, models.PermissionReader:
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Unknown permission")
	}

	if len(form.Emails)+len(form.Usernames) > h.maxBulkMembers {
		return c.Status(fiber.StatusBadRequest).SendString("Too many identifiers in one request")
	}

	added, err := h.groupRepo.AddMembers(c.UserContext(), guid,
		form.Emails, form.Usernames, form.Permission)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Group not found")
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventGroupMemberAdd,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"group_guid": guid,
			"requested":  len(form.Emails) + len(form.Usernames),
			"added":      added,
		})

	return c.Redirect("/groups/" + guid + "/members")
}

// splitIdentifiers tokenizes a free-form identifier list on whitespace,
// commas, and semicolons, dropping empties.
func splitIdentifiers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// mustPermissions loads the permission names carrying a capability, falling
// back to none on error. Used only for view affordances; actual enforcement
// happens in the route gates.
func mustPermissions(repo *repository.GroupRepository, c *fiber.Ctx, capability models.Capability) []string {
	names, err := repo.PermissionsWith(c.UserContext(), capability)
	if err != nil {
		return nil
	}
	return names
}
