// Package handlers implements HTTP request handlers for Travel Together.
// This file handles the dashboard and trip lifecycle.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
)

// TripHandler handles trip-related HTTP requests.
type TripHandler struct {
	store          *session.Store
	tripRepo       *repository.TripRepository
	groupRepo      *repository.GroupRepository
	validator      *security.ValidationService
	securityLogger *security.Logger
}

// NewTripHandler creates a new instance of TripHandler.
func NewTripHandler(store *session.Store, validator *security.ValidationService,
	securityLogger *security.Logger) *TripHandler {
	return &TripHandler{
		store:          store,
		tripRepo:       repository.NewTripRepository(),
		groupRepo:      repository.NewGroupRepository(),
		validator:      validator,
		securityLogger: securityLogger,
	}
}

// Dashboard renders the landing page: every trip visible to the caller
// through group membership, plus their groups.
func (h *TripHandler) Dashboard(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	trips, err := h.tripRepo.ListByUsername(c.UserContext(), username)
	if err != nil {
		return err
	}

	groups, err := h.groupRepo.ListByUsername(c.UserContext(), username)
	if err != nil {
		return err
	}

	return c.Render("dashboard", fiber.Map{
		"Title":  "Your trips - Travel Together",
		"Trips":  trips,
		"Groups": groups,
	})
}

// CreateTrip creates a trip under the group named in the route. Route is
// write-gated on the group.
func (h *TripHandler) CreateTrip(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	groupGUID := c.Params("guid")
	title := c.FormValue("title")

	if err := h.validator.ValidateTitle(title); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	tripGUID, err := h.tripRepo.Create(c.UserContext(), groupGUID, title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Group not found")
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventTripCreate,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"group_guid": groupGUID,
			"trip_guid":  tripGUID,
		})

	return c.Redirect("/trips/" + tripGUID)
}

// DeleteTrip removes a trip and, through cascades, its locations and saved
// order. Route is delete-gated on the owning group.
func (h *TripHandler) DeleteTrip(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")

	if err := h.tripRepo.Delete(c.UserContext(), tripGUID); err != nil {
		return err
	}

	h.securityLogger.SecurityEvent(security.EventTripDelete,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"trip_guid": tripGUID,
		})

	return c.Redirect("/")
}
