// Package handlers implements HTTP request handlers for Travel Together.
// This file handles the trip map page and its locations: add, quick-add,
// delete, and reorder.
package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
	"github.com/parityerror/traveltogether/internal/services"
)

// LocationHandler handles location-related HTTP requests.
type LocationHandler struct {
	store          *session.Store
	tripRepo       *repository.TripRepository
	locationRepo   *repository.LocationRepository
	tripService    *services.TripService
	validator      *security.ValidationService
	securityLogger *security.Logger
	mapsAPIKey     string
}

// NewLocationHandler creates a new instance of LocationHandler.
//
// Parameters:
//   - mapsAPIKey: Google Maps JS API key embedded in the map page
func NewLocationHandler(store *session.Store, tripService *services.TripService,
	validator *security.ValidationService, securityLogger *security.Logger,
	mapsAPIKey string) *LocationHandler {
	return &LocationHandler{
		store:          store,
		tripRepo:       repository.NewTripRepository(),
		locationRepo:   repository.NewLocationRepository(),
		tripService:    tripService,
		validator:      validator,
		securityLogger: securityLogger,
		mapsAPIKey:     mapsAPIKey,
	}
}

// MapPage renders a trip's map with its locations in display order. Route is
// read-gated on the owning group.
func (h *LocationHandler) MapPage(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")

	trip, err := h.tripRepo.FindByGUID(c.UserContext(), tripGUID)
	if err != nil {
		return err
	}
	if trip == nil {
		return c.Status(fiber.StatusNotFound).SendString("Trip not found")
	}

	locations, err := h.tripService.OrderedLocations(c.UserContext(), tripGUID)
	if err != nil {
		return err
	}

	canWrite, err := h.tripService.CanOnTrip(c.UserContext(), username, tripGUID, models.CapabilityWrite)
	if err != nil {
		return err
	}
	canDelete, err := h.tripService.CanOnTrip(c.UserContext(), username, tripGUID, models.CapabilityDelete)
	if err != nil {
		return err
	}

	return c.Render("trips/map", fiber.Map{
		"Title":      trip.Title + " - Travel Together",
		"Trip":       trip,
		"Locations":  locations,
		"CanWrite":   canWrite,
		"CanDelete":  canDelete,
		"MapsAPIKey": h.mapsAPIKey,
	})
}

// AddLocation creates a fully described location from the add form. Route is
// write-gated.
//
// Form Data:
//   - title: Display name
//   - latitude, longitude: Decimal degrees
//   - arrival_date, departure_date: Optional YYYY-MM-DD
//   - url: Optional website
func (h *LocationHandler) AddLocation(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")

	title := c.FormValue("title")
	if err := h.validator.ValidateTitle(title); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid latitude")
	}
	if err := h.validator.ValidateLatitude(lat); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	lng, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid longitude")
	}
	if err := h.validator.ValidateLongitude(lng); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	arrivalStr := c.FormValue("arrival_date")
	departureStr := c.FormValue("departure_date")
	if err := h.validator.ValidateDateRange(arrivalStr, departureStr); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	rawURL := c.FormValue("url")
	if err := h.validator.ValidateURL(rawURL); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	arrival := parseOptionalDate(arrivalStr)
	departure := parseOptionalDate(departureStr)
	var urlPtr *string
	if rawURL != "" {
		urlPtr = &rawURL
	}

	locationGUID, err := h.locationRepo.Add(c.UserContext(), tripGUID, title, lat, lng,
		arrival, departure, urlPtr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Trip not found")
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventLocationAdd,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"trip_guid":     tripGUID,
			"location_guid": locationGUID,
		})

	return c.Redirect("/trips/" + tripGUID)
}

// QuickAddLocation creates a location from a map click: title and
// coordinates only. Route is write-gated.
func (h *LocationHandler) QuickAddLocation(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")

	title := c.FormValue("title")
	if err := h.validator.ValidateTitle(title); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid latitude")
	}
	lng, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid longitude")
	}
	if err := h.validator.ValidateLatitude(lat); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	if err := h.validator.ValidateLongitude(lng); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	locationGUID, err := h.locationRepo.AddShort(c.UserContext(), tripGUID, title, lat, lng)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Trip not found")
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventLocationAdd,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"trip_guid":     tripGUID,
			"location_guid": locationGUID,
			"quick_add":     true,
		})

	return c.Redirect("/trips/" + tripGUID)
}

// DeleteLocation removes one location, scoped to its trip. Route is
// delete-gated.
func (h *LocationHandler) DeleteLocation(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")
	locationGUID := c.Params("location")

	if err := h.validator.ValidateGUID(locationGUID); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid location")
	}

	if err := h.locationRepo.Delete(c.UserContext(), tripGUID, locationGUID); err != nil {
		return err
	}

	h.securityLogger.SecurityEvent(security.EventLocationDelete,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"trip_guid":     tripGUID,
			"location_guid": locationGUID,
		})

	return c.Redirect("/trips/" + tripGUID)
}

// reorderForm carries the posted display order.
type reorderForm struct {
	Order []string `form:"order" json:"order"`
}

// Reorder saves the trip's display order from the posted GUID list. Stale or
// foreign GUIDs in the list are tolerated; rendering drops them. Route is
// write-gated.
func (h *LocationHandler) Reorder(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	tripGUID := c.Params("guid")

	var form reorderForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid order payload")
	}

	for _, guid := range form.Order {
		if err := h.validator.ValidateGUID(guid); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid location in order")
		}
	}

	if err := h.locationRepo.SetOrder(c.UserContext(), tripGUID, form.Order); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Trip not found")
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventLocationReorder,
		nil, username, c.IP(), c.Get("User-Agent"), map[string]interface{}{
			"trip_guid": tripGUID,
			"count":     len(form.Order),
		})

	return c.Redirect("/trips/" + tripGUID)
}

// parseOptionalDate parses a validated YYYY-MM-DD form value, nil when empty.
func parseOptionalDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
