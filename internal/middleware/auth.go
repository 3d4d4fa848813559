// Package middleware provides HTTP middleware for authentication,
// database gating, and permission checks.
package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/models"
)

// AuthRequired ensures the request carries an authenticated session.
// Requests without one are redirected to the login page.
//
// Context Locals Set:
//   - username: The authenticated user's login name (string)
//   - user_guid: The user's external identifier (string)
//
// Example:
//
//	groups := app.Group("/groups", middleware.AuthRequired(store))
func AuthRequired(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Redirect("/login")
		}

		username := sess.Get("username")
		if username == nil {
			return c.Redirect("/login")
		}

		c.Locals("username", username)
		c.Locals("user_guid", sess.Get("user_guid"))

		return c.Next()
	}
}

// RequireDatabase refuses requests while the connection pool is absent and
// installs a per-request query deadline. The deadline context is attached to
// the request's user context, so every repository call downstream inherits
// it; cancel runs on every exit path including panics unwound by the recover
// middleware above this one.
func RequireDatabase(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !database.IsConnected() {
			return c.Status(fiber.StatusServiceUnavailable).
				SendString("Service temporarily unavailable")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// CapabilityGate answers permission questions for a user against a group or
// a trip. Satisfied by services.TripService.
type CapabilityGate interface {
	Can(ctx context.Context, username, groupGUID string, capability models.Capability) (bool, error)
	CanOnTrip(ctx context.Context, username, tripGUID string, capability models.Capability) (bool, error)
}

// RequireGroupCapability gates a route on the user holding a capability in
// the group named by the :guid route parameter. Missing membership is an
// ordinary 403, never an internal error.
//
// Must be chained after AuthRequired and RequireDatabase.
func RequireGroupCapability(gate CapabilityGate, capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, _ := c.Locals("username").(string)
		groupGUID := c.Params("guid")

		ok, err := gate.Can(c.UserContext(), username, groupGUID, capability)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal error")
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).SendString("Access denied")
		}

		return c.Next()
	}
}

// RequireTripCapability is RequireGroupCapability with the group resolved
// from the trip named by the :guid route parameter. An unknown trip fails
// the gate the same way missing membership does.
func RequireTripCapability(gate CapabilityGate, capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, _ := c.Locals("username").(string)
		tripGUID := c.Params("guid")

		ok, err := gate.CanOnTrip(c.UserContext(), username, tripGUID, capability)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal error")
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).SendString("Access denied")
		}

		return c.Next()
	}
}
